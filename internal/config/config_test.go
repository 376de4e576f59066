package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validConfig() Config {
	return Config{
		AccessType:     AccessTypeOnPremise,
		SignOfLifeLog:  1,
		DeviceInstance: 40,
		CustomName:     "GoodWe EM",
		Phase:          "L1",
		OnPremise: OnPremiseConfig{
			Host:               "192.168.1.50",
			Position:           PositionACOutput,
			MaxPower:           10000,
			HasMeter:           true,
			PollIntervalMillis: 5000,
			TimeoutMillis:      5000,
		},
		SmartMeter: SmartMeterConfig{
			ProductName: "GoodWe Smart Meter",
		},
	}
}

func TestValidateOK(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.Validate())
}

func TestValidateBadAccessType(t *testing.T) {
	cfg := validConfig()
	cfg.AccessType = "Cloud"
	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "AccessType")
}

func TestValidateBadPhase(t *testing.T) {
	cfg := validConfig()
	cfg.Phase = "L4"
	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "Phase")
}

func TestValidateBadPosition(t *testing.T) {
	cfg := validConfig()
	cfg.OnPremise.Position = 3
	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "Position")
}

func TestValidateMeterRequiresProductName(t *testing.T) {
	cfg := validConfig()
	cfg.SmartMeter.ProductName = ""
	assert.Error(t, cfg.Validate())

	cfg.OnPremise.HasMeter = false
	assert.NoError(t, cfg.Validate())
}

func TestValidateBounds(t *testing.T) {
	cfg := validConfig()
	cfg.SignOfLifeLog = 0
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.OnPremise.MaxPower = 0
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.OnPremise.PollIntervalMillis = 500
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.OnPremise.TimeoutMillis = 0
	assert.Error(t, cfg.Validate())
}

func TestValidateMirrorTopic(t *testing.T) {
	cfg := validConfig()
	cfg.MQTT.Host = "localhost"
	cfg.MQTT.BaseTopic = "GoodWe2Venus"
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "goodwe2venus", cfg.MQTT.BaseTopic)

	cfg.MQTT.BaseTopic = "bad/topic"
	assert.Error(t, cfg.Validate())
}

func TestCheckMQTTTopic(t *testing.T) {
	topic, err := CheckMQTTTopic("Lorem_Topic1")
	assert.NoError(t, err)
	assert.Equal(t, "lorem_topic1", topic)

	_, err = CheckMQTTTopic("lorem topic")
	assert.Error(t, err)
}
