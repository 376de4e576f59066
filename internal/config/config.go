package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap/zapcore"
)

// AccessTypeOnPremise is the only supported device access type. Any other
// value in the config file is rejected at load time.
const AccessTypeOnPremise = "OnPremise"

// Position codes per the Venus D-Bus pvinverter contract.
const (
	PositionACInput1 = 0
	PositionACOutput = 1
	PositionACInput2 = 2
)

type Config struct {
	LogLevel zapcore.Level

	// [DEFAULT] section keys surface as top-level keys in the INI file.
	AccessType     string `mapstructure:"accesstype"`
	SignOfLifeLog  int    `mapstructure:"signoflifelog"`
	DeviceInstance int    `mapstructure:"deviceinstance"`
	CustomName     string `mapstructure:"customname"`
	Phase          string `mapstructure:"phase"`

	OnPremise  OnPremiseConfig  `mapstructure:"onpremise"`
	SmartMeter SmartMeterConfig `mapstructure:"smartmeter"`
	MQTT       MQTTConfig       `mapstructure:"mqtt"`

	Port    uint `mapstructure:"port"`
	HttpLog bool `mapstructure:"http_log"`
}

type OnPremiseConfig struct {
	Host               string
	Username           string
	Password           string
	Position           int
	MaxPower           uint32 `mapstructure:"maxpower"`
	HasMeter           bool   `mapstructure:"hasmeter"`
	PollIntervalMillis uint32 `mapstructure:"pollintervalmillis"`
	TimeoutMillis      uint32 `mapstructure:"timeoutmillis"`
}

type SmartMeterConfig struct {
	ProductName string `mapstructure:"productname"`
}

// MQTTConfig drives the optional telemetry mirror. An empty Host disables it.
type MQTTConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	BaseTopic string `mapstructure:"base_topic"`
}

func (cfg *Config) MirrorEnabled() bool {
	return cfg.MQTT.Host != ""
}

// Validate rejects silently-wrong values instead of defaulting: a bad
// phase or position would make the bus consumer misattribute energy flow.
func (cfg *Config) Validate() error {
	if cfg.AccessType != AccessTypeOnPremise {
		return fmt.Errorf("config param AccessType %q is not supported, must be %q", cfg.AccessType, AccessTypeOnPremise)
	}
	if !ValidPhase(cfg.Phase) {
		return fmt.Errorf("config param Phase %q is invalid, must be one of L1, L2, L3", cfg.Phase)
	}
	if cfg.SignOfLifeLog <= 0 {
		return errors.New("config param SignOfLifeLog should be > 0 minutes")
	}
	if cfg.DeviceInstance < 0 {
		return errors.New("config param DeviceInstance should be >= 0")
	}
	if cfg.OnPremise.Host == "" {
		return errors.New("config param ONPREMISE.Host is required")
	}
	if !ValidPosition(cfg.OnPremise.Position) {
		return fmt.Errorf("config param ONPREMISE.Position %d is invalid, must be 0 (AC input 1), 1 (AC output) or 2 (AC input 2)", cfg.OnPremise.Position)
	}
	if cfg.OnPremise.MaxPower == 0 {
		return errors.New("config param ONPREMISE.MaxPower should be > 0")
	}
	if cfg.OnPremise.PollIntervalMillis < 1000 {
		return errors.New("config param ONPREMISE.PollIntervalMillis should be >= 1000")
	}
	if cfg.OnPremise.TimeoutMillis == 0 {
		return errors.New("config param ONPREMISE.TimeoutMillis should be > 0")
	}
	if cfg.OnPremise.HasMeter && cfg.SmartMeter.ProductName == "" {
		return errors.New("config param SMARTMETER.ProductName is required when ONPREMISE.HasMeter is set")
	}
	if cfg.MirrorEnabled() {
		baseTopic, err := CheckMQTTTopic(cfg.MQTT.BaseTopic)
		if err != nil {
			return errors.New("invalid base topic. can only contain letters, numbers and underscores")
		}
		cfg.MQTT.BaseTopic = baseTopic
	}
	return nil
}

func ValidPhase(phase string) bool {
	switch phase {
	case "L1", "L2", "L3":
		return true
	}
	return false
}

func ValidPosition(position int) bool {
	switch position {
	case PositionACInput1, PositionACOutput, PositionACInput2:
		return true
	}
	return false
}

func CheckMQTTTopic(baseTopic string) (string, error) {
	// check and fix base topic
	lowerBaseTopic := strings.ToLower(baseTopic)
	baseTopicRegexp := regexp.MustCompile("^[a-z0-9_]+$")
	matches := baseTopicRegexp.FindAllStringSubmatch(lowerBaseTopic, 1)
	if len(matches) <= 0 {
		return "", errors.New("invalid topic. can only contain letters, numbers and underscores")
	}
	return lowerBaseTopic, nil
}
