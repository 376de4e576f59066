package util

import (
	"github.com/venus-addons/goodwe2venus/internal/config"

	"go.uber.org/zap"
)

func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel:       zap.DebugLevel,
		AccessType:     config.AccessTypeOnPremise,
		SignOfLifeLog:  1,
		DeviceInstance: 40,
		CustomName:     "GoodWe EM",
		Phase:          "L1",
		OnPremise: config.OnPremiseConfig{
			Host:               "-.-.-.-",
			Position:           config.PositionACOutput,
			MaxPower:           10000,
			HasMeter:           true,
			PollIntervalMillis: 5000,
			TimeoutMillis:      2000,
		},
		SmartMeter: config.SmartMeterConfig{
			ProductName: "GoodWe Smart Meter",
		},
		Port: 8080,
	}
}
