package goodwe

import (
	"errors"
)

// Errors returned by an InverterReader. Network and timeout failures wrap
// ErrDeviceUnreachable, malformed or incomplete responses wrap ErrProtocol.
var (
	ErrDeviceUnreachable = errors.New("goodwe: device unreachable")
	ErrProtocol          = errors.New("goodwe: protocol error")
)

type DeviceInfo struct {
	ModelName       string
	SerialNumber    string
	FirmwareVersion string
}

// RuntimeData is a single instantaneous reading from the inverter.
// Voltage, current and power of the on-grid line plus PV power are always
// present; a response missing any of them is rejected as a protocol error.
// Cumulative counters and house consumption are optional and nil when the
// device does not report them.
type RuntimeData struct {
	PVPowerWatt   float64
	GridVoltage   float64
	GridCurrent   float64
	GridPowerWatt float64

	GridFrequency        *float64
	TotalEnergyKWh       *float64
	TotalExportedKWh     *float64
	TotalImportedKWh     *float64
	HouseConsumptionWatt *float64
}

type InverterReader interface {
	// GetDeviceInfo reads the static device identity (model, serial, firmware).
	GetDeviceInfo() (*DeviceInfo, error)
	// GetRuntimeData performs one request round trip and returns a complete
	// reading or an error. No retries; retry policy belongs to the caller.
	GetRuntimeData() (*RuntimeData, error)
}
