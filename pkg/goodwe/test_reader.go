package goodwe

import "fmt"

// Test readers used by actor and scheduler tests.

type TestInverterReader struct {
}

func (r TestInverterReader) GetDeviceInfo() (*DeviceInfo, error) {
	return &DeviceInfo{
		ModelName:       "GW5000-EM",
		SerialNumber:    "95048EMU000W0000",
		FirmwareVersion: "04041-08-S0",
	}, nil
}

func (r TestInverterReader) GetRuntimeData() (*RuntimeData, error) {
	freq := 50.02
	eTotal := 1234.5
	eExp := 1000.1
	eImp := 250.8
	house := 430.0
	return &RuntimeData{
		PVPowerWatt:          1520,
		GridVoltage:          233.1,
		GridCurrent:          2.2,
		GridPowerWatt:        512,
		GridFrequency:        &freq,
		TotalEnergyKWh:       &eTotal,
		TotalExportedKWh:     &eExp,
		TotalImportedKWh:     &eImp,
		HouseConsumptionWatt: &house,
	}, nil
}

// UnreachableInverterReader fails every call, as a powered-off device would.
type UnreachableInverterReader struct {
}

func (r UnreachableInverterReader) GetDeviceInfo() (*DeviceInfo, error) {
	return nil, fmt.Errorf("%w: connection refused", ErrDeviceUnreachable)
}

func (r UnreachableInverterReader) GetRuntimeData() (*RuntimeData, error) {
	return nil, fmt.Errorf("%w: connection refused", ErrDeviceUnreachable)
}

func CreateTestInverterReader() InverterReader {
	return TestInverterReader{}
}

func CreateUnreachableInverterReader() InverterReader {
	return UnreachableInverterReader{}
}

var (
	_ InverterReader = TestInverterReader{}
	_ InverterReader = UnreachableInverterReader{}
)
