package goodwe

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

type HTTPReader struct {
	baseURL  string
	username string
	password string
	client   *http.Client
	logger   *zap.Logger
}

// CreateHTTPReader builds a reader for the inverter's on-premise HTTP
// endpoint. The timeout bounds the whole request round trip; without it a
// hung device would stall the caller's poll loop indefinitely.
func CreateHTTPReader(host string, username, password string, timeout time.Duration, logger *zap.Logger) (InverterReader, error) {
	if host == "" {
		return nil, fmt.Errorf("%w: empty host", ErrDeviceUnreachable)
	}
	return &HTTPReader{
		baseURL:  fmt.Sprintf("http://%s", host),
		username: username,
		password: password,
		client: &http.Client{
			Timeout: timeout,
		},
		logger: logger.With(zap.String("target", "goodwe")).With(zap.String("host", host)),
	}, nil
}

type deviceInfoPayload struct {
	ModelName       *string `json:"model_name"`
	SerialNumber    *string `json:"serial_number"`
	FirmwareVersion *string `json:"firmware"`
}

type runtimePayload struct {
	PVPower          *float64 `json:"ppv"`
	GridVoltage      *float64 `json:"vgrid"`
	GridCurrent      *float64 `json:"igrid"`
	GridFrequency    *float64 `json:"fgrid"`
	GridPower        *float64 `json:"pgrid"`
	TotalEnergy      *float64 `json:"e_total"`
	TotalExported    *float64 `json:"e_total_exp"`
	TotalImported    *float64 `json:"e_total_imp"`
	HouseConsumption *float64 `json:"house_consumption"`
}

func (r *HTTPReader) GetDeviceInfo() (*DeviceInfo, error) {
	var payload deviceInfoPayload
	if err := r.get("/api/device_info", &payload); err != nil {
		return nil, err
	}
	if payload.ModelName == nil || payload.SerialNumber == nil {
		return nil, fmt.Errorf("%w: device info response missing model or serial", ErrProtocol)
	}
	info := &DeviceInfo{
		ModelName:    *payload.ModelName,
		SerialNumber: *payload.SerialNumber,
	}
	if payload.FirmwareVersion != nil {
		info.FirmwareVersion = *payload.FirmwareVersion
	}
	return info, nil
}

func (r *HTTPReader) GetRuntimeData() (*RuntimeData, error) {
	var payload runtimePayload
	if err := r.get("/api/runtime_data", &payload); err != nil {
		return nil, err
	}
	// a reading missing any required field is a total failure,
	// partial readings must never reach the caller
	if payload.GridVoltage == nil || payload.GridCurrent == nil ||
		payload.GridPower == nil || payload.PVPower == nil {
		return nil, fmt.Errorf("%w: runtime data response missing required fields", ErrProtocol)
	}
	return &RuntimeData{
		PVPowerWatt:          *payload.PVPower,
		GridVoltage:          *payload.GridVoltage,
		GridCurrent:          *payload.GridCurrent,
		GridPowerWatt:        *payload.GridPower,
		GridFrequency:        payload.GridFrequency,
		TotalEnergyKWh:       payload.TotalEnergy,
		TotalExportedKWh:     payload.TotalExported,
		TotalImportedKWh:     payload.TotalImported,
		HouseConsumptionWatt: payload.HouseConsumption,
	}, nil
}

func (r *HTTPReader) get(path string, out any) error {
	req, err := http.NewRequest(http.MethodGet, r.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrProtocol, err)
	}
	if r.username != "" {
		req.SetBasicAuth(r.username, r.password)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Debug("request failed", zap.String("path", path), zap.Error(err))
		return fmt.Errorf("%w: %s", ErrDeviceUnreachable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: unexpected status %d", ErrProtocol, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s", ErrProtocol, err)
	}
	return nil
}

// ensure interface compliance
var _ InverterReader = (*HTTPReader)(nil)
