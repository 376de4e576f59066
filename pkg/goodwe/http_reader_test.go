package goodwe

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func testReaderFor(t *testing.T, srv *httptest.Server) InverterReader {
	t.Helper()
	host := strings.TrimPrefix(srv.URL, "http://")
	reader, err := CreateHTTPReader(host, "", "", 1*time.Second, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	return reader
}

func TestGetRuntimeData(t *testing.T) {

	assert := assert.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal("/api/runtime_data", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ppv": 1520.0, "vgrid": 233.1, "igrid": 2.2, "fgrid": 50.02,
			"pgrid": 512.0, "e_total": 1234.5, "e_total_exp": 1000.1, "e_total_imp": 250.8}`))
	}))
	defer srv.Close()

	data, err := testReaderFor(t, srv).GetRuntimeData()
	assert.NoError(err)
	assert.Equal(1520.0, data.PVPowerWatt)
	assert.Equal(233.1, data.GridVoltage)
	assert.Equal(2.2, data.GridCurrent)
	assert.Equal(512.0, data.GridPowerWatt)
	assert.NotNil(data.TotalEnergyKWh)
	assert.Equal(1234.5, *data.TotalEnergyKWh)
	assert.Nil(data.HouseConsumptionWatt)
}

func TestGetRuntimeDataMissingRequiredField(t *testing.T) {

	assert := assert.New(t)

	// no pgrid: the whole reading must be rejected
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ppv": 1520.0, "vgrid": 233.1, "igrid": 2.2}`))
	}))
	defer srv.Close()

	data, err := testReaderFor(t, srv).GetRuntimeData()
	assert.Nil(data)
	assert.True(errors.Is(err, ErrProtocol))
}

func TestGetRuntimeDataMalformedResponse(t *testing.T) {

	assert := assert.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>not json</html>`))
	}))
	defer srv.Close()

	_, err := testReaderFor(t, srv).GetRuntimeData()
	assert.True(errors.Is(err, ErrProtocol))
}

func TestGetRuntimeDataBadStatus(t *testing.T) {

	assert := assert.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := testReaderFor(t, srv).GetRuntimeData()
	assert.True(errors.Is(err, ErrProtocol))
}

func TestGetRuntimeDataUnreachable(t *testing.T) {

	assert := assert.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	_, err := testReaderFor(t, srv).GetRuntimeData()
	assert.True(errors.Is(err, ErrDeviceUnreachable))
}

func TestGetDeviceInfo(t *testing.T) {

	assert := assert.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal("/api/device_info", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(ok)
		assert.Equal("admin", user)
		assert.Equal("secret", pass)
		_, _ = w.Write([]byte(`{"model_name": "GW5000-EM", "serial_number": "95048EMU000W0000", "firmware": "04041-08-S0"}`))
	}))
	defer srv.Close()

	host := strings.TrimPrefix(srv.URL, "http://")
	reader, err := CreateHTTPReader(host, "admin", "secret", 1*time.Second, zap.NewNop())
	assert.NoError(err)

	info, err := reader.GetDeviceInfo()
	assert.NoError(err)
	assert.Equal("GW5000-EM", info.ModelName)
	assert.Equal("95048EMU000W0000", info.SerialNumber)
	assert.Equal("04041-08-S0", info.FirmwareVersion)
}
