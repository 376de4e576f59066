package service

import (
	"errors"
	"strings"

	"github.com/venus-addons/goodwe2venus/internal/config"
	"github.com/venus-addons/goodwe2venus/internal/core/domain"
	"github.com/venus-addons/goodwe2venus/pkg/goodwe"
)

// ErrIncompatibleReading signals a reading that is structurally unusable.
// The reader contract rules this out for readings it returns, so hitting it
// points at a programming error, not at device behavior.
var ErrIncompatibleReading = errors.New("normalize: incompatible runtime data")

// NormalizeMeasurements converts one raw inverter reading into the complete
// measurement sets of the configured role(s). Pure and deterministic: the
// same (raw, config) pair always yields the same sets.
//
// Sign conventions follow the Venus bus contract: on the pvinverter service
// positive power is generation/export; on the grid service positive power is
// import from the grid. The device reports on-grid power positive when
// exporting, hence the negation on the meter set.
//
// Optional raw fields normalize to 0 instead of being omitted, keeping every
// required path present. The phases other than the configured one are
// published as zero so consumers see a complete, single-phase installation.
func NormalizeMeasurements(raw *goodwe.RuntimeData, cfg *config.Config) (domain.NormalizedMeasurements, error) {
	if raw == nil {
		return domain.NormalizedMeasurements{}, ErrIncompatibleReading
	}

	inverter := zeroedSet(domain.InverterMeasurementPaths())

	phase := cfg.Phase
	inverter[domain.PhasePath(phase, domain.PathAcVoltage)] = domain.Volts(raw.GridVoltage)
	inverter[domain.PhasePath(phase, domain.PathAcCurrent)] = domain.Amperes(raw.GridCurrent)
	inverter[domain.PhasePath(phase, domain.PathAcPower)] = domain.Watts(raw.PVPowerWatt)
	inverter[domain.PhasePath(phase, domain.PathAcEnergyForward)] = domain.KWh(valueOrZero(raw.TotalEnergyKWh))

	inverter[domain.PathAcVoltage] = domain.Volts(raw.GridVoltage)
	inverter[domain.PathAcCurrent] = domain.Amperes(raw.GridCurrent)
	inverter[domain.PathAcPower] = domain.Watts(raw.PVPowerWatt)
	inverter[domain.PathAcEnergyForward] = domain.KWh(valueOrZero(raw.TotalEnergyKWh))

	status := domain.StatusCodeStandby
	if raw.PVPowerWatt > 0 {
		status = domain.StatusCodeRunning
	}
	inverter[domain.PathStatusCode] = domain.Code(status)

	normalized := domain.NormalizedMeasurements{
		Inverter: inverter,
	}
	if cfg.OnPremise.HasMeter {
		normalized.Meter = meterSet(raw, phase)
	}
	return normalized, nil
}

func meterSet(raw *goodwe.RuntimeData, phase string) domain.MeasurementSet {
	meter := zeroedSet(domain.GridMeasurementPaths())

	gridPower := -raw.GridPowerWatt
	bought := valueOrZero(raw.TotalImportedKWh)
	sold := valueOrZero(raw.TotalExportedKWh)

	meter[domain.PhasePath(phase, domain.PathAcVoltage)] = domain.Volts(raw.GridVoltage)
	meter[domain.PhasePath(phase, domain.PathAcCurrent)] = domain.Amperes(raw.GridCurrent)
	meter[domain.PhasePath(phase, domain.PathAcPower)] = domain.Watts(gridPower)
	meter[domain.PhasePath(phase, domain.PathAcEnergyForward)] = domain.KWh(bought)
	meter[domain.PhasePath(phase, domain.PathAcEnergyReverse)] = domain.KWh(sold)

	meter[domain.PathAcVoltage] = domain.Volts(raw.GridVoltage)
	meter[domain.PathAcCurrent] = domain.Amperes(raw.GridCurrent)
	meter[domain.PathAcPower] = domain.Watts(gridPower)
	meter[domain.PathAcEnergyForward] = domain.KWh(bought)
	meter[domain.PathAcEnergyReverse] = domain.KWh(sold)

	return meter
}

func zeroedSet(paths []string) domain.MeasurementSet {
	set := make(domain.MeasurementSet, len(paths))
	for _, path := range paths {
		set[path] = domain.Measurement{Unit: pathUnit(path)}
	}
	return set
}

func valueOrZero(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func pathUnit(path string) domain.Unit {
	switch {
	case strings.HasSuffix(path, "/Voltage"):
		return domain.UnitVolt
	case strings.HasSuffix(path, "/Current"):
		return domain.UnitAmpere
	case strings.HasSuffix(path, "/Power"):
		return domain.UnitWatt
	case strings.Contains(path, "/Energy/"):
		return domain.UnitKWh
	}
	return domain.UnitNone
}
