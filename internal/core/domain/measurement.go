package domain

import (
	"fmt"
	"strings"
)

// Role selects the Venus D-Bus service class a measurement set belongs to.
type Role string

const (
	RolePVInverter Role = "pvinverter"
	RoleGrid       Role = "grid"
)

// Venus pvinverter status codes.
const (
	StatusCodeRunning = 7
	StatusCodeStandby = 8
)

var Phases = []string{"L1", "L2", "L3"}

// Common measurement paths of the pvinverter and grid path namespaces.
const (
	PathAcVoltage       = "/Ac/Voltage"
	PathAcCurrent       = "/Ac/Current"
	PathAcPower         = "/Ac/Power"
	PathAcEnergyForward = "/Ac/Energy/Forward"
	PathAcEnergyReverse = "/Ac/Energy/Reverse"
	PathStatusCode      = "/StatusCode"
)

// PhasePath builds a per-phase path, e.g. PhasePath("L1", PathAcVoltage)
// => "/Ac/L1/Voltage".
func PhasePath(phase string, path string) string {
	return "/Ac/" + phase + strings.TrimPrefix(path, "/Ac")
}

type Unit uint8

const (
	UnitNone Unit = iota
	UnitVolt
	UnitAmpere
	UnitWatt
	UnitKWh
)

// Format renders the on-bus display text of a value, matching the text
// callbacks Venus consumers expect on BusItem.GetText.
func (u Unit) Format(value float64) string {
	switch u {
	case UnitVolt:
		return fmt.Sprintf("%.1fV", value)
	case UnitAmpere:
		return fmt.Sprintf("%.1fA", value)
	case UnitWatt:
		return fmt.Sprintf("%.1fW", value)
	case UnitKWh:
		return fmt.Sprintf("%.2fkWh", value)
	}
	return fmt.Sprintf("%g", value)
}

type Measurement struct {
	Value float64
	Unit  Unit
}

func (m Measurement) Text() string {
	return m.Unit.Format(m.Value)
}

func Volts(v float64) Measurement   { return Measurement{Value: v, Unit: UnitVolt} }
func Amperes(v float64) Measurement { return Measurement{Value: v, Unit: UnitAmpere} }
func Watts(v float64) Measurement   { return Measurement{Value: v, Unit: UnitWatt} }
func KWh(v float64) Measurement     { return Measurement{Value: v, Unit: UnitKWh} }
func Code(v int) Measurement        { return Measurement{Value: float64(v), Unit: UnitNone} }

// MeasurementSet maps bus paths of one service to their next values.
type MeasurementSet map[string]Measurement

// NormalizedMeasurements is one cycle's complete output: the pvinverter set,
// and the grid meter set when a smart meter is configured (nil otherwise).
type NormalizedMeasurements struct {
	Inverter MeasurementSet
	Meter    MeasurementSet
}

// InverterMeasurementPaths is the fixed path set of the pvinverter role.
// Every path must be present in each published set; consumers break on
// missing paths, so absent readings are zero-filled rather than omitted.
func InverterMeasurementPaths() []string {
	paths := []string{
		PathAcVoltage,
		PathAcCurrent,
		PathAcPower,
		PathAcEnergyForward,
		PathStatusCode,
	}
	for _, phase := range Phases {
		paths = append(paths,
			PhasePath(phase, PathAcVoltage),
			PhasePath(phase, PathAcCurrent),
			PhasePath(phase, PathAcPower),
			PhasePath(phase, PathAcEnergyForward),
		)
	}
	return paths
}

// GridMeasurementPaths is the fixed path set of the grid meter role.
func GridMeasurementPaths() []string {
	paths := []string{
		PathAcVoltage,
		PathAcCurrent,
		PathAcPower,
		PathAcEnergyForward,
		PathAcEnergyReverse,
	}
	for _, phase := range Phases {
		paths = append(paths,
			PhasePath(phase, PathAcVoltage),
			PhasePath(phase, PathAcCurrent),
			PhasePath(phase, PathAcPower),
			PhasePath(phase, PathAcEnergyForward),
			PhasePath(phase, PathAcEnergyReverse),
		)
	}
	return paths
}
