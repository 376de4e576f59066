package events

import (
	"sort"
	"strings"

	. "github.com/venus-addons/goodwe2venus/internal/core/domain"
)

// MeasurementsToUpdateEvents flattens one publish cycle into sensor update
// events for the telemetry mirror. Paths are emitted in sorted order.
func MeasurementsToUpdateEvents(m NormalizedMeasurements) []any {
	var events []any
	events = append(events, setToUpdateEvents(RolePVInverter, m.Inverter)...)
	if m.Meter != nil {
		events = append(events, setToUpdateEvents(RoleGrid, m.Meter)...)
	}
	return events
}

func setToUpdateEvents(role Role, set MeasurementSet) []any {
	paths := make([]string, 0, len(set))
	for path := range set {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	events := make([]any, 0, len(paths))
	for _, path := range paths {
		m := set[path]
		events = append(events, FloatSensorUpdateEvent{
			SensorUpdateEventMixIn: SensorUpdateEventMixIn{
				Id: SensorId(role, path),
			},
			Value:    m.Value,
			Decimals: unitDecimals(m.Unit),
		})
	}
	return events
}

// SensorId turns a role and bus path into a mirror sensor id,
// e.g. ("pvinverter", "/Ac/L1/Power") => "pvinverter_ac_l1_power".
func SensorId(role Role, path string) string {
	return string(role) + strings.ToLower(strings.ReplaceAll(path, "/", "_"))
}

func unitDecimals(unit Unit) uint {
	switch unit {
	case UnitVolt, UnitAmpere, UnitWatt:
		return 1
	case UnitKWh:
		return 2
	}
	return 0
}
