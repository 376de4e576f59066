package port

import (
	"github.com/venus-addons/goodwe2venus/internal/core/domain"
)

// MeasurementPublisher owns the bus-facing side of the bridge.
//
// Register is called exactly once before the poll loop starts and makes the
// service visible on the bus with all static metadata and zeroed
// measurement paths. Publish writes one normalized set; paths not present
// in the set are left untouched. There is no re-registration: a registered
// service keeps its identity until Close.
type MeasurementPublisher interface {
	Register() error
	Publish(measurements domain.NormalizedMeasurements) error
	Close() error
}
