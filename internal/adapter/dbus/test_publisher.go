package dbus

import (
	"sync"

	"github.com/venus-addons/goodwe2venus/internal/core/domain"
	"github.com/venus-addons/goodwe2venus/internal/core/port"
)

// TestMeasurementPublisher records calls instead of touching a bus.
type TestMeasurementPublisher struct {
	mu          sync.Mutex
	RegisterErr error
	PublishErr  error

	registered bool
	closed     bool
	published  []domain.NormalizedMeasurements
}

func (p *TestMeasurementPublisher) Register() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.RegisterErr != nil {
		return p.RegisterErr
	}
	p.registered = true
	return nil
}

func (p *TestMeasurementPublisher) Publish(measurements domain.NormalizedMeasurements) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.PublishErr != nil {
		return p.PublishErr
	}
	p.published = append(p.published, measurements)
	return nil
}

func (p *TestMeasurementPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *TestMeasurementPublisher) Registered() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.registered
}

func (p *TestMeasurementPublisher) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *TestMeasurementPublisher) Published() []domain.NormalizedMeasurements {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.NormalizedMeasurements, len(p.published))
	copy(out, p.published)
	return out
}

var _ port.MeasurementPublisher = (*TestMeasurementPublisher)(nil)
