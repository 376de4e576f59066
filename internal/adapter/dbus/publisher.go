package dbus

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/venus-addons/goodwe2venus/internal/config"
	"github.com/venus-addons/goodwe2venus/internal/core/domain"
	"github.com/venus-addons/goodwe2venus/internal/core/port"

	"github.com/carlmjohnson/versioninfo"
	godbus "github.com/godbus/dbus/v5"
	"go.uber.org/zap"
)

const processName = "goodwe2venus"

var (
	ErrAlreadyRegistered = errors.New("dbus: publisher already registered")
	ErrNotRegistered     = errors.New("dbus: publisher not registered")
	ErrClosed            = errors.New("dbus: publisher closed")
)

type publisherState uint8

const (
	stateUnregistered publisherState = iota
	stateRegistered
	stateClosed
)

// Publisher exposes one pvinverter service, plus one grid service when a
// smart meter is configured, on the Venus D-Bus. Implements
// port.MeasurementPublisher.
//
// Each service gets its own bus connection. Object paths are scoped to a
// connection, and both services export the same /Ac tree, so sharing a
// connection would make one service's items shadow the other's.
type Publisher struct {
	cfg    *config.Config
	logger *zap.Logger

	mu       sync.Mutex
	state    publisherState
	inverter *VenusService
	meter    *VenusService

	connect func() (busConn, error)
}

func NewPublisher(cfg *config.Config, logger *zap.Logger) *Publisher {
	return &Publisher{
		cfg:     cfg,
		logger:  logger.With(zap.String("adapter", "dbus")),
		connect: connectBus,
	}
}

// Venus runs services on the system bus. The session bus is only used when
// the environment points at one, which is how local development against a
// dbus-daemon works.
func connectBus() (busConn, error) {
	if os.Getenv("DBUS_SESSION_BUS_ADDRESS") != "" {
		return godbus.ConnectSessionBus()
	}
	return godbus.ConnectSystemBus()
}

func (p *Publisher) Register() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case stateRegistered:
		return ErrAlreadyRegistered
	case stateClosed:
		return ErrClosed
	}

	inverter, err := p.registerRole(domain.RolePVInverter)
	if err != nil {
		return err
	}

	var meter *VenusService
	if p.cfg.OnPremise.HasMeter {
		meter, err = p.registerRole(domain.RoleGrid)
		if err != nil {
			inverter.conn.Close()
			return err
		}
	}

	p.inverter = inverter
	p.meter = meter
	p.state = stateRegistered

	p.logger.Info("registered on bus",
		zap.String("service", inverter.name),
		zap.Bool("grid_meter", meter != nil))
	return nil
}

func (p *Publisher) registerRole(role domain.Role) (*VenusService, error) {
	conn, err := p.connect()
	if err != nil {
		return nil, fmt.Errorf("dbus: connect: %w", err)
	}
	service := newVenusService(conn, role, p.cfg.DeviceInstance)
	if err := registerService(service, role, p.cfg); err != nil {
		conn.Close()
		return nil, err
	}
	return service, nil
}

func (p *Publisher) Publish(measurements domain.NormalizedMeasurements) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case stateUnregistered:
		return ErrNotRegistered
	case stateClosed:
		return ErrClosed
	}

	if err := publishSet(p.inverter, measurements.Inverter); err != nil {
		return err
	}
	if p.meter != nil && measurements.Meter != nil {
		if err := publishSet(p.meter, measurements.Meter); err != nil {
			return err
		}
	}
	return nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == stateClosed {
		return nil
	}
	p.state = stateClosed

	var err error
	if p.inverter != nil {
		err = p.inverter.conn.Close()
	}
	if p.meter != nil {
		if cerr := p.meter.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func publishSet(service *VenusService, set domain.MeasurementSet) error {
	for path, m := range set {
		value := any(m.Value)
		if path == domain.PathStatusCode {
			value = int32(m.Value)
		}
		if err := service.setPath(path, value, m.Text()); err != nil {
			return err
		}
	}
	return service.bumpUpdateIndex()
}

func registerService(service *VenusService, role domain.Role, cfg *config.Config) error {
	for _, sp := range registrationRecord(role, cfg) {
		if err := service.addPath(sp.path, sp.value, sp.text); err != nil {
			return err
		}
	}
	var paths []string
	if role == domain.RoleGrid {
		paths = domain.GridMeasurementPaths()
	} else {
		paths = domain.InverterMeasurementPaths()
	}
	for _, path := range paths {
		if _, exists := service.items[path]; exists {
			continue
		}
		if err := service.addPath(path, float64(0), ""); err != nil {
			return err
		}
	}
	return service.claimName()
}

type staticPath struct {
	path  string
	value any
	text  string
}

// registrationRecord is the static BusItem tree of one role, following the
// ccgx dbus-api management and mandatory path set.
func registrationRecord(role domain.Role, cfg *config.Config) []staticPath {
	productName := "GoodWe EM"
	customName := cfg.CustomName
	if role == domain.RoleGrid {
		productName = cfg.SmartMeter.ProductName
		customName = cfg.SmartMeter.ProductName
	}
	version := versioninfo.Short()

	record := []staticPath{
		{"/Mgmt/ProcessName", processName, processName},
		{"/Mgmt/ProcessVersion", version, version},
		{"/Mgmt/Connection", connectionText(cfg), connectionText(cfg)},
		{"/DeviceInstance", int32(cfg.DeviceInstance), fmt.Sprintf("%d", cfg.DeviceInstance)},
		{"/ProductId", int32(0xFFFF), "65535"},
		{"/ProductName", productName, productName},
		{"/CustomName", customName, customName},
		{"/FirmwareVersion", version, version},
		{"/HardwareVersion", int32(0), "0"},
		{"/Connected", int32(1), "1"},
		{"/Serial", customName, customName},
		{"/ErrorCode", int32(0), "0"},
		{"/Position", int32(cfg.OnPremise.Position), fmt.Sprintf("%d", cfg.OnPremise.Position)},
		{"/UpdateIndex", int32(0), "0"},
	}
	if role == domain.RolePVInverter {
		record = append(record,
			staticPath{"/MaxPower", int32(cfg.OnPremise.MaxPower), fmt.Sprintf("%dW", cfg.OnPremise.MaxPower)},
			staticPath{"/StatusCode", int32(0), "0"},
		)
	}
	return record
}

func connectionText(cfg *config.Config) string {
	return "GoodWe EM HTTP " + cfg.OnPremise.Host
}

var _ port.MeasurementPublisher = (*Publisher)(nil)
