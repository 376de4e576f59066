package dbus

import (
	"sync"
	"testing"

	"github.com/venus-addons/goodwe2venus/internal/core/domain"
	"github.com/venus-addons/goodwe2venus/internal/util"

	godbus "github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type emitRecord struct {
	path   godbus.ObjectPath
	name   string
	values []any
}

type fakeConn struct {
	mu        sync.Mutex
	exported  map[godbus.ObjectPath]any
	names     []string
	emits     []emitRecord
	nameReply godbus.RequestNameReply
	closed    bool
}

func (c *fakeConn) Export(v any, path godbus.ObjectPath, iface string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.exported[path] = v
	return nil
}

func (c *fakeConn) RequestName(name string, flags godbus.RequestNameFlags) (godbus.RequestNameReply, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.names = append(c.names, name)
	return c.nameReply, nil
}

func (c *fakeConn) Emit(path godbus.ObjectPath, name string, values ...any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.emits = append(c.emits, emitRecord{path: path, name: name, values: values})
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// connFactory hands a fresh fake connection to each registered role, like
// the real bus does.
type connFactory struct {
	conns     []*fakeConn
	nameReply godbus.RequestNameReply
}

func newConnFactory() *connFactory {
	return &connFactory{nameReply: godbus.RequestNameReplyPrimaryOwner}
}

func (f *connFactory) connect() (busConn, error) {
	conn := &fakeConn{
		exported:  make(map[godbus.ObjectPath]any),
		nameReply: f.nameReply,
	}
	f.conns = append(f.conns, conn)
	return conn, nil
}

func testPublisher(factory *connFactory) *Publisher {
	cfg := util.LoadTestConfig()
	pub := NewPublisher(&cfg, zap.NewNop())
	pub.connect = factory.connect
	return pub
}

func TestServiceName(t *testing.T) {

	assert := assert.New(t)

	assert.Equal("com.victronenergy.pvinverter.http_id40", ServiceName(domain.RolePVInverter, 40))
	assert.Equal("com.victronenergy.grid.http_id05", ServiceName(domain.RoleGrid, 5))
}

func TestRegisterClaimsBothServices(t *testing.T) {

	assert := assert.New(t)

	factory := newConnFactory()
	pub := testPublisher(factory)

	assert.NoError(pub.Register())
	assert.Len(factory.conns, 2)
	assert.Equal([]string{"com.victronenergy.pvinverter.http_id40"}, factory.conns[0].names)
	assert.Equal([]string{"com.victronenergy.grid.http_id40"}, factory.conns[1].names)

	// every measurement path is exported before the name is claimed
	for _, path := range domain.InverterMeasurementPaths() {
		_, ok := factory.conns[0].exported[godbus.ObjectPath(path)]
		assert.True(ok, "missing exported path %s", path)
	}
	for _, path := range domain.GridMeasurementPaths() {
		_, ok := factory.conns[1].exported[godbus.ObjectPath(path)]
		assert.True(ok, "missing exported path %s", path)
	}
	_, ok := factory.conns[0].exported["/Mgmt/ProcessName"]
	assert.True(ok)
	_, ok = factory.conns[0].exported["/UpdateIndex"]
	assert.True(ok)
}

func TestRegisterInverterOnlyWithoutMeter(t *testing.T) {

	assert := assert.New(t)

	factory := newConnFactory()
	cfg := util.LoadTestConfig()
	cfg.OnPremise.HasMeter = false
	pub := NewPublisher(&cfg, zap.NewNop())
	pub.connect = factory.connect

	assert.NoError(pub.Register())
	assert.Len(factory.conns, 1)
	assert.Equal([]string{"com.victronenergy.pvinverter.http_id40"}, factory.conns[0].names)
}

func TestRegisterNameTaken(t *testing.T) {

	assert := assert.New(t)

	factory := newConnFactory()
	factory.nameReply = godbus.RequestNameReplyExists
	pub := testPublisher(factory)

	assert.Error(pub.Register())
	assert.True(factory.conns[0].closed)
}

func TestRegisterTwice(t *testing.T) {

	assert := assert.New(t)

	pub := testPublisher(newConnFactory())
	assert.NoError(pub.Register())
	assert.ErrorIs(pub.Register(), ErrAlreadyRegistered)
}

func TestPublishBeforeRegister(t *testing.T) {

	assert := assert.New(t)

	pub := testPublisher(newConnFactory())
	err := pub.Publish(domain.NormalizedMeasurements{})
	assert.ErrorIs(err, ErrNotRegistered)
}

func TestPublishEmitsPropertiesChanged(t *testing.T) {

	assert := assert.New(t)

	factory := newConnFactory()
	pub := testPublisher(factory)
	assert.NoError(pub.Register())

	set := domain.MeasurementSet{
		"/Ac/Power": domain.Watts(512),
	}
	assert.NoError(pub.Publish(domain.NormalizedMeasurements{Inverter: set}))

	conn := factory.conns[0]
	var powerEmit *emitRecord
	for i := range conn.emits {
		if conn.emits[i].path == "/Ac/Power" {
			powerEmit = &conn.emits[i]
		}
	}
	assert.NotNil(powerEmit)
	assert.Equal("com.victronenergy.BusItem.PropertiesChanged", powerEmit.name)
	props := powerEmit.values[0].(map[string]godbus.Variant)
	assert.Equal(512.0, props["Value"].Value())
	assert.Equal("512.0W", props["Text"].Value())

	// the stored item serves the same value over GetValue/GetText
	item := conn.exported["/Ac/Power"].(*busItem)
	value, derr := item.GetValue()
	assert.Nil(derr)
	assert.Equal(512.0, value.Value())
	text, derr := item.GetText()
	assert.Nil(derr)
	assert.Equal("512.0W", text)
}

func TestPublishBumpsUpdateIndex(t *testing.T) {

	assert := assert.New(t)

	factory := newConnFactory()
	pub := testPublisher(factory)
	assert.NoError(pub.Register())

	set := domain.MeasurementSet{"/Ac/Power": domain.Watts(100)}
	assert.NoError(pub.Publish(domain.NormalizedMeasurements{Inverter: set}))
	assert.NoError(pub.Publish(domain.NormalizedMeasurements{Inverter: set}))

	item := factory.conns[0].exported["/UpdateIndex"].(*busItem)
	value, _ := item.GetValue()
	assert.Equal(int32(2), value.Value())
}

func TestUpdateIndexWraps(t *testing.T) {

	assert := assert.New(t)

	factory := newConnFactory()
	conn, _ := factory.connect()
	service := newVenusService(conn, domain.RolePVInverter, 40)
	assert.NoError(service.addPath("/UpdateIndex", int32(0), "0"))

	service.updateIndex = 255
	assert.NoError(service.bumpUpdateIndex())
	assert.Equal(0, service.updateIndex)
}

func TestSetValueRejected(t *testing.T) {

	assert := assert.New(t)

	item := &busItem{value: float64(100), text: "100.0W"}
	code, derr := item.SetValue(godbus.MakeVariant(0.0))
	assert.Nil(derr)
	assert.Equal(int32(setValueRejected), code)

	// the refused write leaves the value untouched
	value, _ := item.GetValue()
	assert.Equal(100.0, value.Value())
}

func TestPublishAfterClose(t *testing.T) {

	assert := assert.New(t)

	factory := newConnFactory()
	pub := testPublisher(factory)
	assert.NoError(pub.Register())
	assert.NoError(pub.Close())
	assert.True(factory.conns[0].closed)
	assert.True(factory.conns[1].closed)

	err := pub.Publish(domain.NormalizedMeasurements{})
	assert.ErrorIs(err, ErrClosed)
	assert.ErrorIs(pub.Register(), ErrClosed)
}

func TestRegistrationRecord(t *testing.T) {

	assert := assert.New(t)

	cfg := util.LoadTestConfig()

	byPath := func(record []staticPath) map[string]staticPath {
		out := make(map[string]staticPath)
		for _, sp := range record {
			out[sp.path] = sp
		}
		return out
	}

	inverter := byPath(registrationRecord(domain.RolePVInverter, &cfg))
	assert.Equal(int32(0xFFFF), inverter["/ProductId"].value)
	assert.Equal("GoodWe EM", inverter["/ProductName"].value)
	assert.Equal(cfg.CustomName, inverter["/CustomName"].value)
	assert.Equal(int32(40), inverter["/DeviceInstance"].value)
	assert.Equal(int32(10000), inverter["/MaxPower"].value)
	assert.Equal(int32(1), inverter["/Position"].value)

	grid := byPath(registrationRecord(domain.RoleGrid, &cfg))
	assert.Equal(cfg.SmartMeter.ProductName, grid["/ProductName"].value)
	assert.Equal(cfg.SmartMeter.ProductName, grid["/CustomName"].value)
	_, hasMaxPower := grid["/MaxPower"]
	assert.False(hasMaxPower)
}
