package dbus

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/venus-addons/goodwe2venus/internal/core/domain"

	godbus "github.com/godbus/dbus/v5"
)

const (
	busItemInterface = "com.victronenergy.BusItem"

	setValueOK       = 0
	setValueRejected = -1
)

// busConn is the slice of godbus.Conn the service layer uses. Tests plug in
// a recording fake here.
type busConn interface {
	Export(v any, path godbus.ObjectPath, iface string) error
	RequestName(name string, flags godbus.RequestNameFlags) (godbus.RequestNameReply, error)
	Emit(path godbus.ObjectPath, name string, values ...any) error
	Close() error
}

// busItem backs one exported object path. GetValue/GetText/SetValue are
// called by the bus from its own goroutine, set by the publisher, hence the
// lock.
type busItem struct {
	mu    sync.RWMutex
	value any
	text  string
}

func (i *busItem) GetValue() (godbus.Variant, *godbus.Error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return godbus.MakeVariant(i.value), nil
}

func (i *busItem) GetText() (string, *godbus.Error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.text, nil
}

// SetValue refuses external writes. The device is the only source of values
// on this service.
func (i *busItem) SetValue(value godbus.Variant) (int32, *godbus.Error) {
	return setValueRejected, nil
}

func (i *busItem) set(value any, text string) {
	i.mu.Lock()
	i.value = value
	i.text = text
	i.mu.Unlock()
}

// ServiceName builds the well-known bus name of one role, keeping the
// http_idNN scheme the Venus console groups devices by.
func ServiceName(role domain.Role, deviceInstance int) string {
	return fmt.Sprintf("com.victronenergy.%s.http_id%02d", role, deviceInstance)
}

// VenusService is one claimed bus name plus its exported BusItem tree.
type VenusService struct {
	conn        busConn
	name        string
	items       map[string]*busItem
	updateIndex int
}

func newVenusService(conn busConn, role domain.Role, deviceInstance int) *VenusService {
	return &VenusService{
		conn:  conn,
		name:  ServiceName(role, deviceInstance),
		items: make(map[string]*busItem),
	}
}

func (s *VenusService) addPath(path string, value any, text string) error {
	item := &busItem{value: value, text: text}
	if err := s.conn.Export(item, godbus.ObjectPath(path), busItemInterface); err != nil {
		return fmt.Errorf("export %s on %s: %w", path, s.name, err)
	}
	s.items[path] = item
	return nil
}

func (s *VenusService) claimName() error {
	reply, err := s.conn.RequestName(s.name, godbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("request name %s: %w", s.name, err)
	}
	if reply != godbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("request name %s: already taken", s.name)
	}
	return nil
}

func (s *VenusService) setPath(path string, value any, text string) error {
	item, ok := s.items[path]
	if !ok {
		return fmt.Errorf("unknown path %s on %s", path, s.name)
	}
	item.set(value, text)
	return s.conn.Emit(godbus.ObjectPath(path), busItemInterface+".PropertiesChanged",
		map[string]godbus.Variant{
			"Value": godbus.MakeVariant(value),
			"Text":  godbus.MakeVariant(text),
		})
}

// bumpUpdateIndex advances /UpdateIndex so consumers can tell a fresh cycle
// from a stalled one. Wraps at 255.
func (s *VenusService) bumpUpdateIndex() error {
	s.updateIndex = (s.updateIndex + 1) % 256
	return s.setPath("/UpdateIndex", int32(s.updateIndex), strconv.Itoa(s.updateIndex))
}
