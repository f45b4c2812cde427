package session

// Event is one decoded protocol event. Each concrete type carries only
// the fields of its message; the session dispatches on the type.
type Event interface {
	eventName() string
}

// Global describes a global object announced by the compositor.
type Global struct {
	Name      uint32 `json:"name" yaml:"name"`
	Interface string `json:"interface" yaml:"interface"`
	Version   uint32 `json:"version" yaml:"version"`
}

// GlobalEvent is wl_registry.global.
type GlobalEvent struct {
	Global
}

// GlobalRemoveEvent is wl_registry.global_remove.
type GlobalRemoveEvent struct {
	Name uint32
}

// ConfigureEvent is xdg_surface.configure.
type ConfigureEvent struct {
	Serial uint32
}

// ToplevelConfigureEvent is xdg_toplevel.configure. Zero sizes mean the
// compositor leaves the choice to the client.
type ToplevelConfigureEvent struct {
	Width  int32
	Height int32
	States []uint32
}

// CloseEvent is xdg_toplevel.close.
type CloseEvent struct{}

// PingEvent is xdg_wm_base.ping.
type PingEvent struct {
	Serial uint32
}

// CapabilitiesEvent is wl_seat.capabilities.
type CapabilitiesEvent struct {
	Capabilities uint32
}

// KeyEvent is wl_keyboard.key.
type KeyEvent struct {
	Serial uint32
	Time   uint32
	Key    uint32
	State  uint32
}

// BufferReleaseEvent is wl_buffer.release.
type BufferReleaseEvent struct{}

func (GlobalEvent) eventName() string            { return "wl_registry.global" }
func (GlobalRemoveEvent) eventName() string      { return "wl_registry.global_remove" }
func (ConfigureEvent) eventName() string         { return "xdg_surface.configure" }
func (ToplevelConfigureEvent) eventName() string { return "xdg_toplevel.configure" }
func (CloseEvent) eventName() string             { return "xdg_toplevel.close" }
func (PingEvent) eventName() string              { return "xdg_wm_base.ping" }
func (CapabilitiesEvent) eventName() string      { return "wl_seat.capabilities" }
func (KeyEvent) eventName() string               { return "wl_keyboard.key" }
func (BufferReleaseEvent) eventName() string     { return "wl_buffer.release" }

// Seat capability bits from wl_seat.capability.
const (
	SeatCapabilityPointer  uint32 = 1
	SeatCapabilityKeyboard uint32 = 2
	SeatCapabilityTouch    uint32 = 4
)

// Key states from wl_keyboard.key_state.
const (
	KeyStateReleased uint32 = 0
	KeyStatePressed  uint32 = 1
)
