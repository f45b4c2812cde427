package session

// The interfaces below are the requests the session sends. The wayland
// package implements them on top of a live connection; tests use an
// in-memory recorder.

// Registry binds announced globals. Each Bind* call issues one
// wl_registry.bind and arranges for the new object's events to be
// delivered to the session.
type Registry interface {
	BindCompositor(g Global) (Compositor, error)
	BindShm(g Global) (Shm, error)
	BindSeat(g Global) (Seat, error)
	BindWmBase(g Global) (WmBase, error)
}

// Compositor is a bound wl_compositor.
type Compositor interface {
	CreateSurface() (Surface, error)
}

// Surface is a wl_surface.
type Surface interface {
	Attach(buffer Buffer, x, y int32) error
	Damage(x, y, width, height int32) error
	Commit() error
	Destroy() error
}

// Shm is a bound wl_shm.
type Shm interface {
	CreatePool(fd uintptr, size int32) (ShmPool, error)
}

// ShmPool is a wl_shm_pool.
type ShmPool interface {
	CreateBuffer(offset, width, height, stride int32, format uint32) (Buffer, error)
	Destroy() error
}

// Buffer is a wl_buffer.
type Buffer interface {
	Destroy() error
}

// WmBase is a bound xdg_wm_base.
type WmBase interface {
	GetXdgSurface(surface Surface) (XdgSurface, error)
	Pong(serial uint32) error
}

// XdgSurface is an xdg_surface.
type XdgSurface interface {
	GetToplevel() (Toplevel, error)
	AckConfigure(serial uint32) error
	Destroy() error
}

// Toplevel is an xdg_toplevel.
type Toplevel interface {
	SetTitle(title string) error
	Destroy() error
}

// Seat is a bound wl_seat.
type Seat interface {
	GetKeyboard() (Keyboard, error)
}

// Keyboard is a wl_keyboard.
type Keyboard interface {
	Release() error
}

// Source delivers events from the compositor in arrival order.
type Source interface {
	// Roundtrip flushes requests and returns every event received until
	// the compositor has processed them all.
	Roundtrip() ([]Event, error)
	// ReadBatch blocks until at least one event is available and
	// returns all events read so far.
	ReadBatch() ([]Event, error)
}
