package wayland

import (
	"encoding/binary"
	"fmt"

	"github.com/bnema/waysurf/internal/logger"
	"github.com/bnema/waysurf/internal/session"
	"github.com/rajveermalviya/go-wayland/wayland/client"
	xdg_shell "github.com/rajveermalviya/go-wayland/wayland/stable/xdg-shell"
	"golang.org/x/sys/unix"
)

// BindCompositor implements session.Registry.
func (c *Conn) BindCompositor(g session.Global) (session.Compositor, error) {
	p := client.NewCompositor(c.display.Context())
	if err := c.registry.Bind(g.Name, g.Interface, g.Version, p); err != nil {
		return nil, err
	}
	return &compositor{proxy: p}, nil
}

// BindShm implements session.Registry.
func (c *Conn) BindShm(g session.Global) (session.Shm, error) {
	p := client.NewShm(c.display.Context())
	if err := c.registry.Bind(g.Name, g.Interface, g.Version, p); err != nil {
		return nil, err
	}
	p.SetFormatHandler(func(e client.ShmFormatEvent) {
		logger.Debug("Compositor supports shm format", "format", fmt.Sprintf("0x%08x", e.Format))
	})
	return &shmGlobal{conn: c, proxy: p}, nil
}

// BindSeat implements session.Registry.
func (c *Conn) BindSeat(g session.Global) (session.Seat, error) {
	p := client.NewSeat(c.display.Context())
	if err := c.registry.Bind(g.Name, g.Interface, g.Version, p); err != nil {
		return nil, err
	}
	p.SetCapabilitiesHandler(func(e client.SeatCapabilitiesEvent) {
		c.queue.push(session.CapabilitiesEvent{Capabilities: e.Capabilities})
	})
	p.SetNameHandler(func(e client.SeatNameEvent) {
		logger.Debug("Seat name", "name", e.Name)
	})
	return &seat{conn: c, proxy: p}, nil
}

// BindWmBase implements session.Registry.
func (c *Conn) BindWmBase(g session.Global) (session.WmBase, error) {
	p := xdg_shell.NewWmBase(c.display.Context())
	if err := c.registry.Bind(g.Name, g.Interface, g.Version, p); err != nil {
		return nil, err
	}
	p.SetPingHandler(func(e xdg_shell.WmBasePingEvent) {
		c.queue.push(session.PingEvent{Serial: e.Serial})
	})
	return &wmBase{conn: c, proxy: p}, nil
}

type compositor struct {
	proxy *client.Compositor
}

func (o *compositor) CreateSurface() (session.Surface, error) {
	p, err := o.proxy.CreateSurface()
	if err != nil {
		return nil, err
	}
	return &surface{proxy: p}, nil
}

type surface struct {
	proxy *client.Surface
}

func (o *surface) Attach(b session.Buffer, x, y int32) error {
	wb, ok := b.(*buffer)
	if !ok {
		return fmt.Errorf("attach: unsupported buffer type %T", b)
	}
	return o.proxy.Attach(wb.proxy, x, y)
}

func (o *surface) Damage(x, y, width, height int32) error {
	return o.proxy.Damage(x, y, width, height)
}

func (o *surface) Commit() error  { return o.proxy.Commit() }
func (o *surface) Destroy() error { return o.proxy.Destroy() }

type shmGlobal struct {
	conn  *Conn
	proxy *client.Shm
}

func (o *shmGlobal) CreatePool(fd uintptr, size int32) (session.ShmPool, error) {
	p, err := o.proxy.CreatePool(int(fd), size)
	if err != nil {
		return nil, err
	}
	return &shmPool{conn: o.conn, proxy: p}, nil
}

type shmPool struct {
	conn  *Conn
	proxy *client.ShmPool
}

func (o *shmPool) CreateBuffer(offset, width, height, stride int32, format uint32) (session.Buffer, error) {
	p, err := o.proxy.CreateBuffer(offset, width, height, stride, format)
	if err != nil {
		return nil, err
	}
	p.SetReleaseHandler(func(client.BufferReleaseEvent) {
		o.conn.queue.push(session.BufferReleaseEvent{})
	})
	return &buffer{proxy: p}, nil
}

func (o *shmPool) Destroy() error { return o.proxy.Destroy() }

type buffer struct {
	proxy *client.Buffer
}

func (o *buffer) Destroy() error { return o.proxy.Destroy() }

type wmBase struct {
	conn  *Conn
	proxy *xdg_shell.WmBase
}

func (o *wmBase) GetXdgSurface(s session.Surface) (session.XdgSurface, error) {
	ws, ok := s.(*surface)
	if !ok {
		return nil, fmt.Errorf("get_xdg_surface: unsupported surface type %T", s)
	}
	p, err := o.proxy.GetXdgSurface(ws.proxy)
	if err != nil {
		return nil, err
	}
	p.SetConfigureHandler(func(e xdg_shell.SurfaceConfigureEvent) {
		o.conn.queue.push(session.ConfigureEvent{Serial: e.Serial})
	})
	return &xdgSurface{conn: o.conn, proxy: p}, nil
}

func (o *wmBase) Pong(serial uint32) error { return o.proxy.Pong(serial) }

type xdgSurface struct {
	conn  *Conn
	proxy *xdg_shell.Surface
}

func (o *xdgSurface) GetToplevel() (session.Toplevel, error) {
	p, err := o.proxy.GetToplevel()
	if err != nil {
		return nil, err
	}
	p.SetConfigureHandler(func(e xdg_shell.ToplevelConfigureEvent) {
		o.conn.queue.push(session.ToplevelConfigureEvent{
			Width:  e.Width,
			Height: e.Height,
			States: decodeStates(e.States),
		})
	})
	p.SetCloseHandler(func(xdg_shell.ToplevelCloseEvent) {
		o.conn.queue.push(session.CloseEvent{})
	})
	return &toplevel{proxy: p}, nil
}

func (o *xdgSurface) AckConfigure(serial uint32) error { return o.proxy.AckConfigure(serial) }
func (o *xdgSurface) Destroy() error                   { return o.proxy.Destroy() }

type toplevel struct {
	proxy *xdg_shell.Toplevel
}

func (o *toplevel) SetTitle(title string) error { return o.proxy.SetTitle(title) }
func (o *toplevel) Destroy() error              { return o.proxy.Destroy() }

type seat struct {
	conn  *Conn
	proxy *client.Seat
}

func (o *seat) GetKeyboard() (session.Keyboard, error) {
	p, err := o.proxy.GetKeyboard()
	if err != nil {
		return nil, err
	}
	p.SetKeymapHandler(func(e client.KeyboardKeymapEvent) {
		// Key codes are compared raw, the keymap itself is not needed.
		_ = unix.Close(int(e.Fd))
	})
	p.SetKeyHandler(func(e client.KeyboardKeyEvent) {
		o.conn.queue.push(session.KeyEvent{
			Serial: e.Serial,
			Time:   e.Time,
			Key:    e.Key,
			State:  e.State,
		})
	})
	return &keyboard{proxy: p}, nil
}

type keyboard struct {
	proxy *client.Keyboard
}

func (o *keyboard) Release() error { return o.proxy.Release() }

// decodeStates unpacks the xdg_toplevel.configure states array, a list
// of host byte order uint32 values.
func decodeStates(raw []byte) []uint32 {
	states := make([]uint32, 0, len(raw)/4)
	for i := 0; i+4 <= len(raw); i += 4 {
		states = append(states, binary.NativeEndian.Uint32(raw[i:]))
	}
	return states
}
