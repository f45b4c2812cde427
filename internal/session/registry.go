package session

import (
	"fmt"
	"math"

	"github.com/bnema/waysurf/internal/logger"
	"github.com/bnema/waysurf/internal/shm"
)

// Interfaces the session binds.
const (
	InterfaceCompositor = "wl_compositor"
	InterfaceShm        = "wl_shm"
	InterfaceSeat       = "wl_seat"
	InterfaceWmBase     = "xdg_wm_base"
)

// MaxVersions caps each bound interface at the newest version whose
// requests and events this client understands.
var MaxVersions = map[string]uint32{
	InterfaceCompositor: 4,
	InterfaceShm:        1,
	InterfaceSeat:       5,
	InterfaceWmBase:     2,
}

// RequiredInterfaces must all be bound after the initial roundtrip.
// wl_seat is optional: without it the window can still be closed by the
// compositor.
var RequiredInterfaces = []string{InterfaceCompositor, InterfaceShm, InterfaceWmBase}

// Wanted reports whether the session binds iface.
func Wanted(iface string) bool {
	_, ok := MaxVersions[iface]
	return ok
}

func (s *Session) handleGlobal(g Global) error {
	if !Wanted(g.Interface) {
		logger.Debug("Ignoring global", "interface", g.Interface, "name", g.Name, "version", g.Version)
		return nil
	}
	if prev, ok := s.bound[g.Interface]; ok {
		return violation("bind", g.Interface, "announced again as global %d, already bound as global %d", g.Name, prev)
	}

	g.Version = min(g.Version, MaxVersions[g.Interface])
	logger.Debug("Binding global", "interface", g.Interface, "name", g.Name, "version", g.Version)

	var err error
	switch g.Interface {
	case InterfaceCompositor:
		err = s.bindCompositor(g)
	case InterfaceShm:
		err = s.bindShm(g)
	case InterfaceSeat:
		err = s.bindSeat(g)
	case InterfaceWmBase:
		err = s.bindWmBase(g)
	}
	if err != nil {
		return err
	}

	return s.maybeWrapSurface()
}

func (s *Session) handleGlobalRemove(name uint32) {
	for iface, bound := range s.bound {
		if bound == name {
			logger.Warn("Bound global removed by compositor", "interface", iface, "name", name)
			return
		}
	}
	logger.Debug("Global removed", "name", name)
}

func (s *Session) bindCompositor(g Global) error {
	compositor, err := s.registry.BindCompositor(g)
	if err != nil {
		return requestFailed("bind", g.Interface, err)
	}
	s.bound[g.Interface] = g.Name
	s.compositor = compositor

	surface, err := compositor.CreateSurface()
	if err != nil {
		return requestFailed("create_surface", g.Interface, err)
	}
	s.surface = surface
	logger.Debug("Surface created", "phase", s.Phase())
	return nil
}

func (s *Session) bindWmBase(g Global) error {
	wmBase, err := s.registry.BindWmBase(g)
	if err != nil {
		return requestFailed("bind", g.Interface, err)
	}
	s.bound[g.Interface] = g.Name
	s.wmBase = wmBase
	return nil
}

func (s *Session) bindSeat(g Global) error {
	seat, err := s.registry.BindSeat(g)
	if err != nil {
		return requestFailed("bind", g.Interface, err)
	}
	s.bound[g.Interface] = g.Name
	s.seat = seat
	s.seatVersion = g.Version
	return nil
}

// bindShm renders the window content into a fresh shared buffer and
// wraps it in a wl_buffer. If the surface is already configured the
// buffer is presented right away, since no further configure may come.
func (s *Session) bindShm(g Global) error {
	shmGlobal, err := s.registry.BindShm(g)
	if err != nil {
		return requestFailed("bind", g.Interface, err)
	}
	s.bound[g.Interface] = g.Name
	s.shmGlobal = shmGlobal

	if err := s.createBuffer(); err != nil {
		return err
	}

	if s.configured {
		return s.present()
	}
	return nil
}

func (s *Session) createBuffer() error {
	width, height := s.opts.Width, s.opts.Height

	rgba, err := s.renderer.Render(width, height)
	if err != nil {
		return fmt.Errorf("render %dx%d: %w", width, height, err)
	}

	pixels, err := s.newPixels(width, height)
	if err != nil {
		return &ProtocolError{Op: "create_pool", Interface: InterfaceShm, Err: fmt.Errorf("%w: %w", ErrResourceAllocation, err)}
	}
	if err := pixels.Write(rgba); err != nil {
		_ = pixels.Close()
		return &ProtocolError{Op: "create_pool", Interface: InterfaceShm, Err: fmt.Errorf("%w: %w", ErrResourceAllocation, err)}
	}
	s.pixels = pixels

	if pixels.Size() > math.MaxInt32 {
		return violation("create_pool", InterfaceShm, "pool size %d does not fit in int32", pixels.Size())
	}
	pool, err := s.shmGlobal.CreatePool(pixels.Fd(), int32(pixels.Size()))
	if err != nil {
		return requestFailed("create_pool", InterfaceShm, err)
	}
	s.pool = pool

	buffer, err := pool.CreateBuffer(0, int32(width), int32(height), int32(pixels.Stride()), shm.FormatARGB8888)
	if err != nil {
		return requestFailed("create_buffer", InterfaceShm, err)
	}
	s.buffer = buffer
	logger.Debug("Buffer ready", "width", width, "height", height, "stride", pixels.Stride())
	return nil
}

// CheckRequired returns a protocol violation naming the first required
// interface that has not been bound.
func (s *Session) CheckRequired() error {
	for _, iface := range RequiredInterfaces {
		if _, ok := s.bound[iface]; !ok {
			return violation("startup", iface, "required global not announced by compositor")
		}
	}
	if _, ok := s.bound[InterfaceSeat]; !ok {
		logger.Warn("No wl_seat announced, the exit key is unavailable")
	}
	return nil
}
