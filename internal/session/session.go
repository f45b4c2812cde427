// Package session drives a single xdg toplevel window backed by a shared
// memory buffer.
//
// The compositor announces globals and surface events in whatever order
// it likes. Session turns that stream into a fixed sequence of requests:
// bind the globals it needs, create the surface, wrap it in an xdg
// toplevel once both the surface and xdg_wm_base exist, acknowledge every
// configure and present the buffer once it exists and the surface has
// been configured. All state lives in one Session value and is mutated
// only by Handle, on the goroutine that runs the dispatch loop.
package session

import (
	"errors"
	"fmt"
	"sort"

	"github.com/bnema/waysurf/internal/logger"
	"github.com/bnema/waysurf/internal/render"
	"github.com/bnema/waysurf/internal/shm"
)

// DefaultExitKey is the Linux input event code of the Escape key.
const DefaultExitKey uint32 = 1

// Options configures a Session.
type Options struct {
	Title   string
	Width   int
	Height  int
	ExitKey uint32
}

// Phase is the surface lifecycle state derived from the session flags.
type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseCompositorBound
	PhaseShellWrapped
	PhaseAwaitingConfigure
	PhaseConfigured
	PhaseClosed
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseCompositorBound:
		return "compositor-bound"
	case PhaseShellWrapped:
		return "shell-wrapped"
	case PhaseAwaitingConfigure:
		return "awaiting-configure"
	case PhaseConfigured:
		return "configured"
	case PhaseClosed:
		return "closed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Session is the client side of the window handshake.
type Session struct {
	registry Registry
	renderer render.Renderer
	opts     Options

	// newPixels allocates the shared pixel buffer; replaced in tests.
	newPixels func(width, height int) (*shm.Buffer, error)

	running    bool
	configured bool
	stopReason string

	// interface name -> global name, for every bound global
	bound map[string]uint32

	compositor Compositor
	shmGlobal  Shm
	seat       Seat
	wmBase     WmBase

	// version wl_seat was bound at; wl_keyboard.release needs 3
	seatVersion uint32

	surface    Surface
	xdgSurface XdgSurface
	toplevel   Toplevel
	keyboard   Keyboard

	pixels *shm.Buffer
	pool   ShmPool
	buffer Buffer

	presents int

	suggestedWidth  int32
	suggestedHeight int32
}

// New returns a running session that binds globals through registry and
// fills its buffer with renderer.
func New(registry Registry, renderer render.Renderer, opts Options) *Session {
	if opts.ExitKey == 0 {
		opts.ExitKey = DefaultExitKey
	}
	return &Session{
		registry:  registry,
		renderer:  renderer,
		opts:      opts,
		newPixels: shm.New,
		running:   true,
		bound:     make(map[string]uint32),
	}
}

// Running reports whether the session still wants events.
func (s *Session) Running() bool {
	return s.running
}

// Configured reports whether at least one configure has been acknowledged.
func (s *Session) Configured() bool {
	return s.configured
}

// StopReason explains why Running turned false, empty while running.
func (s *Session) StopReason() string {
	return s.stopReason
}

// Phase derives the lifecycle state from the current handles and flags.
func (s *Session) Phase() Phase {
	wrapped := s.toplevel != nil
	switch {
	case !s.running && wrapped:
		return PhaseClosed
	case s.configured:
		return PhaseConfigured
	case wrapped:
		return PhaseAwaitingConfigure
	case s.surface != nil:
		return PhaseCompositorBound
	default:
		return PhaseUninitialized
	}
}

// Snapshot is a diagnostic view of the session.
type Snapshot struct {
	Phase       Phase
	Running     bool
	Configured  bool
	StopReason  string
	Bound       []string
	HasSurface  bool
	HasToplevel bool
	HasBuffer   bool
	HasKeyboard bool
	Presents    int
}

// Snapshot copies the current state for logging.
func (s *Session) Snapshot() Snapshot {
	bound := make([]string, 0, len(s.bound))
	for iface := range s.bound {
		bound = append(bound, iface)
	}
	sort.Strings(bound)

	return Snapshot{
		Phase:       s.Phase(),
		Running:     s.running,
		Configured:  s.configured,
		StopReason:  s.stopReason,
		Bound:       bound,
		HasSurface:  s.surface != nil,
		HasToplevel: s.toplevel != nil,
		HasBuffer:   s.buffer != nil,
		HasKeyboard: s.keyboard != nil,
		Presents:    s.presents,
	}
}

// Handle applies one event. Once the session has stopped, remaining
// events are dropped so that nothing more is bound, attached or
// committed.
func (s *Session) Handle(ev Event) error {
	if !s.running {
		logger.Debug("Dropping event after stop", "event", ev.eventName())
		return nil
	}

	switch e := ev.(type) {
	case GlobalEvent:
		return s.handleGlobal(e.Global)
	case GlobalRemoveEvent:
		s.handleGlobalRemove(e.Name)
	case ConfigureEvent:
		return s.handleConfigure(e.Serial)
	case ToplevelConfigureEvent:
		s.handleToplevelConfigure(e)
	case CloseEvent:
		s.stop("window closed")
	case PingEvent:
		return s.handlePing(e.Serial)
	case CapabilitiesEvent:
		return s.handleCapabilities(e.Capabilities)
	case KeyEvent:
		s.handleKey(e)
	case BufferReleaseEvent:
		// The content never changes, so the buffer is simply kept for
		// the next attach.
		logger.Debug("Buffer released by compositor")
	default:
		logger.Debug("Ignoring unhandled event", "event", ev.eventName())
	}
	return nil
}

func (s *Session) stop(reason string) {
	if !s.running {
		return
	}
	s.running = false
	s.stopReason = reason
	logger.Info("Stopping session", "reason", reason)
}

// Close releases every object the session created, newest first, and
// unmaps the pixel buffer. It is safe to call on a partially set up
// session.
func (s *Session) Close() error {
	var errs []error
	destroy := func(what string, fn func() error) {
		if err := fn(); err != nil {
			errs = append(errs, fmt.Errorf("destroy %s: %w", what, err))
		}
	}

	if s.keyboard != nil {
		destroy("wl_keyboard", s.releaseKeyboard)
	}
	if s.toplevel != nil {
		destroy("xdg_toplevel", s.toplevel.Destroy)
		s.toplevel = nil
	}
	if s.xdgSurface != nil {
		destroy("xdg_surface", s.xdgSurface.Destroy)
		s.xdgSurface = nil
	}
	if s.buffer != nil {
		destroy("wl_buffer", s.buffer.Destroy)
		s.buffer = nil
	}
	if s.pool != nil {
		destroy("wl_shm_pool", s.pool.Destroy)
		s.pool = nil
	}
	if s.surface != nil {
		destroy("wl_surface", s.surface.Destroy)
		s.surface = nil
	}
	if s.pixels != nil {
		if err := s.pixels.Close(); err != nil {
			errs = append(errs, err)
		}
		s.pixels = nil
	}

	s.stop("session closed")
	return errors.Join(errs...)
}
