package session

import (
	"errors"
	"fmt"
	"strings"
)

// recorder is an in-memory compositor. Every request is appended to
// calls as "interface.request", which lets tests assert on ordering.
type recorder struct {
	calls []string
	// fail makes the named request return an error.
	fail map[string]error
	// versions holds the version each interface was bound at.
	versions map[string]uint32
}

func newRecorder() *recorder {
	return &recorder{fail: make(map[string]error), versions: make(map[string]uint32)}
}

func (r *recorder) record(call string) error {
	r.calls = append(r.calls, call)
	return r.fail[call]
}

func (r *recorder) count(call string) int {
	n := 0
	for _, c := range r.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (r *recorder) index(call string) int {
	for i, c := range r.calls {
		if c == call {
			return i
		}
	}
	return -1
}

// indexAll returns the positions of every occurrence of call.
func (r *recorder) indexAll(call string) []int {
	var idx []int
	for i, c := range r.calls {
		if c == call {
			idx = append(idx, i)
		}
	}
	return idx
}

func (r *recorder) String() string {
	return strings.Join(r.calls, "\n")
}

func (r *recorder) bind(g Global) error {
	r.versions[g.Interface] = g.Version
	return r.record("registry.bind " + g.Interface)
}

func (r *recorder) BindCompositor(g Global) (Compositor, error) {
	if err := r.bind(g); err != nil {
		return nil, err
	}
	return &fakeCompositor{r}, nil
}

func (r *recorder) BindShm(g Global) (Shm, error) {
	if err := r.bind(g); err != nil {
		return nil, err
	}
	return &fakeShm{r}, nil
}

func (r *recorder) BindSeat(g Global) (Seat, error) {
	if err := r.bind(g); err != nil {
		return nil, err
	}
	return &fakeSeat{r}, nil
}

func (r *recorder) BindWmBase(g Global) (WmBase, error) {
	if err := r.bind(g); err != nil {
		return nil, err
	}
	return &fakeWmBase{r}, nil
}

type fakeCompositor struct{ r *recorder }

func (c *fakeCompositor) CreateSurface() (Surface, error) {
	if err := c.r.record("wl_compositor.create_surface"); err != nil {
		return nil, err
	}
	return &fakeSurface{r: c.r}, nil
}

type fakeSurface struct {
	r        *recorder
	attached Buffer
	damage   [4]int32
}

func (s *fakeSurface) Attach(b Buffer, x, y int32) error {
	s.attached = b
	return s.r.record("wl_surface.attach")
}

func (s *fakeSurface) Damage(x, y, w, h int32) error {
	s.damage = [4]int32{x, y, w, h}
	return s.r.record("wl_surface.damage")
}

func (s *fakeSurface) Commit() error  { return s.r.record("wl_surface.commit") }
func (s *fakeSurface) Destroy() error { return s.r.record("wl_surface.destroy") }

type fakeShm struct{ r *recorder }

func (s *fakeShm) CreatePool(fd uintptr, size int32) (ShmPool, error) {
	if err := s.r.record("wl_shm.create_pool"); err != nil {
		return nil, err
	}
	return &fakePool{r: s.r, size: size}, nil
}

type fakePool struct {
	r    *recorder
	size int32
}

func (p *fakePool) CreateBuffer(offset, w, h, stride int32, format uint32) (Buffer, error) {
	if err := p.r.record("wl_shm_pool.create_buffer"); err != nil {
		return nil, err
	}
	if offset+h*stride > p.size {
		return nil, fmt.Errorf("buffer %dx%d stride %d overflows pool of %d bytes", w, h, stride, p.size)
	}
	return &fakeBuffer{r: p.r, width: w, height: h, stride: stride, format: format}, nil
}

func (p *fakePool) Destroy() error { return p.r.record("wl_shm_pool.destroy") }

type fakeBuffer struct {
	r                     *recorder
	width, height, stride int32
	format                uint32
}

func (b *fakeBuffer) Destroy() error { return b.r.record("wl_buffer.destroy") }

type fakeWmBase struct{ r *recorder }

func (w *fakeWmBase) GetXdgSurface(s Surface) (XdgSurface, error) {
	if s == nil {
		return nil, errors.New("nil surface")
	}
	if err := w.r.record("xdg_wm_base.get_xdg_surface"); err != nil {
		return nil, err
	}
	return &fakeXdgSurface{r: w.r}, nil
}

func (w *fakeWmBase) Pong(serial uint32) error {
	return w.r.record(fmt.Sprintf("xdg_wm_base.pong %d", serial))
}

type fakeXdgSurface struct{ r *recorder }

func (x *fakeXdgSurface) GetToplevel() (Toplevel, error) {
	if err := x.r.record("xdg_surface.get_toplevel"); err != nil {
		return nil, err
	}
	return &fakeToplevel{r: x.r}, nil
}

func (x *fakeXdgSurface) AckConfigure(serial uint32) error {
	return x.r.record(fmt.Sprintf("xdg_surface.ack_configure %d", serial))
}

func (x *fakeXdgSurface) Destroy() error { return x.r.record("xdg_surface.destroy") }

type fakeToplevel struct {
	r     *recorder
	title string
}

func (t *fakeToplevel) SetTitle(title string) error {
	t.title = title
	return t.r.record("xdg_toplevel.set_title")
}

func (t *fakeToplevel) Destroy() error { return t.r.record("xdg_toplevel.destroy") }

type fakeSeat struct{ r *recorder }

func (s *fakeSeat) GetKeyboard() (Keyboard, error) {
	if err := s.r.record("wl_seat.get_keyboard"); err != nil {
		return nil, err
	}
	return &fakeKeyboard{s.r}, nil
}

type fakeKeyboard struct{ r *recorder }

func (k *fakeKeyboard) Release() error { return k.r.record("wl_keyboard.release") }

// scriptSource replays prepared batches. After the script runs out it
// returns readErr, or errEndOfScript when readErr is nil.
type scriptSource struct {
	initial []Event
	batches [][]Event
	readErr error
	reads   int
}

var errEndOfScript = errors.New("end of script")

func (s *scriptSource) Roundtrip() ([]Event, error) {
	return s.initial, nil
}

func (s *scriptSource) ReadBatch() ([]Event, error) {
	if s.reads >= len(s.batches) {
		if s.readErr != nil {
			return nil, s.readErr
		}
		return nil, errEndOfScript
	}
	b := s.batches[s.reads]
	s.reads++
	return b, nil
}

func global(name uint32, iface string, version uint32) GlobalEvent {
	return GlobalEvent{Global{Name: name, Interface: iface, Version: version}}
}

// standardGlobals is a typical compositor announcement.
func standardGlobals() []Event {
	return []Event{
		global(1, InterfaceCompositor, 6),
		global(2, "wl_subcompositor", 1),
		global(3, InterfaceShm, 1),
		global(4, InterfaceSeat, 9),
		global(5, "wl_output", 4),
		global(6, InterfaceWmBase, 6),
	}
}
