package session

import (
	"context"
	"errors"
	"testing"

	"github.com/bnema/waysurf/internal/render"
	"github.com/bnema/waysurf/internal/shm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T, r *recorder) *Session {
	t.Helper()
	s := New(r, render.Gradient{}, Options{Title: "test", Width: 4, Height: 4})
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func handleAll(t *testing.T, s *Session, events ...Event) {
	t.Helper()
	for _, ev := range events {
		require.NoError(t, s.Handle(ev), "handling %s", ev.eventName())
	}
}

func TestHandshakeSequence(t *testing.T) {
	r := newRecorder()
	s := newTestSession(t, r)

	handleAll(t, s, standardGlobals()...)
	assert.Equal(t, PhaseAwaitingConfigure, s.Phase())
	assert.False(t, s.Configured())

	handleAll(t, s, ConfigureEvent{Serial: 7})

	assert.Equal(t, []string{
		"registry.bind wl_compositor",
		"wl_compositor.create_surface",
		"registry.bind wl_shm",
		"wl_shm.create_pool",
		"wl_shm_pool.create_buffer",
		"registry.bind wl_seat",
		"registry.bind xdg_wm_base",
		"xdg_wm_base.get_xdg_surface",
		"xdg_surface.get_toplevel",
		"xdg_toplevel.set_title",
		"wl_surface.commit",
		"xdg_surface.ack_configure 7",
		"wl_surface.attach",
		"wl_surface.damage",
		"wl_surface.commit",
	}, r.calls)
	assert.Equal(t, PhaseConfigured, s.Phase())
	assert.True(t, s.Configured())
	assert.True(t, s.Running())
}

func TestBufferLayout(t *testing.T) {
	r := newRecorder()
	s := newTestSession(t, r)
	handleAll(t, s, standardGlobals()...)
	handleAll(t, s, ConfigureEvent{Serial: 1})

	buf, ok := s.buffer.(*fakeBuffer)
	require.True(t, ok)
	assert.Equal(t, int32(4), buf.width)
	assert.Equal(t, int32(4), buf.height)
	assert.Equal(t, int32(16), buf.stride)
	assert.Equal(t, shm.FormatARGB8888, buf.format)

	require.NotNil(t, s.pixels)
	assert.True(t, s.pixels.Written())
	assert.Equal(t, [4]byte{0, 0, 255, 255}, s.pixels.Pixel(0, 0), "red in B, G, R, A order")

	surface := s.surface.(*fakeSurface)
	assert.Same(t, buf, surface.attached)
	assert.Equal(t, [4]int32{0, 0, 4, 4}, surface.damage)
	assert.Equal(t, "test", s.toplevel.(*fakeToplevel).title)
}

func TestVersionsAreCapped(t *testing.T) {
	r := newRecorder()
	s := newTestSession(t, r)
	handleAll(t, s, standardGlobals()...)

	assert.Equal(t, uint32(4), r.versions[InterfaceCompositor])
	assert.Equal(t, uint32(1), r.versions[InterfaceShm])
	assert.Equal(t, uint32(5), r.versions[InterfaceSeat])
	assert.Equal(t, uint32(2), r.versions[InterfaceWmBase])

	r2 := newRecorder()
	s2 := newTestSession(t, r2)
	handleAll(t, s2, global(9, InterfaceWmBase, 1))
	assert.Equal(t, uint32(1), r2.versions[InterfaceWmBase], "older versions are kept")
}

func TestUnknownGlobalsIgnored(t *testing.T) {
	r := newRecorder()
	s := newTestSession(t, r)

	handleAll(t, s,
		global(1, "wl_output", 4),
		global(2, "zwp_linux_dmabuf_v1", 4),
		global(3, "wl_data_device_manager", 3),
		GlobalRemoveEvent{Name: 1},
	)

	assert.Empty(t, r.calls)
	assert.Equal(t, PhaseUninitialized, s.Phase())
}

func permutations(events []Event) [][]Event {
	if len(events) <= 1 {
		return [][]Event{append([]Event(nil), events...)}
	}
	var out [][]Event
	for i := range events {
		rest := make([]Event, 0, len(events)-1)
		rest = append(rest, events[:i]...)
		rest = append(rest, events[i+1:]...)
		for _, p := range permutations(rest) {
			out = append(out, append([]Event{events[i]}, p...))
		}
	}
	return out
}

func TestJoinOrderIndependence(t *testing.T) {
	globals := []Event{
		global(1, InterfaceCompositor, 4),
		global(2, InterfaceShm, 1),
		global(3, InterfaceWmBase, 2),
	}

	for _, order := range permutations(globals) {
		// Insert the configure at every position. Before the surface is
		// wrapped it must be rejected.
		for at := 0; at <= len(order); at++ {
			var events []Event
			events = append(events, order[:at]...)
			events = append(events, ConfigureEvent{Serial: 42})
			events = append(events, order[at:]...)

			name := ""
			for _, ev := range events {
				if g, ok := ev.(GlobalEvent); ok {
					name += g.Interface + ","
				} else {
					name += "configure,"
				}
			}

			t.Run(name, func(t *testing.T) {
				r := newRecorder()
				s := newTestSession(t, r)

				var wrapErr error
				for _, ev := range events {
					if err := s.Handle(ev); err != nil {
						wrapErr = err
						break
					}
				}

				seen := map[string]bool{}
				for _, ev := range order[:at] {
					seen[ev.(GlobalEvent).Interface] = true
				}

				if !seen[InterfaceCompositor] || !seen[InterfaceWmBase] {
					require.Error(t, wrapErr)
					assert.ErrorIs(t, wrapErr, ErrProtocolViolation)
					assert.Zero(t, r.count("xdg_surface.ack_configure 42"))
					return
				}

				require.NoError(t, wrapErr)
				assert.Equal(t, 1, r.count("xdg_wm_base.get_xdg_surface"))
				assert.Equal(t, 1, r.count("xdg_surface.get_toplevel"))
				assert.Equal(t, 1, r.count("wl_surface.attach"))

				wrap := r.index("xdg_wm_base.get_xdg_surface")
				assert.Greater(t, wrap, r.index("wl_compositor.create_surface"))
				assert.Greater(t, wrap, r.index("registry.bind xdg_wm_base"))

				ack := r.index("xdg_surface.ack_configure 42")
				commits := r.indexAll("wl_surface.commit")
				require.Len(t, commits, 2)
				assert.Less(t, commits[0], ack, "only the initial commit precedes the ack")
				assert.Greater(t, r.index("wl_surface.attach"), ack)
				assert.Greater(t, r.index("wl_surface.attach"), r.index("wl_shm_pool.create_buffer"))
				assert.Equal(t, PhaseConfigured, s.Phase())
			})
		}
	}
}

func TestRepeatedConfigure(t *testing.T) {
	r := newRecorder()
	s := newTestSession(t, r)
	handleAll(t, s, standardGlobals()...)

	handleAll(t, s, ConfigureEvent{Serial: 1}, ConfigureEvent{Serial: 2}, ConfigureEvent{Serial: 3})

	assert.Equal(t, 1, r.count("xdg_surface.ack_configure 1"))
	assert.Equal(t, 1, r.count("xdg_surface.ack_configure 2"))
	assert.Equal(t, 1, r.count("xdg_surface.ack_configure 3"))
	assert.Equal(t, 3, r.count("wl_surface.attach"))
	assert.Equal(t, 1, r.count("wl_shm_pool.create_buffer"), "the buffer is reused")
	assert.Equal(t, 3, s.Snapshot().Presents)
}

func TestBufferReadyAfterConfigure(t *testing.T) {
	r := newRecorder()
	s := newTestSession(t, r)

	handleAll(t, s,
		global(1, InterfaceCompositor, 4),
		global(2, InterfaceWmBase, 2),
		ConfigureEvent{Serial: 5},
	)
	assert.Equal(t, PhaseConfigured, s.Phase())
	assert.Zero(t, r.count("wl_surface.attach"), "no buffer yet")
	assert.Equal(t, 1, r.count("wl_surface.commit"))

	handleAll(t, s, global(3, InterfaceShm, 1))

	assert.Equal(t, 1, r.count("wl_surface.attach"))
	assert.Equal(t, 2, r.count("wl_surface.commit"))
	assert.Greater(t, r.index("wl_surface.attach"), r.index("wl_shm_pool.create_buffer"))
}

func TestConfigureBeforeWrapIsViolation(t *testing.T) {
	r := newRecorder()
	s := newTestSession(t, r)
	handleAll(t, s, global(1, InterfaceCompositor, 4))

	err := s.Handle(ConfigureEvent{Serial: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProtocolViolation)

	var perr *ProtocolError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "configure", perr.Op)
	assert.False(t, s.Configured())
}

func TestDuplicateGlobalIsViolation(t *testing.T) {
	for _, iface := range []string{InterfaceCompositor, InterfaceShm, InterfaceSeat, InterfaceWmBase} {
		t.Run(iface, func(t *testing.T) {
			r := newRecorder()
			s := newTestSession(t, r)
			handleAll(t, s, global(10, iface, 1))

			err := s.Handle(global(11, iface, 1))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrProtocolViolation)
			assert.Contains(t, err.Error(), iface)
			assert.Equal(t, 1, r.count("registry.bind "+iface))
		})
	}
}

func TestCheckRequired(t *testing.T) {
	tests := []struct {
		name    string
		globals []Event
		missing string
	}{
		{
			name:    "all present",
			globals: standardGlobals(),
		},
		{
			name: "seat is optional",
			globals: []Event{
				global(1, InterfaceCompositor, 4),
				global(2, InterfaceShm, 1),
				global(3, InterfaceWmBase, 2),
			},
		},
		{
			name: "no compositor",
			globals: []Event{
				global(2, InterfaceShm, 1),
				global(3, InterfaceWmBase, 2),
			},
			missing: InterfaceCompositor,
		},
		{
			name: "no shm",
			globals: []Event{
				global(1, InterfaceCompositor, 4),
				global(3, InterfaceWmBase, 2),
			},
			missing: InterfaceShm,
		},
		{
			name: "no xdg_wm_base",
			globals: []Event{
				global(1, InterfaceCompositor, 4),
				global(2, InterfaceShm, 1),
			},
			missing: InterfaceWmBase,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSession(t, newRecorder())
			handleAll(t, s, tt.globals...)

			err := s.CheckRequired()
			if tt.missing == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrProtocolViolation)
			var perr *ProtocolError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.missing, perr.Interface)
		})
	}
}

func TestResourceAllocationFailure(t *testing.T) {
	r := newRecorder()
	s := newTestSession(t, r)
	s.newPixels = func(width, height int) (*shm.Buffer, error) {
		return nil, errors.New("memfd_create: too many open files")
	}

	err := s.Handle(global(1, InterfaceShm, 1))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrResourceAllocation)
	assert.NotErrorIs(t, err, ErrProtocolViolation)
	assert.Zero(t, r.count("wl_shm.create_pool"))
}

func TestRenderFailure(t *testing.T) {
	r := newRecorder()
	s := New(r, render.Func(func(width, height int) ([]byte, error) {
		return nil, errors.New("device lost")
	}), Options{Title: "test", Width: 4, Height: 4})
	t.Cleanup(func() { _ = s.Close() })

	err := s.Handle(global(1, InterfaceShm, 1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "device lost")
	assert.Nil(t, s.buffer)
}

func TestRequestFailureIsConnectionError(t *testing.T) {
	r := newRecorder()
	r.fail["xdg_toplevel.set_title"] = errors.New("broken pipe")
	s := newTestSession(t, r)

	handleAll(t, s, global(1, InterfaceCompositor, 4))
	err := s.Handle(global(2, InterfaceWmBase, 2))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnection)
	assert.Contains(t, err.Error(), "broken pipe")
}

func TestPingPong(t *testing.T) {
	r := newRecorder()
	s := newTestSession(t, r)
	handleAll(t, s, global(1, InterfaceWmBase, 2))

	phase := s.Phase()
	handleAll(t, s, PingEvent{Serial: 99})

	assert.Equal(t, 1, r.count("xdg_wm_base.pong 99"))
	assert.Equal(t, phase, s.Phase())

	s2 := newTestSession(t, newRecorder())
	assert.ErrorIs(t, s2.Handle(PingEvent{Serial: 1}), ErrProtocolViolation)
}

func TestKeyboardCapability(t *testing.T) {
	r := newRecorder()
	s := newTestSession(t, r)
	handleAll(t, s, global(1, InterfaceSeat, 5))

	handleAll(t, s,
		CapabilitiesEvent{Capabilities: SeatCapabilityPointer},
		CapabilitiesEvent{Capabilities: SeatCapabilityPointer | SeatCapabilityTouch},
	)
	assert.Zero(t, r.count("wl_seat.get_keyboard"))

	handleAll(t, s,
		CapabilitiesEvent{Capabilities: SeatCapabilityPointer | SeatCapabilityKeyboard},
		CapabilitiesEvent{Capabilities: SeatCapabilityKeyboard},
	)
	assert.Equal(t, 1, r.count("wl_seat.get_keyboard"), "keyboard is requested once")
	assert.True(t, s.Snapshot().HasKeyboard)

	handleAll(t, s, CapabilitiesEvent{Capabilities: SeatCapabilityPointer})
	assert.Equal(t, 1, r.count("wl_keyboard.release"))
	assert.False(t, s.Snapshot().HasKeyboard)

	handleAll(t, s, CapabilitiesEvent{Capabilities: SeatCapabilityKeyboard | SeatCapabilityTouch})
	assert.Equal(t, 2, r.count("wl_seat.get_keyboard"))
}

func TestKeyboardReleaseNeedsSeatVersion3(t *testing.T) {
	tests := []struct {
		name        string
		seatVersion uint32
		wantRelease int
	}{
		{name: "seat v1", seatVersion: 1},
		{name: "seat v2", seatVersion: 2},
		{name: "seat v3", seatVersion: 3, wantRelease: 1},
		{name: "seat v5", seatVersion: 5, wantRelease: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Run("capability removed", func(t *testing.T) {
				r := newRecorder()
				s := newTestSession(t, r)
				handleAll(t, s, global(1, InterfaceSeat, tt.seatVersion))

				handleAll(t, s,
					CapabilitiesEvent{Capabilities: SeatCapabilityKeyboard},
					CapabilitiesEvent{Capabilities: SeatCapabilityPointer},
				)
				assert.Equal(t, 1, r.count("wl_seat.get_keyboard"))
				assert.Equal(t, tt.wantRelease, r.count("wl_keyboard.release"))
				assert.False(t, s.Snapshot().HasKeyboard)

				handleAll(t, s, CapabilitiesEvent{Capabilities: SeatCapabilityKeyboard})
				assert.Equal(t, 2, r.count("wl_seat.get_keyboard"), "keyboard can be reacquired")
			})

			t.Run("close", func(t *testing.T) {
				r := newRecorder()
				s := newTestSession(t, r)
				handleAll(t, s, global(1, InterfaceSeat, tt.seatVersion))
				handleAll(t, s, CapabilitiesEvent{Capabilities: SeatCapabilityKeyboard})

				require.NoError(t, s.Close())
				assert.Equal(t, tt.wantRelease, r.count("wl_keyboard.release"))
				assert.False(t, s.Snapshot().HasKeyboard)
			})
		})
	}
}

func TestExitKey(t *testing.T) {
	tests := []struct {
		name     string
		key      uint32
		state    uint32
		wantStop bool
	}{
		{name: "escape pressed", key: 1, state: KeyStatePressed, wantStop: true},
		{name: "escape released", key: 1, state: KeyStateReleased, wantStop: true},
		{name: "key 2", key: 2, state: KeyStatePressed},
		{name: "key 0", key: 0, state: KeyStatePressed},
		{name: "q", key: 16, state: KeyStatePressed},
		{name: "high code", key: 0x10001, state: KeyStatePressed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRecorder()
			s := newTestSession(t, r)
			handleAll(t, s, standardGlobals()...)
			handleAll(t, s, ConfigureEvent{Serial: 1})
			before := s.Snapshot()

			handleAll(t, s, KeyEvent{Key: tt.key, State: tt.state})

			assert.Equal(t, !tt.wantStop, s.Running())
			if tt.wantStop {
				assert.Equal(t, "exit key", s.StopReason())
				assert.Equal(t, PhaseClosed, s.Phase())
			} else {
				assert.Equal(t, before, s.Snapshot())
			}
		})
	}
}

func TestCustomExitKey(t *testing.T) {
	s := New(newRecorder(), render.Gradient{}, Options{Width: 1, Height: 1, ExitKey: 16})

	handleAll(t, s, KeyEvent{Key: 1, State: KeyStatePressed})
	assert.True(t, s.Running())

	handleAll(t, s, KeyEvent{Key: 16, State: KeyStatePressed})
	assert.False(t, s.Running())
}

func TestTerminationIsFinal(t *testing.T) {
	r := newRecorder()
	s := newTestSession(t, r)
	handleAll(t, s, global(1, InterfaceCompositor, 4), global(2, InterfaceWmBase, 2))

	handleAll(t, s, CloseEvent{})
	assert.False(t, s.Running())
	assert.Equal(t, "window closed", s.StopReason())
	calls := len(r.calls)

	handleAll(t, s,
		global(3, InterfaceShm, 1),
		ConfigureEvent{Serial: 1},
		KeyEvent{Key: 2},
		PingEvent{Serial: 3},
		CloseEvent{},
	)

	assert.False(t, s.Running())
	assert.Equal(t, "window closed", s.StopReason(), "first reason wins")
	assert.Len(t, r.calls, calls, "nothing is sent after stop")
}

func TestPhaseProgression(t *testing.T) {
	s := newTestSession(t, newRecorder())
	assert.Equal(t, PhaseUninitialized, s.Phase())

	handleAll(t, s, global(1, InterfaceCompositor, 4))
	assert.Equal(t, PhaseCompositorBound, s.Phase())

	handleAll(t, s, global(2, InterfaceWmBase, 2))
	assert.Equal(t, PhaseAwaitingConfigure, s.Phase())

	handleAll(t, s, ToplevelConfigureEvent{Width: 800, Height: 600, States: []uint32{1}})
	w, h := s.SuggestedSize()
	assert.Equal(t, int32(800), w)
	assert.Equal(t, int32(600), h)
	assert.Equal(t, PhaseAwaitingConfigure, s.Phase())

	handleAll(t, s, ConfigureEvent{Serial: 1})
	assert.Equal(t, PhaseConfigured, s.Phase())

	handleAll(t, s, BufferReleaseEvent{}, CloseEvent{})
	assert.Equal(t, PhaseClosed, s.Phase())
	assert.Equal(t, "closed", s.Phase().String())
}

func TestCloseReleasesInReverseOrder(t *testing.T) {
	r := newRecorder()
	s := New(r, render.Gradient{}, Options{Title: "test", Width: 4, Height: 4})
	handleAll(t, s, standardGlobals()...)
	handleAll(t, s, ConfigureEvent{Serial: 1}, CapabilitiesEvent{Capabilities: SeatCapabilityKeyboard})
	r.calls = nil

	require.NoError(t, s.Close())

	assert.Equal(t, []string{
		"wl_keyboard.release",
		"xdg_toplevel.destroy",
		"xdg_surface.destroy",
		"wl_buffer.destroy",
		"wl_shm_pool.destroy",
		"wl_surface.destroy",
	}, r.calls)
	assert.False(t, s.Running())

	r.calls = nil
	require.NoError(t, s.Close())
	assert.Empty(t, r.calls, "second close is a no-op")
}

func TestCloseJoinsErrors(t *testing.T) {
	r := newRecorder()
	s := New(r, render.Gradient{}, Options{Title: "test", Width: 4, Height: 4})
	handleAll(t, s, standardGlobals()...)
	r.fail["xdg_toplevel.destroy"] = errors.New("gone")
	r.fail["wl_surface.destroy"] = errors.New("also gone")

	err := s.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xdg_toplevel")
	assert.Contains(t, err.Error(), "wl_surface")
	assert.Equal(t, 1, r.count("wl_buffer.destroy"), "later objects are still released")
}

func TestRun(t *testing.T) {
	t.Run("stops on exit key and drops the rest of the batch", func(t *testing.T) {
		r := newRecorder()
		s := newTestSession(t, r)
		src := &scriptSource{
			initial: standardGlobals(),
			batches: [][]Event{
				{ConfigureEvent{Serial: 1}, CapabilitiesEvent{Capabilities: SeatCapabilityKeyboard}},
				{KeyEvent{Key: 30}},
				{KeyEvent{Key: 1, State: KeyStatePressed}, ConfigureEvent{Serial: 2}},
				{ConfigureEvent{Serial: 3}},
			},
		}

		require.NoError(t, s.Run(context.Background(), src))

		assert.Equal(t, 3, src.reads, "the loop ends at the batch boundary")
		assert.Equal(t, "exit key", s.StopReason())
		assert.Equal(t, 1, r.count("xdg_surface.ack_configure 1"))
		assert.Zero(t, r.count("xdg_surface.ack_configure 2"))
	})

	t.Run("stops on close", func(t *testing.T) {
		s := newTestSession(t, newRecorder())
		src := &scriptSource{
			initial: standardGlobals(),
			batches: [][]Event{{ConfigureEvent{Serial: 1}}, {CloseEvent{}}},
		}

		require.NoError(t, s.Run(context.Background(), src))
		assert.Equal(t, "window closed", s.StopReason())
	})

	t.Run("missing globals abort before reading", func(t *testing.T) {
		s := newTestSession(t, newRecorder())
		src := &scriptSource{
			initial: []Event{global(1, InterfaceCompositor, 4)},
			batches: [][]Event{{CloseEvent{}}},
		}

		err := s.Run(context.Background(), src)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrProtocolViolation)
		assert.Zero(t, src.reads)
	})

	t.Run("handler errors abort the loop", func(t *testing.T) {
		s := newTestSession(t, newRecorder())
		src := &scriptSource{
			initial: standardGlobals(),
			batches: [][]Event{{global(9, InterfaceShm, 1)}},
		}

		err := s.Run(context.Background(), src)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrProtocolViolation)
		assert.Contains(t, err.Error(), "wl_registry.global")
	})

	t.Run("read errors are connection errors", func(t *testing.T) {
		s := newTestSession(t, newRecorder())
		src := &scriptSource{initial: standardGlobals()}

		err := s.Run(context.Background(), src)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrConnection)
		assert.ErrorIs(t, err, errEndOfScript)
	})

	t.Run("display errors while reading stay protocol violations", func(t *testing.T) {
		s := newTestSession(t, newRecorder())
		src := &scriptSource{
			initial: standardGlobals(),
			readErr: violation("display", "", "compositor reported error %d: %s", 1, "invalid object"),
		}

		err := s.Run(context.Background(), src)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrProtocolViolation)
		assert.NotErrorIs(t, err, ErrConnection)
		var perr *ProtocolError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, "display", perr.Op)
	})

	t.Run("cancelled context ends cleanly", func(t *testing.T) {
		s := newTestSession(t, newRecorder())
		src := &scriptSource{initial: standardGlobals()}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		require.NoError(t, s.Run(ctx, src))
		assert.Equal(t, "cancelled", s.StopReason())
		assert.Zero(t, src.reads)
	})
}
