package session

import (
	"github.com/bnema/waysurf/internal/logger"
)

// maybeWrapSurface turns the bare surface into an xdg toplevel as soon
// as both the surface and xdg_wm_base exist. It runs after every bind,
// so the arrival order of the two globals does not matter, and it does
// nothing once the toplevel exists.
func (s *Session) maybeWrapSurface() error {
	if s.surface == nil || s.wmBase == nil || s.toplevel != nil {
		return nil
	}

	xdgSurface, err := s.wmBase.GetXdgSurface(s.surface)
	if err != nil {
		return requestFailed("get_xdg_surface", InterfaceWmBase, err)
	}
	s.xdgSurface = xdgSurface

	toplevel, err := xdgSurface.GetToplevel()
	if err != nil {
		return requestFailed("get_toplevel", "xdg_surface", err)
	}
	s.toplevel = toplevel

	if err := toplevel.SetTitle(s.opts.Title); err != nil {
		return requestFailed("set_title", "xdg_toplevel", err)
	}

	// The initial commit carries no buffer; it asks for the first configure.
	if err := s.surface.Commit(); err != nil {
		return requestFailed("commit", "wl_surface", err)
	}

	logger.Debug("Surface wrapped as toplevel", "title", s.opts.Title, "phase", s.Phase())
	return nil
}

// handleConfigure acknowledges every configure and presents the buffer
// if it exists. Repeated configures re-attach the same buffer, which the
// compositor treats as a no-op.
func (s *Session) handleConfigure(serial uint32) error {
	if s.xdgSurface == nil {
		return violation("configure", "xdg_surface", "configure %d before the surface was wrapped", serial)
	}

	if err := s.xdgSurface.AckConfigure(serial); err != nil {
		return requestFailed("ack_configure", "xdg_surface", err)
	}
	if !s.configured {
		logger.Debug("Surface configured", "serial", serial)
	}
	s.configured = true

	if s.buffer != nil {
		return s.present()
	}
	return nil
}

// present attaches the buffer, damages all of it and commits. Callers
// guarantee the surface has been configured and the buffer exists.
func (s *Session) present() error {
	if !s.configured || s.buffer == nil {
		return violation("attach", "wl_surface", "present before configure or without a buffer")
	}
	if s.surface == nil {
		return violation("attach", "wl_surface", "no surface to present to")
	}

	if err := s.surface.Attach(s.buffer, 0, 0); err != nil {
		return requestFailed("attach", "wl_surface", err)
	}
	if err := s.surface.Damage(0, 0, int32(s.opts.Width), int32(s.opts.Height)); err != nil {
		return requestFailed("damage", "wl_surface", err)
	}
	if err := s.surface.Commit(); err != nil {
		return requestFailed("commit", "wl_surface", err)
	}

	s.presents++
	logger.Debug("Buffer presented", "count", s.presents)
	return nil
}

func (s *Session) handleToplevelConfigure(e ToplevelConfigureEvent) {
	if e.Width == s.suggestedWidth && e.Height == s.suggestedHeight {
		return
	}
	s.suggestedWidth, s.suggestedHeight = e.Width, e.Height
	// The buffer has a fixed size; the suggestion is only recorded.
	logger.Debug("Compositor suggested size", "width", e.Width, "height", e.Height, "states", e.States)
}

func (s *Session) handlePing(serial uint32) error {
	if s.wmBase == nil {
		return violation("ping", InterfaceWmBase, "ping %d without a bound xdg_wm_base", serial)
	}
	if err := s.wmBase.Pong(serial); err != nil {
		return requestFailed("pong", InterfaceWmBase, err)
	}
	return nil
}

// SuggestedSize returns the last size proposed by xdg_toplevel.configure.
func (s *Session) SuggestedSize() (int32, int32) {
	return s.suggestedWidth, s.suggestedHeight
}
