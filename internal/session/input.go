package session

import (
	"github.com/bnema/waysurf/internal/logger"
)

// handleCapabilities gets a keyboard the first time the seat reports
// one, and releases it if the capability goes away.
func (s *Session) handleCapabilities(caps uint32) error {
	if s.seat == nil {
		return violation("capabilities", InterfaceSeat, "capabilities event without a bound seat")
	}

	hasKeyboard := caps&SeatCapabilityKeyboard != 0
	switch {
	case hasKeyboard && s.keyboard == nil:
		keyboard, err := s.seat.GetKeyboard()
		if err != nil {
			return requestFailed("get_keyboard", InterfaceSeat, err)
		}
		s.keyboard = keyboard
		logger.Debug("Keyboard acquired", "capabilities", caps)
	case !hasKeyboard && s.keyboard != nil:
		if err := s.releaseKeyboard(); err != nil {
			return requestFailed("release", "wl_keyboard", err)
		}
		logger.Debug("Keyboard removed from seat", "capabilities", caps)
	}
	return nil
}

func (s *Session) handleKey(e KeyEvent) {
	if e.Key != s.opts.ExitKey {
		return
	}
	s.stop("exit key")
}

// keyboardReleaseSince is the wl_seat version that added wl_keyboard.release.
const keyboardReleaseSince = 3

// releaseKeyboard drops the keyboard, sending wl_keyboard.release only
// when the bound seat version has it. Older seats have no destructor for
// the keyboard, so the handle is just forgotten.
func (s *Session) releaseKeyboard() error {
	keyboard := s.keyboard
	s.keyboard = nil
	if s.seatVersion < keyboardReleaseSince {
		logger.Debug("Dropping keyboard without release", "seat_version", s.seatVersion)
		return nil
	}
	return keyboard.Release()
}
