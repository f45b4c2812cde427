package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/bnema/waysurf/internal/logger"
)

// Run performs the initial roundtrip, checks that the required globals
// were bound, then dispatches batches from src until the session stops.
//
// The stop condition is checked between batches only: every event of a
// batch is handed to Handle, which ignores what arrives after a stop.
// Cancelling ctx also stops the loop at the next batch boundary; callers
// that need to interrupt a blocked read should close the connection, in
// which case Run returns nil if ctx was cancelled.
func (s *Session) Run(ctx context.Context, src Source) error {
	events, err := src.Roundtrip()
	if err != nil {
		return s.readFailed(ctx, "initial roundtrip", err)
	}
	if err := s.dispatch(events); err != nil {
		return err
	}
	if err := s.CheckRequired(); err != nil {
		return err
	}

	logger.Info("Session started", "title", s.opts.Title, "width", s.opts.Width, "height", s.opts.Height)

	for s.running {
		if ctx.Err() != nil {
			s.stop("cancelled")
			break
		}

		batch, err := src.ReadBatch()
		if err != nil {
			return s.readFailed(ctx, "read events", err)
		}
		if err := s.dispatch(batch); err != nil {
			return err
		}
	}

	logger.Debug("Dispatch loop finished", "reason", s.stopReason, "presents", s.presents)
	return nil
}

func (s *Session) dispatch(batch []Event) error {
	for _, ev := range batch {
		if err := s.Handle(ev); err != nil {
			return fmt.Errorf("handle %s: %w", ev.eventName(), err)
		}
	}
	return nil
}

func (s *Session) readFailed(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil {
		s.stop("cancelled")
		return nil
	}
	// wl_display.error arrives through the read path but is already classed.
	if errors.Is(err, ErrProtocolViolation) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrConnection, err)
}
