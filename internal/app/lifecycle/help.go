package lifecycle

import (
	"context"
	"fmt"

	"github.com/dkeye/Meet/internal/domain"
	"github.com/rs/zerolog/log"
)

// AskForHelp answers the parent frame's help signal with the user's current
// breakout room. The reply goes out through the observer either way.
func (c *Coordinator) AskForHelp(ctx context.Context) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	if c.opts.View != domain.ViewComponent {
		return domain.ErrHelpUnavailable
	}

	sctx, cancel := c.sdkContext(ctx)
	room, err := c.sdk.CurrentBreakoutRoom(sctx)
	cancel()
	c.opts.Metrics.ObserveHelp(err)

	if err != nil {
		log.Error().Err(err).Str("module", "app.lifecycle").Str("sid", string(c.sid)).Msg("breakout room lookup failed")
		c.RejectHelp(err)
		return fmt.Errorf("help request: %w", err)
	}

	req := &domain.HelpRequest{
		MeetingNumber: c.cfg.MeetingNumber,
		UserName:      c.cfg.UserName,
		CorrelationID: c.cfg.CorrelationID,
	}
	if room.ID != "" || room.Name != "" {
		req.BreakoutRoom = &room
	}
	log.Info().Str("module", "app.lifecycle").Str("sid", string(c.sid)).Str("room", room.Name).Msg("help requested")
	c.obs.OnHelp(req, nil)
	return nil
}

// RejectHelp reports a help signal that could not be served.
func (c *Coordinator) RejectHelp(err error) {
	c.obs.OnHelp(nil, &domain.HelpError{
		MeetingNumber: c.cfg.MeetingNumber,
		CorrelationID: c.cfg.CorrelationID,
		Error:         err.Error(),
	})
}
