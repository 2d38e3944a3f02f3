package signal

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Meet/internal/domain"
)

func (ctl *SignalWSController) handlePing(conn *WsSignalConn) {
	ctl.sendJSON(conn, struct {
		Type string `json:"type"`
	}{"pong"})
}

func (ctl *SignalWSController) handleJoin(ctx context.Context, t *tab) {
	log.Info().Str("module", "signal").Str("sid", string(t.sid)).Msg("join")
	err := t.coord.Join(ctx)
	if ignorable(err) {
		return
	}
	if errors.Is(err, domain.ErrAlreadyInMeeting) {
		log.Debug().Str("module", "signal").Str("sid", string(t.sid)).Msg("join while in meeting")
		return
	}
	log.Debug().Err(err).Str("module", "signal").Str("sid", string(t.sid)).Msg("join ended")
}

func (ctl *SignalWSController) handleLeave(ctx context.Context, t *tab) {
	log.Info().Str("module", "signal").Str("sid", string(t.sid)).Msg("leave")
	if err := t.coord.Leave(ctx); !ignorable(err) {
		log.Debug().Err(err).Str("module", "signal").Str("sid", string(t.sid)).Msg("leave ended")
	}
}

// handleLeft runs inline: Left never waits on the page.
func (ctl *SignalWSController) handleLeft(t *tab) {
	log.Info().Str("module", "signal").Str("sid", string(t.sid)).Msg("user left through sdk")
	err := t.coord.Left()
	if ignorable(err) || errors.Is(err, domain.ErrNotInMeeting) {
		return
	}
	log.Debug().Err(err).Str("module", "signal").Str("sid", string(t.sid)).Msg("left ended")
}

func (ctl *SignalWSController) handleDisconnect(ctx context.Context, t *tab) {
	log.Warn().Str("module", "signal").Str("sid", string(t.sid)).Msg("sdk reported disconnect")
	err := t.coord.OnDisconnect(ctx)
	if ignorable(err) || errors.Is(err, domain.ErrNotInMeeting) {
		return
	}
	log.Debug().Err(err).Str("module", "signal").Str("sid", string(t.sid)).Msg("rejoin ended")
}
