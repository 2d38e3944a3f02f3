package signal

import (
	"context"
	"errors"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Meet/internal/domain"
)

func (ctl *SignalWSController) sendConfig(t *tab, cfg domain.SessionConfig, view domain.View) {
	resp := struct {
		Type     string               `json:"type"`
		SID      string               `json:"sid"`
		View     domain.View          `json:"view"`
		Joinable bool                 `json:"joinable"`
		Config   domain.SessionConfig `json:"config"`
	}{
		Type:     "config",
		SID:      string(t.sid),
		View:     view,
		Joinable: cfg.Joinable(),
		Config:   cfg,
	}
	ctl.sendJSON(t.conn, resp)
}

func (ctl *SignalWSController) handleResult(t *tab, data []byte) {
	var f resultFrame
	if err := json.Unmarshal(data, &f); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad sdk.result payload")
		return
	}
	t.bridge.resolve(f)
}

// ignorable reports outcomes that need no reply: the coordinator already
// told the page, or the trigger raced an attempt in flight.
func ignorable(err error) bool {
	return err == nil ||
		errors.Is(err, domain.ErrAttemptInFlight) ||
		errors.Is(err, domain.ErrClosed)
}

func (ctl *SignalWSController) autoJoin(ctx context.Context, t *tab) {
	err := t.coord.AutoJoin(ctx)
	if ignorable(err) || errors.Is(err, domain.ErrNotJoinable) {
		return
	}
	log.Debug().Err(err).Str("module", "signal").Str("sid", string(t.sid)).Msg("auto join")
}

func (ctl *SignalWSController) handleHelp(ctx context.Context, t *tab) {
	if t.coord.View() != domain.ViewComponent {
		log.Warn().Str("module", "signal").Str("sid", string(t.sid)).Msg("help signal outside component view")
		return
	}
	if !ctl.Help.Allow(t.clientToken) {
		log.Warn().Str("module", "signal").Str("sid", string(t.sid)).Msg("help rate limited")
		ctl.Metrics.ObserveHelp(domain.ErrHelpRateLimited)
		t.coord.RejectHelp(domain.ErrHelpRateLimited)
		return
	}
	if err := t.coord.AskForHelp(ctx); !ignorable(err) {
		log.Debug().Err(err).Str("module", "signal").Str("sid", string(t.sid)).Msg("help ended")
	}
}
