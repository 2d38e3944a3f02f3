package signal

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Meet/internal/core"
)

const writeWait = 5 * time.Second

func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	var ping <-chan time.Time
	if ctl.Opts.PingPeriod > 0 {
		ticker := time.NewTicker(ctl.Opts.PingPeriod)
		defer ticker.Stop()
		ping = ticker.C
	}
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Msg("writePump ctx done")
			c.Close()
			return
		case <-ping:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump ping")
				c.Close()
				return
			}
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				c.Close()
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				c.Close()
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(ctx context.Context, cancel context.CancelFunc, t *tab) {
	defer func() {
		log.Info().Str("module", "signal").Str("sid", string(t.sid)).Msg("readPump closing")
		cancel()
		t.bridge.Close()
		ctl.Registry.Unbind(t.sid)
		ctl.Metrics.TabClosed()
		t.conn.Close()
	}()

	if ctl.Opts.PingPeriod > 0 {
		pongWait := ctl.Opts.PingPeriod * 10 / 9
		_ = t.conn.conn.SetReadDeadline(time.Now().Add(pongWait))
		t.conn.conn.SetPongHandler(func(string) error {
			return t.conn.conn.SetReadDeadline(time.Now().Add(pongWait))
		})
	}

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("sid", string(t.sid)).Msg("readPump ctx done")
			return
		default:
			_, data, err := t.conn.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Error().Err(err).Str("module", "signal").Str("sid", string(t.sid)).Msg("readPump read error")
				}
				return
			}
			ctl.handleSignal(ctx, t, data)
		}
	}
}

// handleSignal runs on the read loop. Anything that waits on an SDK result
// must leave it, because results arrive through this same loop.
func (ctl *SignalWSController) handleSignal(ctx context.Context, t *tab, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad json")
		return
	}

	switch env.Type {
	case "sdk.result":
		ctl.handleResult(t, data)
	case "sdk.disconnect":
		go ctl.handleDisconnect(ctx, t)
	case "join":
		go ctl.handleJoin(ctx, t)
	case "leave":
		go ctl.handleLeave(ctx, t)
	case "sdk.left":
		ctl.handleLeft(t)
	case "ASK_FOR_HELP":
		go ctl.handleHelp(ctx, t)
	case "ping":
		ctl.handlePing(t.conn)
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown signal")
	}
}

func sendJSON(c core.SignalConnection, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return err
	}
	return c.TrySend(b)
}

func (ctl *SignalWSController) sendJSON(c *WsSignalConn, v any) {
	if err := sendJSON(c, v); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("sendJSON")
	}
}
