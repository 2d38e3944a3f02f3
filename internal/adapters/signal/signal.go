// Package signal is the WebSocket side of a tab: it carries SDK calls to
// the page, page events back to the tab's coordinator, and lifecycle state
// and help replies out to the page.
package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Meet/internal/app"
	"github.com/dkeye/Meet/internal/app/lifecycle"
	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/dkeye/Meet/internal/metrics"
)

var ErrBackpressure = errors.New("backpressure")

var errConnClosed = errors.New("connection closed")

type Options struct {
	Defaults   app.Defaults
	Lifecycle  lifecycle.Options
	ReadLimit  int64
	PingPeriod time.Duration
}

type SignalWSController struct {
	Registry  *app.Registry
	Signature core.SignatureService
	Help      *HelpRateLimiter
	Metrics   *metrics.Metrics
	Opts      Options
}

func NewSignalWSController(
	reg *app.Registry,
	sig core.SignatureService,
	help *HelpRateLimiter,
	m *metrics.Metrics,
	opts Options,
) *SignalWSController {
	return &SignalWSController{
		Registry:  reg,
		Signature: sig,
		Help:      help,
		Metrics:   m,
		Opts:      opts,
	}
}

type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errConnClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

// tab groups everything owned by one bridge connection.
type tab struct {
	sid         core.SessionID
	clientToken string
	conn        *WsSignalConn
	bridge      *Bridge
	coord       *lifecycle.Coordinator
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func parseView(raw string) domain.View {
	if domain.View(raw) == domain.ViewComponent {
		return domain.ViewComponent
	}
	return domain.ViewClient
}

// HandleSignal upgrades the request and starts the tab. The query string
// carries the page's own query parameters plus view=client|component.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	clientToken := c.GetString("client_token")
	sid := core.SessionID(uuid.NewString())
	cfg := app.ReadSessionConfig(c.Request.URL, ctl.Opts.Defaults).WithCorrelationID(clientToken)
	view := parseView(c.Query("view"))

	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("view", string(view)).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	if ctl.Opts.ReadLimit > 0 {
		ws.SetReadLimit(ctl.Opts.ReadLimit)
	}

	conn := &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, 32),
	}
	bridge := NewBridge(sid, conn)

	opts := ctl.Opts.Lifecycle
	opts.View = view
	opts.Metrics = ctl.Metrics
	coord := lifecycle.New(sid, cfg, ctl.Signature, bridge, bridge, opts)

	t := &tab{
		sid:         sid,
		clientToken: clientToken,
		conn:        conn,
		bridge:      bridge,
		coord:       coord,
	}

	ctx, cancel := context.WithCancel(ctx)
	ctl.Registry.Bind(sid, clientToken, coord, cancel)
	ctl.Metrics.TabOpened()

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, t)

	ctl.sendConfig(t, cfg, view)
	bridge.OnState(coord.State())
	go ctl.autoJoin(ctx, t)
}
