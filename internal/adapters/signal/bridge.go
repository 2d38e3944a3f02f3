package signal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
)

var ErrBridgeClosed = errors.New("sdk bridge closed")

// SDK method names understood by the page script.
const (
	MethodInit                = "init"
	MethodJoin                = "join"
	MethodLeave               = "leave"
	MethodCurrentBreakoutRoom = "getCurrentBreakoutRoom"
)

// CallError is the SDK error callback payload relayed by the page.
type CallError struct {
	Method string `json:"-"`
	Code   int    `json:"errorCode"`
	Reason string `json:"reason"`
}

func (e *CallError) Error() string {
	return fmt.Sprintf("%s: %s (code %d)", e.Method, e.Reason, e.Code)
}

type callResult struct {
	data json.RawMessage
	err  error
}

type callFrame struct {
	Type   string `json:"type"`
	ID     uint64 `json:"id"`
	Method string `json:"method"`
	Params any    `json:"params,omitempty"`
}

type resultFrame struct {
	Type  string          `json:"type"`
	ID    uint64          `json:"id"`
	OK    bool            `json:"ok"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error *CallError      `json:"error,omitempty"`
}

type pendingCall struct {
	method string
	ch     chan callResult
}

// Bridge is the conferencing SDK living in the page, reached over the
// tab's signal connection. Each call waits for exactly one sdk.result.
// It also reports lifecycle side effects back to the page.
type Bridge struct {
	sid  core.SessionID
	conn core.SignalConnection
	seq  atomic.Uint64

	mu      sync.Mutex
	pending map[uint64]pendingCall
	closed  bool
}

func NewBridge(sid core.SessionID, conn core.SignalConnection) *Bridge {
	return &Bridge{
		sid:     sid,
		conn:    conn,
		pending: make(map[uint64]pendingCall),
	}
}

func (b *Bridge) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	id := b.seq.Add(1)
	ch := make(chan callResult, 1)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrBridgeClosed
	}
	b.pending[id] = pendingCall{method: method, ch: ch}
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.pending, id)
		b.mu.Unlock()
	}()

	if err := sendJSON(b.conn, callFrame{Type: "sdk.call", ID: id, Method: method, Params: params}); err != nil {
		return nil, fmt.Errorf("send %s: %w", method, err)
	}
	log.Debug().Str("module", "signal.bridge").Str("sid", string(b.sid)).Uint64("id", id).Str("method", method).Msg("sdk call")

	select {
	case res := <-ch:
		return res.data, res.err
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", method, ctx.Err())
	}
}

// resolve completes the pending call a sdk.result frame refers to.
func (b *Bridge) resolve(f resultFrame) bool {
	b.mu.Lock()
	p, ok := b.pending[f.ID]
	delete(b.pending, f.ID)
	b.mu.Unlock()
	if !ok {
		log.Warn().Str("module", "signal.bridge").Str("sid", string(b.sid)).Uint64("id", f.ID).Msg("result for unknown call")
		return false
	}

	res := callResult{data: f.Data}
	if !f.OK {
		cerr := f.Error
		if cerr == nil {
			cerr = &CallError{Reason: "unknown error"}
		}
		cerr.Method = p.method
		res.err = cerr
	}
	p.ch <- res
	return true
}

// Close fails every pending call. Later calls fail immediately.
func (b *Bridge) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	pending := b.pending
	b.pending = make(map[uint64]pendingCall)
	b.mu.Unlock()

	for _, p := range pending {
		p.ch <- callResult{err: ErrBridgeClosed}
	}
}

func (b *Bridge) Init(ctx context.Context, p core.InitParams) error {
	_, err := b.call(ctx, MethodInit, p)
	return err
}

func (b *Bridge) Join(ctx context.Context, p core.JoinParams) error {
	_, err := b.call(ctx, MethodJoin, p)
	return err
}

func (b *Bridge) Leave(ctx context.Context) error {
	_, err := b.call(ctx, MethodLeave, nil)
	return err
}

func (b *Bridge) CurrentBreakoutRoom(ctx context.Context) (domain.BreakoutRoom, error) {
	data, err := b.call(ctx, MethodCurrentBreakoutRoom, nil)
	if err != nil {
		return domain.BreakoutRoom{}, err
	}
	var room domain.BreakoutRoom
	if len(data) == 0 || string(data) == "null" {
		return room, nil
	}
	if err := json.Unmarshal(data, &room); err != nil {
		return domain.BreakoutRoom{}, fmt.Errorf("decode breakout room: %w", err)
	}
	return room, nil
}

func (b *Bridge) OnState(state domain.LifecycleState) {
	b.emit(struct {
		Type  string                `json:"type"`
		State domain.LifecycleState `json:"state"`
	}{"state", state})
}

func (b *Bridge) OnNotify(level, message string) {
	b.emit(struct {
		Type    string `json:"type"`
		Level   string `json:"level"`
		Message string `json:"message"`
	}{"notify", level, message})
}

func (b *Bridge) OnHelp(req *domain.HelpRequest, herr *domain.HelpError) {
	if req != nil {
		b.emit(struct {
			Type string `json:"type"`
			*domain.HelpRequest
		}{"HELP_REQUEST", req})
	}
	if herr != nil {
		b.emit(struct {
			Type string `json:"type"`
			*domain.HelpError
		}{"HELP_REQUEST_ERROR", herr})
	}
}

func (b *Bridge) emit(v any) {
	if err := sendJSON(b.conn, v); err != nil {
		log.Warn().Err(err).Str("module", "signal.bridge").Str("sid", string(b.sid)).Msg("emit")
	}
}
