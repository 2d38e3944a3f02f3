package signal

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
)

type captureConn struct {
	mu     sync.Mutex
	frames []core.Frame
	sent   chan callFrame
	err    error
}

func newCaptureConn() *captureConn {
	return &captureConn{sent: make(chan callFrame, 8)}
}

func (c *captureConn) TrySend(f core.Frame) error {
	if c.err != nil {
		return c.err
	}
	c.mu.Lock()
	c.frames = append(c.frames, f)
	c.mu.Unlock()

	var cf callFrame
	if err := json.Unmarshal(f, &cf); err == nil && cf.Type == "sdk.call" {
		c.sent <- cf
	}
	return nil
}

func (c *captureConn) Close() {}

func (c *captureConn) decoded(t *testing.T) []map[string]any {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]map[string]any, 0, len(c.frames))
	for _, f := range c.frames {
		var m map[string]any
		require.NoError(t, json.Unmarshal(f, &m))
		out = append(out, m)
	}
	return out
}

func TestBridgeCallResolved(t *testing.T) {
	conn := newCaptureConn()
	b := NewBridge("sid", conn)

	done := make(chan error, 1)
	go func() {
		done <- b.Join(context.Background(), core.JoinParams{Signature: "abc", UserName: "React"})
	}()

	cf := <-conn.sent
	require.Equal(t, MethodJoin, cf.Method)
	params, ok := cf.Params.(map[string]any)
	require.True(t, ok)
	require.Equal(t, "abc", params["signature"])
	require.Equal(t, "React", params["userName"])

	require.True(t, b.resolve(resultFrame{Type: "sdk.result", ID: cf.ID, OK: true}))
	require.NoError(t, <-done)
	require.False(t, b.resolve(resultFrame{ID: cf.ID, OK: true}), "second result is unknown")
}

func TestBridgeCallError(t *testing.T) {
	conn := newCaptureConn()
	b := NewBridge("sid", conn)

	done := make(chan error, 1)
	go func() { done <- b.Init(context.Background(), core.InitParams{LeaveURL: "https://bye"}) }()

	cf := <-conn.sent
	require.Equal(t, MethodInit, cf.Method)
	b.resolve(resultFrame{ID: cf.ID, Error: &CallError{Code: 3712, Reason: "invalid signature"}})

	err := <-done
	var cerr *CallError
	require.True(t, errors.As(err, &cerr))
	require.Equal(t, MethodInit, cerr.Method)
	require.Equal(t, 3712, cerr.Code)
	require.Contains(t, err.Error(), "invalid signature")
}

func TestBridgeBreakoutRoom(t *testing.T) {
	conn := newCaptureConn()
	b := NewBridge("sid", conn)

	type out struct {
		room domain.BreakoutRoom
		err  error
	}
	done := make(chan out, 1)
	go func() {
		room, err := b.CurrentBreakoutRoom(context.Background())
		done <- out{room, err}
	}()

	cf := <-conn.sent
	require.Equal(t, MethodCurrentBreakoutRoom, cf.Method)
	b.resolve(resultFrame{ID: cf.ID, OK: true, Data: json.RawMessage(`{"roomId":"r1","name":"Room 1"}`)})

	got := <-done
	require.NoError(t, got.err)
	require.Equal(t, domain.BreakoutRoom{ID: "r1", Name: "Room 1"}, got.room)
}

func TestBridgeCloseFailsPending(t *testing.T) {
	conn := newCaptureConn()
	b := NewBridge("sid", conn)

	done := make(chan error, 1)
	go func() { done <- b.Leave(context.Background()) }()
	<-conn.sent

	b.Close()
	require.ErrorIs(t, <-done, ErrBridgeClosed)
	require.ErrorIs(t, b.Leave(context.Background()), ErrBridgeClosed)
	b.Close()
}

func TestBridgeCallTimeout(t *testing.T) {
	conn := newCaptureConn()
	b := NewBridge("sid", conn)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, b.Leave(ctx), context.DeadlineExceeded)
}

func TestBridgeSendFailure(t *testing.T) {
	conn := newCaptureConn()
	conn.err = ErrBackpressure
	b := NewBridge("sid", conn)

	require.ErrorIs(t, b.Leave(context.Background()), ErrBackpressure)
}

func TestBridgeObserverFrames(t *testing.T) {
	conn := newCaptureConn()
	b := NewBridge("sid", conn)

	b.OnState(domain.StateInMeeting)
	b.OnNotify("error", "Failed to get signature")
	b.OnHelp(&domain.HelpRequest{MeetingNumber: "1", UserName: "React"}, nil)
	b.OnHelp(nil, &domain.HelpError{MeetingNumber: "1", Error: "boom"})

	frames := conn.decoded(t)
	require.Len(t, frames, 4)
	require.Equal(t, map[string]any{"type": "state", "state": "in_meeting"}, frames[0])
	require.Equal(t, map[string]any{"type": "notify", "level": "error", "message": "Failed to get signature"}, frames[1])
	require.Equal(t, "HELP_REQUEST", frames[2]["type"])
	require.Equal(t, "React", frames[2]["userName"])
	require.Equal(t, "HELP_REQUEST_ERROR", frames[3]["type"])
	require.Equal(t, "boom", frames[3]["error"])
}
