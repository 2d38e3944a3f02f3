package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dkeye/Meet/internal/app/lifecycle"
	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
)

func newCoord(sid core.SessionID, cfg domain.SessionConfig) *lifecycle.Coordinator {
	return lifecycle.New(sid, cfg, nil, nil, nil, lifecycle.Options{View: domain.ViewComponent})
}

func TestRegistryBindSnapshotUnbind(t *testing.T) {
	r := NewRegistry()
	b := newCoord("b", domain.SessionConfig{MeetingNumber: "2", UserName: "Bob"})
	a := newCoord("a", domain.SessionConfig{MeetingNumber: "1", UserName: "Ann"})

	canceled := false
	r.Bind("b", "client-1", b, nil)
	r.Bind("a", "client-1", a, func() { canceled = true })
	require.Equal(t, 2, r.Len())

	got, ok := r.Get("a")
	require.True(t, ok)
	require.Same(t, a, got)

	require.Equal(t, []TabInfo{
		{SID: "a", MeetingNumber: "1", UserName: "Ann", View: domain.ViewComponent, State: domain.StateIdle},
		{SID: "b", MeetingNumber: "2", UserName: "Bob", View: domain.ViewComponent, State: domain.StateIdle},
	}, r.Snapshot())

	require.True(t, r.Cancel("a"))
	require.True(t, canceled)
	require.False(t, r.Cancel("missing"))

	r.Unbind("a")
	r.Unbind("a")
	_, ok = r.Get("a")
	require.False(t, ok)
	require.ErrorIs(t, a.Join(context.Background()), domain.ErrClosed)
	require.Equal(t, 1, r.Len())
}
