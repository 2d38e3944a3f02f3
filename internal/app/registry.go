package app

import (
	"context"
	"sort"
	"sync"

	"github.com/dkeye/Meet/internal/app/lifecycle"
	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/rs/zerolog/log"
)

type tabEntry struct {
	ClientToken string
	Coordinator *lifecycle.Coordinator
	Cancel      context.CancelFunc
}

// TabInfo is a read-only view of a connected tab for the status API.
type TabInfo struct {
	SID           core.SessionID        `json:"sid"`
	MeetingNumber string                `json:"meetingNumber"`
	UserName      string                `json:"userName"`
	View          domain.View           `json:"view"`
	State         domain.LifecycleState `json:"state"`
}

// Registry tracks the coordinator of every connected tab.
type Registry struct {
	mu   sync.RWMutex
	tabs map[core.SessionID]*tabEntry
}

func NewRegistry() *Registry {
	return &Registry{
		tabs: make(map[core.SessionID]*tabEntry),
	}
}

func (r *Registry) Bind(
	sid core.SessionID,
	clientToken string,
	coord *lifecycle.Coordinator,
	cancel context.CancelFunc,
) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tabs[sid] = &tabEntry{
		ClientToken: clientToken,
		Coordinator: coord,
		Cancel:      cancel,
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("client", clientToken).Msg("bound tab")
}

func (r *Registry) Get(sid core.SessionID) (*lifecycle.Coordinator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.tabs[sid]; ok {
		return e.Coordinator, true
	}
	return nil, false
}

// Unbind removes the tab and closes its coordinator.
func (r *Registry) Unbind(sid core.SessionID) {
	r.mu.Lock()
	e, ok := r.tabs[sid]
	delete(r.tabs, sid)
	r.mu.Unlock()
	if !ok {
		return
	}
	e.Coordinator.Close()
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("unbind tab")
}

// Cancel stops the tab's connection context; the transport unbinds it.
func (r *Registry) Cancel(sid core.SessionID) bool {
	r.mu.RLock()
	e, ok := r.tabs[sid]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("canceled tab")
	return true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tabs)
}

func (r *Registry) Snapshot() []TabInfo {
	r.mu.RLock()
	out := make([]TabInfo, 0, len(r.tabs))
	coords := make([]*lifecycle.Coordinator, 0, len(r.tabs))
	for _, e := range r.tabs {
		coords = append(coords, e.Coordinator)
	}
	r.mu.RUnlock()

	for _, c := range coords {
		cfg := c.Config()
		out = append(out, TabInfo{
			SID:           c.SessionID(),
			MeetingNumber: cfg.MeetingNumber,
			UserName:      cfg.UserName,
			View:          c.View(),
			State:         c.State(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SID < out[j].SID })
	return out
}
