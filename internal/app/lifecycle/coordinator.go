// Package lifecycle drives one tab through signature fetch, SDK init and
// join, and back into the meeting after a disconnect.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/dkeye/Meet/internal/metrics"
	"github.com/rs/zerolog/log"
)

const (
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

type Options struct {
	// RefreshWindow is how close to expiry a signature may get before a
	// rejoin fetches a new one instead of reusing it.
	RefreshWindow   time.Duration
	SDKTimeout      time.Duration
	VideoWebRTCMode int
	View            domain.View
	Language        string
	Now             func() time.Time
	Metrics         *metrics.Metrics
}

// Coordinator owns the join lifecycle of a single tab. It is created when
// the tab's bridge connects and closed when it goes away.
type Coordinator struct {
	sid  core.SessionID
	cfg  domain.SessionConfig
	sig  core.SignatureService
	sdk  core.ConferencingSDK
	obs  core.LifecycleObserver
	opts Options

	mu       sync.Mutex
	state    domain.LifecycleState
	inFlight bool
	closed   bool
	current  domain.SignaturePayload
}

func New(
	sid core.SessionID,
	cfg domain.SessionConfig,
	sig core.SignatureService,
	sdk core.ConferencingSDK,
	obs core.LifecycleObserver,
	opts Options,
) *Coordinator {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.RefreshWindow <= 0 {
		opts.RefreshWindow = 60 * time.Second
	}
	if opts.View == "" {
		opts.View = domain.ViewClient
	}
	if obs == nil {
		obs = nopObserver{}
	}
	return &Coordinator{
		sid:  sid,
		cfg:  cfg,
		sig:  sig,
		sdk:  sdk,
		obs:  obs,
		opts: opts,
	}
}

func (c *Coordinator) SessionID() core.SessionID    { return c.sid }
func (c *Coordinator) Config() domain.SessionConfig { return c.cfg }
func (c *Coordinator) View() domain.View             { return c.opts.View }

func (c *Coordinator) State() domain.LifecycleState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// InFlight reports whether the guard is held by a running attempt.
func (c *Coordinator) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

// AutoJoin starts Join only when the page URL carried enough to join.
func (c *Coordinator) AutoJoin(ctx context.Context) error {
	if !c.cfg.Joinable() {
		log.Info().Str("module", "app.lifecycle").Str("sid", string(c.sid)).Msg("config not joinable, waiting for user")
		c.obs.OnNotify(LevelInfo, domain.UserMessage(domain.ErrNotJoinable))
		return domain.ErrNotJoinable
	}
	return c.Join(ctx)
}

// Join runs fetch, init and join. A call made while another attempt holds
// the guard returns ErrAttemptInFlight without side effects, and so does a
// call on a config that is not joinable.
func (c *Coordinator) Join(ctx context.Context) error {
	if !c.cfg.Joinable() {
		log.Warn().Str("module", "app.lifecycle").Str("sid", string(c.sid)).Msg("join refused, config not joinable")
		c.obs.OnNotify(LevelWarn, domain.UserMessage(domain.ErrNotJoinable))
		return domain.ErrNotJoinable
	}
	if err := c.acquire(domain.StateFetchingSignature, domain.StateIdle, domain.StateFailed); err != nil {
		return err
	}
	err := c.fullSequence(ctx, metrics.KindJoin)
	c.release(err)
	return err
}

// OnDisconnect handles an SDK-reported disconnect. The current signature is
// reused unless it is close to expiry. If the rejoin itself fails, one full
// restart with a fresh signature follows.
func (c *Coordinator) OnDisconnect(ctx context.Context) error {
	if err := c.acquire(domain.StateRejoining, domain.StateInMeeting); err != nil {
		return err
	}
	err := c.rejoin(ctx)
	c.release(err)
	return err
}

// Leave exits the meeting through the SDK.
func (c *Coordinator) Leave(ctx context.Context) error {
	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		return domain.ErrClosed
	case c.inFlight:
		c.mu.Unlock()
		return domain.ErrAttemptInFlight
	case c.state != domain.StateInMeeting:
		c.mu.Unlock()
		return domain.ErrNotInMeeting
	}
	c.inFlight = true
	c.mu.Unlock()

	sctx, cancel := c.sdkContext(ctx)
	err := c.sdk.Leave(sctx)
	cancel()

	c.mu.Lock()
	c.inFlight = false
	if err == nil {
		c.state = domain.StateIdle
		c.current = domain.SignaturePayload{}
	}
	state := c.state
	c.mu.Unlock()

	if err != nil {
		log.Error().Err(err).Str("module", "app.lifecycle").Str("sid", string(c.sid)).Msg("leave failed")
		c.obs.OnNotify(LevelError, "Failed to leave the meeting")
		return fmt.Errorf("leave: %w", err)
	}
	log.Info().Str("module", "app.lifecycle").Str("sid", string(c.sid)).Msg("left meeting")
	c.obs.OnState(state)
	return nil
}

// Left records that the user left through the SDK's own controls. The SDK
// is already out of the meeting, so no Leave call is made.
func (c *Coordinator) Left() error {
	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		return domain.ErrClosed
	case c.inFlight:
		c.mu.Unlock()
		return domain.ErrAttemptInFlight
	case c.state != domain.StateInMeeting:
		c.mu.Unlock()
		return domain.ErrNotInMeeting
	}
	c.state = domain.StateIdle
	c.current = domain.SignaturePayload{}
	c.mu.Unlock()

	log.Info().Str("module", "app.lifecycle").Str("sid", string(c.sid)).Msg("user left meeting")
	c.obs.OnState(domain.StateIdle)
	return nil
}

// Close tears the coordinator down. Attempts still running finish against
// a closed coordinator and report ErrClosed.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	prev := c.state
	c.state = domain.StateIdle
	c.current = domain.SignaturePayload{}
	c.mu.Unlock()
	log.Info().Str("module", "app.lifecycle").Str("sid", string(c.sid)).Stringer("from", prev).Msg("coordinator closed")
}

func (c *Coordinator) acquire(next domain.LifecycleState, allowed ...domain.LifecycleState) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return domain.ErrClosed
	}
	if c.inFlight {
		c.mu.Unlock()
		log.Debug().Str("module", "app.lifecycle").Str("sid", string(c.sid)).Msg("attempt in flight, ignoring trigger")
		return domain.ErrAttemptInFlight
	}
	ok := false
	for _, s := range allowed {
		if c.state == s {
			ok = true
			break
		}
	}
	if !ok {
		state := c.state
		c.mu.Unlock()
		if state == domain.StateInMeeting {
			return domain.ErrAlreadyInMeeting
		}
		return domain.ErrNotInMeeting
	}
	c.inFlight = true
	c.mu.Unlock()

	c.transition(next)
	return nil
}

// release settles the final state in the same critical section that drops
// the guard, so a retry never sees a free guard next to a busy state.
func (c *Coordinator) release(err error) {
	next := domain.StateInMeeting
	if err != nil {
		next = domain.StateFailed
	}

	c.mu.Lock()
	c.inFlight = false
	if c.closed {
		c.mu.Unlock()
		return
	}
	prev := c.state
	c.state = next
	c.mu.Unlock()

	if err != nil {
		log.Error().Err(err).Str("module", "app.lifecycle").Str("sid", string(c.sid)).Msg("attempt failed")
	}
	c.publish(prev, next)
	if err != nil {
		c.obs.OnNotify(LevelError, domain.UserMessage(err))
	}
}

func (c *Coordinator) transition(next domain.LifecycleState) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	prev := c.state
	c.state = next
	c.mu.Unlock()

	c.publish(prev, next)
}

func (c *Coordinator) publish(prev, next domain.LifecycleState) {
	log.Info().
		Str("module", "app.lifecycle").
		Str("sid", string(c.sid)).
		Stringer("from", prev).
		Stringer("to", next).
		Msg("state")
	c.obs.OnState(next)
}

func (c *Coordinator) checkOpen() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return domain.ErrClosed
	}
	return nil
}

// fullSequence fetches a fresh signature, then inits and joins the SDK.
func (c *Coordinator) fullSequence(ctx context.Context, kind string) error {
	payload, err := c.fetch(ctx)
	if err != nil {
		return err
	}
	if err := c.checkOpen(); err != nil {
		return err
	}
	c.transition(domain.StateJoining)

	sctx, cancel := c.sdkContext(ctx)
	defer cancel()

	if err := c.sdk.Init(sctx, c.initParams()); err != nil {
		c.opts.Metrics.ObserveJoin(kind, err)
		return fmt.Errorf("%w: %w", domain.ErrSDKInit, err)
	}
	log.Info().Str("module", "app.lifecycle").Str("sid", string(c.sid)).Msg("init success")

	err = c.sdk.Join(sctx, c.joinParams(payload))
	c.opts.Metrics.ObserveJoin(kind, err)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrSDKJoin, err)
	}
	log.Info().Str("module", "app.lifecycle").Str("sid", string(c.sid)).Str("kind", kind).Msg("join success")
	return c.checkOpen()
}

func (c *Coordinator) rejoin(ctx context.Context) error {
	c.mu.Lock()
	payload := c.current
	c.mu.Unlock()

	if payload.NearExpiry(c.opts.Now(), c.opts.RefreshWindow) {
		log.Info().Str("module", "app.lifecycle").Str("sid", string(c.sid)).Msg("signature near expiry, refreshing")
		fresh, err := c.fetch(ctx)
		if err != nil {
			return err
		}
		payload = fresh
	}
	if err := c.checkOpen(); err != nil {
		return err
	}

	sctx, cancel := c.sdkContext(ctx)
	err := c.sdk.Join(sctx, c.joinParams(payload))
	cancel()
	c.opts.Metrics.ObserveJoin(metrics.KindRejoin, err)
	if err == nil {
		log.Info().Str("module", "app.lifecycle").Str("sid", string(c.sid)).Msg("rejoin success")
		return nil
	}

	rejoinErr := fmt.Errorf("%w: %w", domain.ErrSDKRejoin, err)
	log.Warn().Err(rejoinErr).Str("module", "app.lifecycle").Str("sid", string(c.sid)).Msg("rejoin failed, restarting")
	c.obs.OnNotify(LevelWarn, "Reconnecting to the meeting")

	c.mu.Lock()
	c.current = domain.SignaturePayload{}
	c.mu.Unlock()
	if err := c.checkOpen(); err != nil {
		return err
	}
	c.transition(domain.StateFetchingSignature)

	if err := c.fullSequence(ctx, metrics.KindRestart); err != nil {
		return errors.Join(rejoinErr, err)
	}
	return nil
}

func (c *Coordinator) fetch(ctx context.Context) (domain.SignaturePayload, error) {
	payload, err := c.sig.Fetch(ctx, domain.SignatureRequest{
		MeetingNumber:   c.cfg.MeetingNumber,
		Role:            c.cfg.Role,
		UserEmail:       c.cfg.UserEmail,
		CorrelationID:   c.cfg.CorrelationID,
		VideoWebRTCMode: c.opts.VideoWebRTCMode,
	})
	if err == nil && payload.Signature == "" {
		err = fmt.Errorf("%w: no signature returned from server", domain.ErrProtocol)
	}
	c.opts.Metrics.ObserveFetch(err)
	if err != nil {
		return domain.SignaturePayload{}, fmt.Errorf("fetch signature: %w", err)
	}

	c.mu.Lock()
	c.current = payload
	c.mu.Unlock()

	ev := log.Info().Str("module", "app.lifecycle").Str("sid", string(c.sid))
	if payload.HasExpiry() {
		ev = ev.Time("expires_at", payload.ExpiresAt)
	}
	ev.Msg("signature fetched")
	return payload, nil
}

func (c *Coordinator) initParams() core.InitParams {
	return core.InitParams{
		LeaveURL:          c.cfg.LeaveURL,
		PatchJSMedia:      true,
		LeaveOnPageUnload: true,
		Language:          c.opts.Language,
		View:              c.opts.View,
	}
}

func (c *Coordinator) joinParams(p domain.SignaturePayload) core.JoinParams {
	email := c.cfg.UserEmail
	if p.ResolvedEmail != "" {
		email = p.ResolvedEmail
	}
	return core.JoinParams{
		Signature:       p.Signature,
		MeetingNumber:   c.cfg.MeetingNumber,
		Password:        c.cfg.Password,
		UserName:        c.cfg.UserName,
		UserEmail:       email,
		RegistrantToken: c.cfg.RegistrantToken,
		AccessKey:       p.AccessKey,
	}
}

func (c *Coordinator) sdkContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.opts.SDKTimeout > 0 {
		return context.WithTimeout(ctx, c.opts.SDKTimeout)
	}
	return context.WithCancel(ctx)
}

type nopObserver struct{}

func (nopObserver) OnState(domain.LifecycleState)                 {}
func (nopObserver) OnNotify(string, string)                       {}
func (nopObserver) OnHelp(*domain.HelpRequest, *domain.HelpError) {}
