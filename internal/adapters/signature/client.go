// Package signature talks to the external meeting signature service.
package signature

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Meet/internal/domain"
)

const maxBody = 64 << 10

type requestBody struct {
	MeetingNumber   string `json:"meetingNumber"`
	Role            int    `json:"role"`
	UUID            string `json:"uuid,omitempty"`
	UserEmail       string `json:"userEmail,omitempty"`
	VideoWebRTCMode int    `json:"videoWebRtcMode"`
}

type responseBody struct {
	Signature string `json:"signature"`
	Zak       string `json:"zak"`
	Exp       *int64 `json:"exp"`
	ZoomEmail string `json:"zoomEmail"`
}

// Client implements core.SignatureService over HTTP.
type Client struct {
	endpoint string
	http     *http.Client
}

func NewClient(endpoint string, timeout time.Duration) *Client {
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
	}
}

// WithHTTPClient swaps the transport, mostly for tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.http = hc
	return c
}

// Fetch issues exactly one POST to the signature service.
func (c *Client) Fetch(ctx context.Context, req domain.SignatureRequest) (domain.SignaturePayload, error) {
	body, err := json.Marshal(requestBody{
		MeetingNumber:   req.MeetingNumber,
		Role:            req.Role,
		UUID:            req.CorrelationID,
		UserEmail:       req.UserEmail,
		VideoWebRTCMode: req.VideoWebRTCMode,
	})
	if err != nil {
		return domain.SignaturePayload{}, fmt.Errorf("encode signature request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.SignaturePayload{}, fmt.Errorf("%w: build request: %w", domain.ErrNetwork, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return domain.SignaturePayload{}, fmt.Errorf("%w: %w", domain.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.SignaturePayload{}, fmt.Errorf("%w: status %d", domain.ErrNetwork, resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return domain.SignaturePayload{}, fmt.Errorf("%w: read body: %w", domain.ErrNetwork, err)
	}
	var rb responseBody
	if err := json.Unmarshal(raw, &rb); err != nil {
		return domain.SignaturePayload{}, fmt.Errorf("%w: %w", domain.ErrProtocol, err)
	}
	if rb.Signature == "" {
		return domain.SignaturePayload{}, fmt.Errorf("%w: no signature returned from server", domain.ErrProtocol)
	}

	payload := domain.SignaturePayload{
		Signature:     rb.Signature,
		AccessKey:     rb.Zak,
		ResolvedEmail: rb.ZoomEmail,
	}
	if rb.Exp != nil && *rb.Exp > 0 {
		payload.ExpiresAt = time.Unix(*rb.Exp, 0)
	} else if exp, ok := tokenExpiry(rb.Signature); ok {
		payload.ExpiresAt = exp
	}

	log.Debug().
		Str("module", "adapters.signature").
		Str("meeting", req.MeetingNumber).
		Bool("zak", payload.AccessKey != "").
		Bool("expiry_known", payload.HasExpiry()).
		Msg("signature received")
	return payload, nil
}

// tokenExpiry reads the exp claim of a JWT signature without verifying it.
// The gateway never holds the signing secret; the value only schedules
// refreshes.
func tokenExpiry(signature string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(signature, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
