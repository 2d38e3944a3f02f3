package signature

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Meet/internal/domain"
)

func serve(t *testing.T, status int, body string, seen *requestBody, calls *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			atomic.AddInt32(calls, 1)
		}
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		if seen != nil {
			require.NoError(t, json.Unmarshal(raw, seen))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

var req = domain.SignatureRequest{
	MeetingNumber:   "84634097083",
	Role:            0,
	UserEmail:       "react@zoom.us",
	CorrelationID:   "tab-1",
	VideoWebRTCMode: 1,
}

func TestFetch(t *testing.T) {
	var seen requestBody
	var calls int32
	srv := serve(t, http.StatusOK, `{"signature":"abc","zak":"zak-1","exp":1700000000,"zoomEmail":"host@example.com"}`, &seen, &calls)

	got, err := NewClient(srv.URL, time.Second).Fetch(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))

	require.Equal(t, requestBody{
		MeetingNumber:   "84634097083",
		UUID:            "tab-1",
		UserEmail:       "react@zoom.us",
		VideoWebRTCMode: 1,
	}, seen)
	require.Equal(t, domain.SignaturePayload{
		Signature:     "abc",
		AccessKey:     "zak-1",
		ExpiresAt:     time.Unix(1700000000, 0),
		ResolvedEmail: "host@example.com",
	}, got)
}

func TestFetchExpiryFromToken(t *testing.T) {
	exp := time.Unix(1800000000, 0)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"appKey": "key",
		"mn":     "84634097083",
		"role":   0,
		"iat":    exp.Add(-2 * time.Hour).Unix(),
		"exp":    exp.Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	srv := serve(t, http.StatusOK, `{"signature":"`+token+`"}`, nil, nil)

	got, err := NewClient(srv.URL, time.Second).Fetch(context.Background(), req)
	require.NoError(t, err)
	require.True(t, got.ExpiresAt.Equal(exp))
}

func TestFetchOpaqueSignatureHasNoExpiry(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"signature":"abc"}`, nil, nil)

	got, err := NewClient(srv.URL, time.Second).Fetch(context.Background(), req)
	require.NoError(t, err)
	require.False(t, got.HasExpiry())
}

func TestFetchMissingSignature(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"zak":"zak-1"}`, nil, nil)

	_, err := NewClient(srv.URL, time.Second).Fetch(context.Background(), req)
	require.ErrorIs(t, err, domain.ErrProtocol)
}

func TestFetchMalformedBody(t *testing.T) {
	srv := serve(t, http.StatusOK, `<html>`, nil, nil)

	_, err := NewClient(srv.URL, time.Second).Fetch(context.Background(), req)
	require.ErrorIs(t, err, domain.ErrProtocol)
}

func TestFetchHTTPError(t *testing.T) {
	srv := serve(t, http.StatusBadGateway, `{}`, nil, nil)

	_, err := NewClient(srv.URL, time.Second).Fetch(context.Background(), req)
	require.ErrorIs(t, err, domain.ErrNetwork)
}

func TestFetchUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, time.Second).Fetch(context.Background(), req)
	require.ErrorIs(t, err, domain.ErrNetwork)
}
