package domain

import "time"

// SignaturePayload is one response of the signing service. Never persisted.
type SignaturePayload struct {
	Signature     string
	AccessKey     string
	ExpiresAt     time.Time
	ResolvedEmail string
}

// HasExpiry reports whether the service (or the token itself) told us when
// the signature stops being valid.
func (p SignaturePayload) HasExpiry() bool { return !p.ExpiresAt.IsZero() }

// NearExpiry is true when the signature must be refreshed before reuse:
// the expiry is unknown or less than window away from now.
func (p SignaturePayload) NearExpiry(now time.Time, window time.Duration) bool {
	if p.Signature == "" || !p.HasExpiry() {
		return true
	}
	return p.ExpiresAt.Sub(now) < window
}

// SignatureRequest is what the signing service needs to mint a signature.
type SignatureRequest struct {
	MeetingNumber   string
	Role            int
	UserEmail       string
	CorrelationID   string
	VideoWebRTCMode int
}
