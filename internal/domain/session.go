// Package domain holds session entities and the error taxonomy shared by
// the lifecycle and its adapters.
package domain

// View selects how the page embeds the conferencing SDK.
type View string

const (
	ViewClient    View = "client"
	ViewComponent View = "component"
)

// SessionConfig is what a page load asks for. Immutable once read.
type SessionConfig struct {
	MeetingNumber   string `json:"meetingNumber"`
	Password        string `json:"passWord"`
	UserName        string `json:"userName"`
	UserEmail       string `json:"userEmail,omitempty"`
	Role            int    `json:"role"`
	RegistrantToken string `json:"registrantToken,omitempty"`
	LeaveURL        string `json:"leaveUrl"`
	CorrelationID   string `json:"uuid,omitempty"`
}

// Joinable reports whether the config carries enough to attempt a join.
func (c SessionConfig) Joinable() bool {
	return c.MeetingNumber != "" && c.MeetingNumber != "0" && c.UserName != ""
}

// WithCorrelationID returns a copy with id filled in when none was given.
func (c SessionConfig) WithCorrelationID(id string) SessionConfig {
	if c.CorrelationID == "" {
		c.CorrelationID = id
	}
	return c
}
