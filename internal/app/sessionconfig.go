package app

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/dkeye/Meet/internal/domain"
)

// Query parameter names understood by the page.
const (
	ParamMeetingNumber   = "meetingNumber"
	ParamPassword        = "passWord"
	ParamUserName        = "userName"
	ParamUserEmail       = "userEmail"
	ParamRole            = "role"
	ParamRegistrantToken = "registrantToken"
	ParamLeaveURL        = "leaveUrl"
	ParamUUID            = "uuid"
)

// Defaults fill parameters the page URL left out.
type Defaults struct {
	LeaveURL string
	Role     int
}

// ReadSessionConfig reads the page query into a SessionConfig. It never
// fails: a URL without meetingNumber or userName yields a config that is
// simply not Joinable.
func ReadSessionConfig(u *url.URL, d Defaults) domain.SessionConfig {
	var q url.Values
	if u != nil {
		q = u.Query()
	}
	get := func(key string) string { return strings.TrimSpace(q.Get(key)) }

	cfg := domain.SessionConfig{
		MeetingNumber:   strings.ReplaceAll(get(ParamMeetingNumber), " ", ""),
		Password:        get(ParamPassword),
		UserName:        get(ParamUserName),
		UserEmail:       get(ParamUserEmail),
		Role:            d.Role,
		RegistrantToken: get(ParamRegistrantToken),
		LeaveURL:        get(ParamLeaveURL),
		CorrelationID:   get(ParamUUID),
	}
	if cfg.LeaveURL == "" {
		cfg.LeaveURL = d.LeaveURL
	}
	if raw := get(ParamRole); raw != "" {
		if role, err := strconv.Atoi(raw); err == nil {
			cfg.Role = role
		}
	}
	return cfg
}
