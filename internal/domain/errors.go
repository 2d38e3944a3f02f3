package domain

import "errors"

var (
	ErrNetwork   = errors.New("signature service unreachable")
	ErrProtocol  = errors.New("signature service response malformed")
	ErrSDKInit   = errors.New("sdk init failed")
	ErrSDKJoin   = errors.New("sdk join failed")
	ErrSDKRejoin = errors.New("sdk rejoin failed")

	ErrAttemptInFlight  = errors.New("join attempt already in flight")
	ErrAlreadyInMeeting = errors.New("already in meeting")
	ErrNotInMeeting     = errors.New("not in meeting")
	ErrNotJoinable      = errors.New("session config is not joinable")
	ErrClosed           = errors.New("session closed")
	ErrHelpUnavailable  = errors.New("help is only available in component view")
	ErrHelpRateLimited  = errors.New("too many help requests")
)

// UserMessage turns an error into the text shown in the page notification.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNetwork), errors.Is(err, ErrProtocol):
		return "Failed to get signature"
	case errors.Is(err, ErrSDKInit):
		return "Failed to initialize the meeting client"
	case errors.Is(err, ErrSDKRejoin):
		return "Lost connection to the meeting and could not rejoin"
	case errors.Is(err, ErrSDKJoin):
		return "Failed to join the meeting"
	case errors.Is(err, ErrNotJoinable):
		return "Please provide meetingNumber and userName in the URL"
	case errors.Is(err, ErrHelpRateLimited):
		return "Help was already requested, please wait"
	default:
		return "Something went wrong"
	}
}
