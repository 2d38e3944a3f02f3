package domain

// BreakoutRoom is what the SDK reports for the user's current breakout room.
type BreakoutRoom struct {
	ID   string `json:"roomId,omitempty"`
	Name string `json:"name,omitempty"`
}

// HelpRequest is posted to the parent frame when the user asks for help.
type HelpRequest struct {
	MeetingNumber string        `json:"meetingNumber"`
	UserName      string        `json:"userName"`
	CorrelationID string        `json:"uuid,omitempty"`
	BreakoutRoom  *BreakoutRoom `json:"breakoutRoom,omitempty"`
}

// HelpError is posted instead of HelpRequest when the lookup failed.
type HelpError struct {
	MeetingNumber string `json:"meetingNumber"`
	CorrelationID string `json:"uuid,omitempty"`
	Error         string `json:"error"`
}
