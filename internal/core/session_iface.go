package core

// SessionID identifies one browser tab (the client token cookie).
type SessionID string
