package core

import (
	"context"

	"github.com/dkeye/Meet/internal/domain"
)

// InitParams mirrors the SDK init options the gateway controls.
type InitParams struct {
	LeaveURL          string      `json:"leaveUrl"`
	PatchJSMedia      bool        `json:"patchJsMedia"`
	LeaveOnPageUnload bool        `json:"leaveOnPageUnload"`
	Language          string      `json:"language,omitempty"`
	View              domain.View `json:"view"`
}

// JoinParams mirrors the SDK join options. Also used to rejoin.
type JoinParams struct {
	Signature       string `json:"signature"`
	MeetingNumber   string `json:"meetingNumber"`
	Password        string `json:"passWord"`
	UserName        string `json:"userName"`
	UserEmail       string `json:"userEmail,omitempty"`
	RegistrantToken string `json:"tk,omitempty"`
	AccessKey       string `json:"zak,omitempty"`
}

// ConferencingSDK is the vendor SDK as seen from the gateway. Every call
// blocks until the SDK's success or error callback fires, or ctx ends.
type ConferencingSDK interface {
	Init(ctx context.Context, p InitParams) error
	Join(ctx context.Context, p JoinParams) error
	Leave(ctx context.Context) error
	CurrentBreakoutRoom(ctx context.Context) (domain.BreakoutRoom, error)
}

// SignatureService mints join signatures.
type SignatureService interface {
	Fetch(ctx context.Context, req domain.SignatureRequest) (domain.SignaturePayload, error)
}

// LifecycleObserver receives coordinator side effects destined for the page.
type LifecycleObserver interface {
	OnState(state domain.LifecycleState)
	OnNotify(level, message string)
	OnHelp(req *domain.HelpRequest, herr *domain.HelpError)
}
