package moderation

import "errors"

// RejectionCode identifies why an action was refused before anything happened
type RejectionCode string

const (
	RejectSelf           RejectionCode = "self"
	RejectBot            RejectionCode = "bot"
	RejectActorHierarchy RejectionCode = "actor_hierarchy"
	RejectBotHierarchy   RejectionCode = "bot_hierarchy"
	RejectNotMember      RejectionCode = "not_member"
	RejectAlreadyBanned  RejectionCode = "already_banned"
	RejectMaxWarnings    RejectionCode = "max_warnings"
)

// Rejection is a precondition failure; its message is safe to show users
type Rejection struct {
	Code    RejectionCode
	Message string
}

func (r *Rejection) Error() string {
	return r.Message
}

func reject(code RejectionCode, message string) *Rejection {
	return &Rejection{Code: code, Message: message}
}

// AsRejection unwraps a *Rejection from err
func AsRejection(err error) (*Rejection, bool) {
	var r *Rejection
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}
