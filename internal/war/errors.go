package war

import (
	"errors"
	"fmt"
)

// Conflict and state errors returned synchronously to callers. None of
// these indicate a systemic failure.
var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrRoomFull        = errors.New("room full")
	ErrRoomNotJoinable = errors.New("room not joinable")
	ErrAlreadyJoined   = errors.New("already joined")
	ErrNotAMember      = errors.New("not a member of room")

	ErrRoomNotActive     = errors.New("room not active")
	ErrNotYourTurn       = errors.New("not your turn")
	ErrUnknownActionType = errors.New("unknown action type")

	ErrConfigInvalid = errors.New("invalid room config")
)

// RejectError is a caller-correctable action rejection (insufficient
// resources, cooldown not elapsed, invalid target). It is a terminal
// answer for that request, never retried or logged as a failure.
type RejectError struct {
	Reason string
}

func (e *RejectError) Error() string {
	return e.Reason
}

// Rejectf builds a RejectError from a format string.
func Rejectf(format string, args ...any) *RejectError {
	return &RejectError{Reason: fmt.Sprintf(format, args...)}
}

// IsReject reports whether err is a caller-correctable rejection.
func IsReject(err error) bool {
	var re *RejectError
	return errors.As(err, &re)
}
