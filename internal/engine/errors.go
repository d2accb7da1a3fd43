package engine

import "errors"

type ErrorKind string

const (
	KindValidation   ErrorKind = "validation"
	KindPrecondition ErrorKind = "precondition"
	KindCapacity     ErrorKind = "capacity"
	KindExternalHook ErrorKind = "external_hook"
)

// Error is a rejected request. Reason is safe to show to the requester.
type Error struct {
	Kind   ErrorKind
	Reason string
}

func (e *Error) Error() string { return e.Reason }

func newError(kind ErrorKind, reason string) *Error {
	return &Error{Kind: kind, Reason: reason}
}

var (
	ErrLobbyAlreadyExists = newError(KindPrecondition, "a lobby already exists")
	ErrNoLobby            = newError(KindPrecondition, "no lobby exists")
	ErrMatchInProgress    = newError(KindPrecondition, "match already in progress")
	ErrAlreadyJoined      = newError(KindPrecondition, "already in the lobby")
	ErrNotInLobby         = newError(KindPrecondition, "not in the lobby")
	ErrNotHost            = newError(KindPrecondition, "only the host can do that")
	ErrAlreadySelected    = newError(KindPrecondition, "already on that team")
	ErrNotEnoughPlayers   = newError(KindPrecondition, "at least 2 players are needed to start the match")
	ErrLobbyFull          = newError(KindCapacity, "lobby is full")
	ErrTeamFull           = newError(KindCapacity, "team is full")
	ErrInvalidTeam        = newError(KindValidation, "invalid team")
	ErrHookFailed         = newError(KindExternalHook, "external service unavailable")
)

// KindOf returns the kind of a rejected request, or "" if err is not an *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// ReasonOf returns the requester-facing reason for err.
func ReasonOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return err.Error()
}
