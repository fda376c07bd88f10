package engine

import "errors"

var (
	// ErrInsufficientCatalog is returned when the catalog snapshot holds
	// fewer distinct cards than the requested pair count.
	ErrInsufficientCatalog = errors.New("not enough distinct cards in catalog")

	// ErrInvalidMoveShape is returned when a flip does not consist of
	// exactly two distinct board positions dealt in the session's pool.
	ErrInvalidMoveShape = errors.New("invalid move shape")

	// ErrUnknownPlayer is returned when the acting player is not a member
	// of the session.
	ErrUnknownPlayer = errors.New("player is not a session member")

	// ErrSessionEnded is returned when a transition is attempted on a
	// session that has already ended.
	ErrSessionEnded = errors.New("session has ended")

	// ErrInvalidSession is returned by constructors when the session
	// invariants cannot be satisfied.
	ErrInvalidSession = errors.New("invalid session")

	// ErrInvalidPool is returned when a card pool violates the pairing or
	// position invariants.
	ErrInvalidPool = errors.New("invalid card pool")
)
