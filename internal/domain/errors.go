package domain

import "errors"

var (
	// ErrInsufficientRoster is returned when the roster cannot supply four
	// distinct same-gender options for a subject, or has fewer entries than
	// the requested round count. Structural: fail loudly, never retry forever.
	ErrInsufficientRoster = errors.New("roster too small for question generation")
	// ErrRosterNotFound indicates roster content could not be loaded.
	ErrRosterNotFound = errors.New("roster not found")
	// ErrUnknownMode indicates an unrecognized game mode.
	ErrUnknownMode = errors.New("unknown game mode")
	// ErrNoSelection is returned when an answer is submitted without a choice.
	ErrNoSelection = errors.New("no option selected")
	// ErrRoundResolved is returned when the current round was already answered.
	ErrRoundResolved = errors.New("round already answered")
	// ErrSessionFinished is returned for actions on a finished session.
	ErrSessionFinished = errors.New("session already finished")
	// ErrScoreNotFound indicates no score record exists for a player.
	ErrScoreNotFound = errors.New("score record not found")
)
