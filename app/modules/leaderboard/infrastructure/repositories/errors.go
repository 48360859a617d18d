package leaderboarddb

import "errors"

var (
	// ErrUserNotFound is returned when a submission references a user that
	// does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrEntryNotFound is returned when a leaderboard entry does not exist.
	ErrEntryNotFound = errors.New("leaderboard entry not found")

	// ErrAlreadyProcessed is returned when deduplication is on and the
	// submission has been applied before.
	ErrAlreadyProcessed = errors.New("submission already processed")
)
