package leaderboardservice

import "errors"

var (
	// ErrRecalculationInProgress is returned when a recalculation is requested
	// while another one is still writing.
	ErrRecalculationInProgress = errors.New("a leaderboard recalculation is already running")

	// ErrExportUnavailable is returned when no blob store is configured.
	ErrExportUnavailable = errors.New("leaderboard export requires blob storage")
)
