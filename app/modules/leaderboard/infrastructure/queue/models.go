package leaderboardqueue

import (
	"github.com/riverqueue/river"
)

// QueueName is the River queue recalculation jobs run on.
const QueueName = "leaderboard"

// RequestedBySchedule marks jobs inserted by the periodic schedule.
const RequestedBySchedule = "schedule"

// RecalculateArgs asks for a leaderboard recalculation. Only Mode takes part
// in uniqueness, so a pending job per mode absorbs repeated requests.
type RecalculateArgs struct {
	Mode        string `json:"mode" river:"unique"`
	RequestedBy string `json:"requested_by,omitempty"`
}

// Kind returns the job type identifier for River
func (RecalculateArgs) Kind() string { return "leaderboard_recalculate" }

// InsertOpts disables automatic retry; a failed pass is left for an operator.
func (RecalculateArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:       QueueName,
		MaxAttempts: 1,
		UniqueOpts: river.UniqueOpts{
			ByArgs: true,
		},
	}
}
