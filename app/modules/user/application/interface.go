package userservice

import (
	"context"

	authdomain "github.com/Black-And-White-Club/flagboard/app/modules/auth/domain"
	userdomain "github.com/Black-And-White-Club/flagboard/app/modules/user/domain"
)

// Service is the identity reconciliation job.
type Service interface {
	// Scan reads users and the username index and reports drift. It never writes.
	Scan(ctx context.Context) (ScanReport, error)

	// Fix re-scans and, after confirm approves the plan, commits the repair.
	// Only admins may call it.
	Fix(ctx context.Context, caller *authdomain.Claims, confirm ConfirmFunc) (FixResult, error)
}

// ConfirmFunc is shown the plan before anything is written. Returning false
// cancels the repair.
type ConfirmFunc func(ctx context.Context, plan PlanSummary) (bool, error)

// ScanReport is the outcome of Scan.
type ScanReport struct {
	userdomain.Report
	Issues int      `json:"issues"`
	Lines  []string `json:"lines"`
}

// FixStatus is the outcome of Fix.
type FixStatus string

const (
	FixNothingToDo FixStatus = "nothing_to_do"
	FixCancelled   FixStatus = "cancelled"
	FixCompleted   FixStatus = "completed"
)

// PlanSummary is what a caller confirms.
type PlanSummary struct {
	Operations      int      `json:"operations"`
	Creates         int      `json:"creates"`
	Deletes         int      `json:"deletes"`
	UsernameUpdates int      `json:"usernameUpdates"`
	Units           int      `json:"units"`
	Lines           []string `json:"lines"`
}

// FixResult reports what Fix did.
type FixResult struct {
	Status    FixStatus   `json:"status"`
	Report    ScanReport  `json:"report"`
	Plan      PlanSummary `json:"plan"`
	Committed int         `json:"committed"`
}
