package userdomain

import (
	"cmp"
	"fmt"
	"slices"
)

// IssueKind is a category of drift between users and the username index.
type IssueKind string

const (
	// IssueOrphan is an index entry whose user does not exist.
	IssueOrphan IssueKind = "orphan"
	// IssueMissing is a user with a username but no entry under its key.
	IssueMissing IssueKind = "missing"
	// IssueMismatch is an entry pointing at a user whose username now
	// normalizes to a different key.
	IssueMismatch IssueKind = "mismatch"
	// IssueConflict is a user whose key is owned by another user. It is
	// reported but not repaired and does not count as an issue.
	IssueConflict IssueKind = "conflict"
)

// Issue is one finding of a scan.
type Issue struct {
	Kind   IssueKind `json:"kind"`
	Key    string    `json:"key"`
	UserID string    `json:"userId"`
	// Expected is the key the user should be indexed under.
	Expected string `json:"expected,omitempty"`
	// Owner is the user holding Key, for conflicts.
	Owner string `json:"owner,omitempty"`
}

func (i Issue) String() string {
	switch i.Kind {
	case IssueOrphan:
		return fmt.Sprintf("orphan: usernames/%s points to missing user %s", i.Key, i.UserID)
	case IssueMissing:
		return fmt.Sprintf("missing: user %s has no usernames/%s entry", i.UserID, i.Key)
	case IssueMismatch:
		if i.Expected == "" {
			return fmt.Sprintf("mismatch: usernames/%s points to user %s who no longer has a username", i.Key, i.UserID)
		}
		return fmt.Sprintf("mismatch: usernames/%s points to user %s whose username is now %q", i.Key, i.UserID, i.Expected)
	case IssueConflict:
		return fmt.Sprintf("conflict: user %s normalizes to %q which belongs to user %s", i.UserID, i.Key, i.Owner)
	}
	return fmt.Sprintf("%s: %s -> %s", i.Kind, i.Key, i.UserID)
}

// Report is the read-only outcome of a scan.
type Report struct {
	UsersScanned   int     `json:"usersScanned"`
	EntriesScanned int     `json:"entriesScanned"`
	Orphans        []Issue `json:"orphans"`
	Missing        []Issue `json:"missing"`
	Mismatches     []Issue `json:"mismatches"`
	Conflicts      []Issue `json:"conflicts"`
}

// Total counts orphans, missing entries and mismatches.
func (r Report) Total() int {
	return len(r.Orphans) + len(r.Missing) + len(r.Mismatches)
}

// Lines renders one line per issue, conflicts last.
func (r Report) Lines() []string {
	lines := make([]string, 0, r.Total()+len(r.Conflicts))
	for _, group := range [][]Issue{r.Orphans, r.Missing, r.Mismatches, r.Conflicts} {
		for _, i := range group {
			lines = append(lines, i.String())
		}
	}
	return lines
}

// OpKind is a single write of a repair plan.
type OpKind int

const (
	// OpPutEntry writes usernames/{Key} pointing at UserID.
	OpPutEntry OpKind = iota + 1
	// OpDeleteEntry removes usernames/{Key}.
	OpDeleteEntry
	// OpSetUsername rewrites users/{UserID}.username to Username.
	OpSetUsername
)

type PlanOp struct {
	Kind        OpKind
	Key         string
	UserID      string
	Username    string
	DisplayName string
}

// PlanUnit groups the writes repairing one issue; a unit is committed whole.
type PlanUnit struct {
	Issue Issue
	Ops   []PlanOp
}

// Plan is the ordered list of units that brings the index in line with users.
type Plan struct {
	Units []PlanUnit
}

// Operations is the number of writes in the plan.
func (p Plan) Operations() int {
	n := 0
	for _, u := range p.Units {
		n += len(u.Ops)
	}
	return n
}

// Count returns the number of writes of the given kind.
func (p Plan) Count(kind OpKind) int {
	n := 0
	for _, u := range p.Units {
		for _, op := range u.Ops {
			if op.Kind == kind {
				n++
			}
		}
	}
	return n
}

// Reconciliation is the scan report together with the plan that repairs it.
type Reconciliation struct {
	Report Report
	Plan   Plan
}

// Reconcile classifies drift between users and entries and plans the repair.
//
// Every key ends up owned by exactly one user: an entry that already points at
// a user normalizing to its key keeps it; otherwise the lowest user id among
// the users normalizing to the key wins. Keys freed by an orphan or mismatch
// are handed to their owner instead of deleted, so a scan after applying the
// plan finds nothing.
func Reconcile(users []User, entries []UsernameEntry) Reconciliation {
	byID := make(map[string]User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	byKey := make(map[string]UsernameEntry, len(entries))
	for _, e := range entries {
		byKey[e.Key] = e
	}

	sortedUsers := slices.Clone(users)
	slices.SortFunc(sortedUsers, func(a, b User) int { return cmp.Compare(a.ID, b.ID) })
	sortedEntries := slices.Clone(entries)
	slices.SortFunc(sortedEntries, func(a, b UsernameEntry) int { return cmp.Compare(a.Key, b.Key) })

	owner := make(map[string]string)
	for _, e := range sortedEntries {
		if u, ok := byID[e.UserID]; ok && u.NormalizedUsername() == e.Key {
			owner[e.Key] = u.ID
		}
	}
	for _, u := range sortedUsers {
		if key := u.NormalizedUsername(); key != "" {
			if _, taken := owner[key]; !taken {
				owner[key] = u.ID
			}
		}
	}

	put := func(key string) PlanOp {
		u := byID[owner[key]]
		return PlanOp{Kind: OpPutEntry, Key: key, UserID: u.ID, Username: u.Username, DisplayName: u.DisplayName}
	}
	release := func(key string) PlanOp {
		if _, ok := owner[key]; ok {
			return put(key)
		}
		return PlanOp{Kind: OpDeleteEntry, Key: key}
	}

	var rec Reconciliation
	rec.Report.UsersScanned = len(users)
	rec.Report.EntriesScanned = len(entries)
	created := make(map[string]bool)

	for _, e := range sortedEntries {
		u, exists := byID[e.UserID]
		if !exists {
			issue := Issue{Kind: IssueOrphan, Key: e.Key, UserID: e.UserID}
			rec.Report.Orphans = append(rec.Report.Orphans, issue)
			rec.Plan.Units = append(rec.Plan.Units, PlanUnit{Issue: issue, Ops: []PlanOp{release(e.Key)}})
			continue
		}

		expected := u.NormalizedUsername()
		if expected == e.Key {
			continue
		}
		issue := Issue{Kind: IssueMismatch, Key: e.Key, UserID: u.ID, Expected: expected}
		rec.Report.Mismatches = append(rec.Report.Mismatches, issue)

		var ops []PlanOp
		if expected != "" && owner[expected] == u.ID {
			ops = append(ops, put(expected))
			created[expected] = true
		}
		ops = append(ops, release(e.Key))
		if expected != "" {
			ops = append(ops, PlanOp{Kind: OpSetUsername, UserID: u.ID, Username: expected})
		}
		rec.Plan.Units = append(rec.Plan.Units, PlanUnit{Issue: issue, Ops: ops})
	}

	for _, u := range sortedUsers {
		key := u.NormalizedUsername()
		if key == "" {
			continue
		}
		if owner[key] != u.ID {
			rec.Report.Conflicts = append(rec.Report.Conflicts, Issue{Kind: IssueConflict, Key: key, UserID: u.ID, Owner: owner[key]})
		}
		if _, ok := byKey[key]; ok {
			continue
		}
		issue := Issue{Kind: IssueMissing, Key: key, UserID: u.ID}
		rec.Report.Missing = append(rec.Report.Missing, issue)
		if owner[key] == u.ID && !created[key] {
			created[key] = true
			rec.Plan.Units = append(rec.Plan.Units, PlanUnit{Issue: issue, Ops: []PlanOp{put(key)}})
		}
	}

	return rec
}
