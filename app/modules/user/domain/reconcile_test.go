package userdomain

import (
	"fmt"
	"sort"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/go-cmp/cmp"
)

// apply executes a plan against in-memory collections the way a store would.
func apply(users []User, entries []UsernameEntry, plan Plan) ([]User, []UsernameEntry) {
	userIdx := make(map[string]int, len(users))
	outUsers := make([]User, len(users))
	copy(outUsers, users)
	for i, u := range outUsers {
		userIdx[u.ID] = i
	}
	byKey := make(map[string]UsernameEntry, len(entries))
	for _, e := range entries {
		byKey[e.Key] = e
	}

	for _, unit := range plan.Units {
		for _, op := range unit.Ops {
			switch op.Kind {
			case OpPutEntry:
				byKey[op.Key] = UsernameEntry{Key: op.Key, UserID: op.UserID, Username: op.Username, DisplayName: op.DisplayName}
			case OpDeleteEntry:
				delete(byKey, op.Key)
			case OpSetUsername:
				outUsers[userIdx[op.UserID]].Username = op.Username
			}
		}
	}

	outEntries := make([]UsernameEntry, 0, len(byKey))
	for _, e := range byKey {
		outEntries = append(outEntries, e)
	}
	sort.Slice(outEntries, func(i, j int) bool { return outEntries[i].Key < outEntries[j].Key })
	return outUsers, outEntries
}

func TestReconcile(t *testing.T) {
	tests := []struct {
		name    string
		users   []User
		entries []UsernameEntry
		verify  func(t *testing.T, rec Reconciliation)
	}{
		{
			name:  "missing entry is created",
			users: []User{{ID: "u1", Username: "John Doe!", DisplayName: "John"}},
			verify: func(t *testing.T, rec Reconciliation) {
				want := []Issue{{Kind: IssueMissing, Key: "john_doe", UserID: "u1"}}
				if diff := cmp.Diff(want, rec.Report.Missing); diff != "" {
					t.Errorf("missing mismatch (-want +got):\n%s", diff)
				}
				wantOps := []PlanOp{{Kind: OpPutEntry, Key: "john_doe", UserID: "u1", Username: "John Doe!", DisplayName: "John"}}
				if diff := cmp.Diff(wantOps, rec.Plan.Units[0].Ops); diff != "" {
					t.Errorf("plan mismatch (-want +got):\n%s", diff)
				}
			},
		},
		{
			name:    "renamed user produces a mismatch triple",
			users:   []User{{ID: "u2", Username: "New Name"}},
			entries: []UsernameEntry{{Key: "old_name", UserID: "u2"}},
			verify: func(t *testing.T, rec Reconciliation) {
				if len(rec.Report.Mismatches) != 1 || rec.Report.Mismatches[0].Expected != "new_name" {
					t.Fatalf("expected one mismatch to new_name, got %+v", rec.Report.Mismatches)
				}
				if len(rec.Report.Missing) != 1 {
					t.Errorf("user without an entry under the new key is also missing, got %+v", rec.Report.Missing)
				}
				if len(rec.Plan.Units) != 1 {
					t.Fatalf("missing create should fold into the mismatch unit, got %d units", len(rec.Plan.Units))
				}
				kinds := []OpKind{}
				for _, op := range rec.Plan.Units[0].Ops {
					kinds = append(kinds, op.Kind)
				}
				if diff := cmp.Diff([]OpKind{OpPutEntry, OpDeleteEntry, OpSetUsername}, kinds); diff != "" {
					t.Errorf("triple mismatch (-want +got):\n%s", diff)
				}
			},
		},
		{
			name:    "orphan entry is deleted",
			entries: []UsernameEntry{{Key: "ghost", UserID: "gone"}},
			verify: func(t *testing.T, rec Reconciliation) {
				if len(rec.Report.Orphans) != 1 {
					t.Fatalf("expected one orphan, got %+v", rec.Report.Orphans)
				}
				if op := rec.Plan.Units[0].Ops[0]; op.Kind != OpDeleteEntry || op.Key != "ghost" {
					t.Errorf("unexpected op %+v", op)
				}
			},
		},
		{
			name:    "orphan key claimed by an existing user is repointed",
			users:   []User{{ID: "u7", Username: "Ghost"}},
			entries: []UsernameEntry{{Key: "ghost", UserID: "gone"}},
			verify: func(t *testing.T, rec Reconciliation) {
				if len(rec.Report.Missing) != 0 {
					t.Errorf("user with an entry under its key is not missing: %+v", rec.Report.Missing)
				}
				if op := rec.Plan.Units[0].Ops[0]; op.Kind != OpPutEntry || op.UserID != "u7" {
					t.Errorf("expected entry to be repointed to u7, got %+v", op)
				}
			},
		},
		{
			name: "duplicate usernames conflict, lowest id wins",
			users: []User{
				{ID: "u9", Username: "neo"},
				{ID: "u1", Username: "Neo"},
			},
			verify: func(t *testing.T, rec Reconciliation) {
				want := []Issue{{Kind: IssueConflict, Key: "neo", UserID: "u9", Owner: "u1"}}
				if diff := cmp.Diff(want, rec.Report.Conflicts); diff != "" {
					t.Errorf("conflicts mismatch (-want +got):\n%s", diff)
				}
				if rec.Plan.Operations() != 1 || rec.Plan.Units[0].Ops[0].UserID != "u1" {
					t.Errorf("expected a single create for u1, got %+v", rec.Plan.Units)
				}
			},
		},
		{
			name:    "existing owner keeps its key",
			users:   []User{{ID: "a", Username: "trinity"}, {ID: "b", Username: "Trinity"}},
			entries: []UsernameEntry{{Key: "trinity", UserID: "b"}},
			verify: func(t *testing.T, rec Reconciliation) {
				if rec.Report.Total() != 0 || rec.Plan.Operations() != 0 {
					t.Errorf("expected no work, got report %+v", rec.Report)
				}
				if len(rec.Report.Conflicts) != 1 || rec.Report.Conflicts[0].Owner != "b" {
					t.Errorf("expected conflict owned by b, got %+v", rec.Report.Conflicts)
				}
			},
		},
		{
			name:    "user who dropped their username",
			users:   []User{{ID: "u3", Username: "!!!"}},
			entries: []UsernameEntry{{Key: "morpheus", UserID: "u3"}},
			verify: func(t *testing.T, rec Reconciliation) {
				if len(rec.Report.Mismatches) != 1 {
					t.Fatalf("expected mismatch, got %+v", rec.Report)
				}
				if ops := rec.Plan.Units[0].Ops; len(ops) != 1 || ops[0].Kind != OpDeleteEntry {
					t.Errorf("expected only a delete, got %+v", ops)
				}
			},
		},
		{
			name:    "clean state",
			users:   []User{{ID: "u1", Username: "alice"}, {ID: "u2"}},
			entries: []UsernameEntry{{Key: "alice", UserID: "u1"}},
			verify: func(t *testing.T, rec Reconciliation) {
				if rec.Report.Total() != 0 || len(rec.Plan.Units) != 0 {
					t.Errorf("expected clean report, got %+v", rec.Report)
				}
				if rec.Report.UsersScanned != 2 || rec.Report.EntriesScanned != 1 {
					t.Errorf("unexpected scan counts %+v", rec.Report)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Reconcile(tt.users, tt.entries)
			tt.verify(t, rec)

			users, entries := apply(tt.users, tt.entries, rec.Plan)
			if again := Reconcile(users, entries); again.Report.Total() != 0 {
				t.Errorf("rescan after fix reported issues: %v", again.Report.Lines())
			}
		})
	}
}

func TestReconcileIsIdempotentForRandomStates(t *testing.T) {
	faker := gofakeit.New(7)
	names := []string{"neo", "Neo", "trinity", "Trinity!", "morpheus", "cypher", "tank", "  dozer ", "", "!!!"}

	for round := range 200 {
		var users []User
		nUsers := faker.IntRange(0, 12)
		for i := range nUsers {
			users = append(users, User{
				ID:          fmt.Sprintf("u%02d", i),
				Username:    names[faker.IntRange(0, len(names)-1)],
				DisplayName: faker.Name(),
			})
		}

		var entries []UsernameEntry
		seen := map[string]bool{}
		for range faker.IntRange(0, 12) {
			key := NormalizeUsername(names[faker.IntRange(0, len(names)-1)])
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			entries = append(entries, UsernameEntry{Key: key, UserID: fmt.Sprintf("u%02d", faker.IntRange(0, 15))})
		}

		rec := Reconcile(users, entries)
		gotUsers, gotEntries := apply(users, entries, rec.Plan)
		again := Reconcile(gotUsers, gotEntries)
		if again.Report.Total() != 0 {
			t.Fatalf("round %d: rescan reported %v\nusers=%+v\nentries=%+v", round, again.Report.Lines(), users, entries)
		}
		if again.Plan.Operations() != 0 {
			t.Fatalf("round %d: second plan is not empty: %+v", round, again.Plan)
		}
	}
}

func TestReportLines(t *testing.T) {
	r := Report{
		Orphans:    []Issue{{Kind: IssueOrphan, Key: "x", UserID: "gone"}},
		Mismatches: []Issue{{Kind: IssueMismatch, Key: "old", UserID: "u2", Expected: "new"}},
	}
	want := []string{
		"orphan: usernames/x points to missing user gone",
		`mismatch: usernames/old points to user u2 whose username is now "new"`,
	}
	if diff := cmp.Diff(want, r.Lines()); diff != "" {
		t.Errorf("lines mismatch (-want +got):\n%s", diff)
	}
	if r.Total() != 2 {
		t.Errorf("Total() = %d", r.Total())
	}
}
