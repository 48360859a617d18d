package userdb

import (
	userdomain "github.com/Black-And-White-Club/flagboard/app/modules/user/domain"
	"github.com/Black-And-White-Club/flagboard/internal/docstore"
)

const (
	UsersCollection     = "users"
	UsernamesCollection = "usernames"
)

// UserFromDocument maps a users document.
func UserFromDocument(doc docstore.Document) userdomain.User {
	return userdomain.User{
		ID:               doc.ID,
		DisplayName:      doc.String("displayName"),
		Email:            doc.String("email"),
		Username:         doc.String("username"),
		Role:             userdomain.Role(doc.String("role")),
		TotalPoints:      doc.Int64("totalPoints"),
		ChallengesSolved: doc.Int64("challengesSolved"),
		LastActive:       doc.Time("lastActive"),
		LastSubmissionAt: doc.Time("lastSubmissionAt"),
	}
}

func entryFromDocument(doc docstore.Document) userdomain.UsernameEntry {
	return userdomain.UsernameEntry{
		Key:         doc.ID,
		UserID:      doc.String("userId"),
		Username:    doc.String("username"),
		DisplayName: doc.String("displayName"),
		CreatedAt:   doc.Time("createdAt"),
	}
}

// planUnits converts a repair plan into store writes, one unit per issue.
func planUnits(plan userdomain.Plan) []docstore.Unit {
	units := make([]docstore.Unit, 0, len(plan.Units))
	for _, pu := range plan.Units {
		unit := make(docstore.Unit, 0, len(pu.Ops))
		for _, op := range pu.Ops {
			switch op.Kind {
			case userdomain.OpPutEntry:
				unit = append(unit, docstore.SetWrite(UsernamesCollection, op.Key, map[string]any{
					"userId":      op.UserID,
					"username":    op.Username,
					"displayName": op.DisplayName,
					"createdAt":   docstore.ServerTimestamp,
				}))
			case userdomain.OpDeleteEntry:
				unit = append(unit, docstore.DeleteWrite(UsernamesCollection, op.Key))
			case userdomain.OpSetUsername:
				unit = append(unit, docstore.UpdateWrite(UsersCollection, op.UserID, map[string]any{
					"username": op.Username,
				}))
			}
		}
		units = append(units, unit)
	}
	return units
}
