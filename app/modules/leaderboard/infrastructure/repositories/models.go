package leaderboarddb

import (
	leaderboarddomain "github.com/Black-And-White-Club/flagboard/app/modules/leaderboard/domain"
	"github.com/Black-And-White-Club/flagboard/internal/docstore"
)

const (
	SubmissionsCollection = "submissions"
	LeaderboardCollection = "leaderboard"
	MetaCollection        = "leaderboardMeta"
	ProcessedCollection   = "processedSubmissions"

	// MetaDocumentID is the id of the single meta document.
	MetaDocumentID = "current"
)

// SubmissionFromDocument maps a submissions document.
func SubmissionFromDocument(doc docstore.Document) leaderboarddomain.Submission {
	return leaderboarddomain.Submission{
		ID:                 doc.ID,
		UserID:             doc.String("userId"),
		ChallengeID:        doc.String("challengeId"),
		IsCorrect:          doc.Bool("isCorrect"),
		Points:             doc.Int64("points"),
		SubmittedAt:        doc.Time("submittedAt"),
		ChallengeStartedAt: doc.Time("challengeStartedAt"),
	}
}

func entryFromDocument(doc docstore.Document) leaderboarddomain.Entry {
	userID := doc.String("userId")
	if userID == "" {
		userID = doc.ID
	}
	return leaderboarddomain.Entry{
		UserID:           userID,
		Username:         doc.String("username"),
		DisplayName:      doc.String("displayName"),
		TotalPoints:      doc.Int64("totalPoints"),
		ChallengesSolved: doc.Int64("challengesSolved"),
		Rank:             int(doc.Int64("rank")),
		Provisional:      doc.Bool("provisional"),
		LastUpdated:      doc.Time("lastUpdated"),
	}
}

func entryFields(e leaderboarddomain.Entry) map[string]any {
	return map[string]any{
		"userId":           e.UserID,
		"username":         e.Username,
		"displayName":      e.DisplayName,
		"totalPoints":      e.TotalPoints,
		"challengesSolved": e.ChallengesSolved,
		"rank":             e.Rank,
		"provisional":      e.Provisional,
		"lastUpdated":      docstore.ServerTimestamp,
	}
}

func metaFromDocument(doc docstore.Document) leaderboarddomain.Meta {
	var skipped []string
	if raw, ok := doc.Data["skippedSubmitters"].([]any); ok {
		for _, v := range raw {
			if s, ok := v.(string); ok {
				skipped = append(skipped, s)
			}
		}
	}
	return leaderboarddomain.Meta{
		Mode:              leaderboarddomain.Mode(doc.String("mode")),
		EntryCount:        int(doc.Int64("entryCount")),
		RecalculatedAt:    doc.Time("recalculatedAt"),
		SkippedSubmitters: skipped,
	}
}

func metaFields(m leaderboarddomain.Meta) map[string]any {
	skipped := make([]any, len(m.SkippedSubmitters))
	for i, s := range m.SkippedSubmitters {
		skipped[i] = s
	}
	return map[string]any{
		"mode":              string(m.Mode),
		"entryCount":        m.EntryCount,
		"recalculatedAt":    docstore.ServerTimestamp,
		"skippedSubmitters": skipped,
	}
}
