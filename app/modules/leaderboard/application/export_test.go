package leaderboardservice

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	leaderboarddomain "github.com/Black-And-White-Club/flagboard/app/modules/leaderboard/domain"
	leaderboarddb "github.com/Black-And-White-Club/flagboard/app/modules/leaderboard/infrastructure/repositories"
	"github.com/Black-And-White-Club/flagboard/internal/blobstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestBuildWorkbook(t *testing.T) {
	updated := time.Date(2026, 5, 20, 17, 30, 5, 0, time.UTC)
	data, err := BuildWorkbook([]leaderboarddomain.Entry{
		{UserID: "u1", Username: "neo", DisplayName: "Neo", TotalPoints: 300, ChallengesSolved: 4, Rank: 1, LastUpdated: updated},
		{UserID: "u2", Username: "trin", DisplayName: "Trinity", TotalPoints: 50, ChallengesSolved: 1, Rank: leaderboarddomain.UnrankedRank, Provisional: true},
	})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Leaderboard"}, f.GetSheetList())
	rows, err := f.GetRows("Leaderboard")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Rank", "Username", "Display Name", "Points", "Solved", "Last Updated"}, rows[0])
	assert.Equal(t, []string{"1", "neo", "Neo", "300", "4", "2026-05-20 17:30:05"}, rows[1])
	require.GreaterOrEqual(t, len(rows[2]), 5)
	assert.Equal(t, []string{"-", "trin", "Trinity", "50", "1"}, rows[2][:5])
}

func TestExportLeaderboard(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	repo := leaderboarddb.NewRepository(store)
	require.NoError(t, repo.CreateEntry(ctx, leaderboarddomain.Entry{UserID: "u1", Username: "neo", TotalPoints: 10, ChallengesSolved: 1, Rank: 1}))
	blobs := blobstore.NewMemory()
	svc := newTestService(repo, nil, blobs, Config{ExportPath: "exports/ctf"})

	res, err := svc.ExportLeaderboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Entries)
	assert.True(t, strings.HasPrefix(res.Path, "exports/ctf/leaderboard-20260520T180000Z-"), res.Path)
	assert.True(t, strings.HasSuffix(res.Path, ".xlsx"))
	assert.Equal(t, "memory:///"+res.Path, res.URL)

	obj, ok := blobs.Object(res.Path)
	require.True(t, ok)
	assert.Equal(t, xlsxContentType, obj.ContentType)
	f, err := excelize.OpenReader(bytes.NewReader(obj.Data))
	require.NoError(t, err)
	defer f.Close()
	v, err := f.GetCellValue("Leaderboard", "B2")
	require.NoError(t, err)
	assert.Equal(t, "neo", v)
}

func TestExportLeaderboard_NoBlobStore(t *testing.T) {
	repo := &leaderboarddb.FakeRepository{}
	svc := newTestService(repo, nil, nil, Config{})

	_, err := svc.ExportLeaderboard(context.Background())
	require.ErrorIs(t, err, ErrExportUnavailable)
	assert.Empty(t, repo.Trace())
}

func TestGetLeaderboard(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	repo := leaderboarddb.NewRepository(store)
	for i, id := range []string{"c", "a", "b"} {
		require.NoError(t, repo.CreateEntry(ctx, leaderboarddomain.Entry{UserID: id, TotalPoints: int64(100 - i), Rank: i + 1}))
	}
	svc := newTestService(repo, nil, nil, Config{})

	standings, err := svc.GetLeaderboard(ctx, 2)
	require.NoError(t, err)
	require.Len(t, standings.Entries, 2)
	assert.Equal(t, "c", standings.Entries[0].UserID)
	assert.Equal(t, "a", standings.Entries[1].UserID)
	assert.Nil(t, standings.Meta)
}
