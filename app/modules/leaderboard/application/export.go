package leaderboardservice

import (
	"bytes"
	"context"
	"fmt"
	"path"

	leaderboarddomain "github.com/Black-And-White-Club/flagboard/app/modules/leaderboard/domain"
	"github.com/Black-And-White-Club/flagboard/internal/attr"
	"github.com/Black-And-White-Club/flagboard/internal/results"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	exportSheet     = "Leaderboard"
)

var exportHeader = []any{"Rank", "Username", "Display Name", "Points", "Solved", "Last Updated"}

// GetLeaderboard returns up to limit entries in rank order together with the
// last recalculation's meta document.
func (s *LeaderboardService) GetLeaderboard(ctx context.Context, limit int) (Standings, error) {
	result, err := withTelemetry(s, ctx, "GetLeaderboard", fmt.Sprint(limit), func(ctx context.Context) (results.OperationResult[Standings, error], error) {
		entries, err := s.repo.ListEntries(ctx, limit)
		if err != nil {
			return results.OperationResult[Standings, error]{}, err
		}
		meta, err := s.repo.GetMeta(ctx)
		if err != nil {
			return results.OperationResult[Standings, error]{}, err
		}
		return results.SuccessResult[Standings, error](Standings{Entries: entries, Meta: meta}), nil
	})
	if err != nil {
		return Standings{}, err
	}
	return *result.Success, nil
}

// ExportLeaderboard writes the full leaderboard to an XLSX workbook and
// uploads it to blob storage.
func (s *LeaderboardService) ExportLeaderboard(ctx context.Context) (ExportResult, error) {
	result, err := withTelemetry(s, ctx, "ExportLeaderboard", s.config.ExportPath, func(ctx context.Context) (results.OperationResult[ExportResult, error], error) {
		if s.blobs == nil {
			return results.FailureResult[ExportResult, error](ErrExportUnavailable), nil
		}

		entries, err := s.repo.ListEntries(ctx, 0)
		if err != nil {
			return results.OperationResult[ExportResult, error]{}, err
		}
		data, err := BuildWorkbook(entries)
		if err != nil {
			return results.OperationResult[ExportResult, error]{}, err
		}

		name := fmt.Sprintf("leaderboard-%s-%s.xlsx", s.now().UTC().Format("20060102T150405Z"), uuid.NewString()[:8])
		blobPath := path.Join(s.config.ExportPath, name)
		url, err := s.blobs.Upload(ctx, blobPath, xlsxContentType, data)
		if err != nil {
			return results.OperationResult[ExportResult, error]{}, fmt.Errorf("failed to upload export: %w", err)
		}

		s.logger.InfoContext(ctx, "Leaderboard exported",
			attr.String("path", blobPath),
			attr.Int("entries", len(entries)),
		)
		return results.SuccessResult[ExportResult, error](ExportResult{Path: blobPath, URL: url, Entries: len(entries)}), nil
	})
	if err != nil {
		return ExportResult{}, err
	}
	if result.IsFailure() {
		return ExportResult{}, *result.Failure
	}
	return *result.Success, nil
}

// BuildWorkbook renders entries as a single-sheet XLSX workbook.
func BuildWorkbook(entries []leaderboarddomain.Entry) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), exportSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	for i, e := range entries {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		rank := any(e.Rank)
		if !e.Ranked() {
			rank = "-"
		}
		lastUpdated := ""
		if !e.LastUpdated.IsZero() {
			lastUpdated = e.LastUpdated.UTC().Format("2006-01-02 15:04:05")
		}
		row := []any{rank, e.Username, e.DisplayName, e.TotalPoints, e.ChallengesSolved, lastUpdated}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(exportSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("failed to freeze header: %w", err)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}
