// Package export writes decision audit workbooks.
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/decision"
)

const (
	DecisionsSheet = "Decisions"
	OutcomesSheet  = "Outcomes"
)

var decisionHeaders = []string{
	"Decision ID",
	"Created (UTC)",
	"Status",
	"Estimate (h)",
	"Confidence",
	"ML Enhanced",
	"Model Version",
	"Volume (m3)",
	"Distance (km)",
	"Team Size",
	"Execution (ms)",
	"Breakdown",
}

var outcomeHeaders = []string{
	"Decision ID",
	"Predicted (h)",
	"Actual (h)",
	"Deviation (h)",
	"Accurate",
	"Observed (UTC)",
}

// Service builds XLSX exports from a decision store.
type Service struct {
	store  *decision.Client
	logger *slog.Logger
}

// NewService creates an export service reading through store.
func NewService(store *decision.Client, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// ExportXLSX returns a workbook with the decisions created in [from, to) and
// the outcomes recorded for them. Stores without outcome support produce an
// empty Outcomes sheet.
func (s *Service) ExportXLSX(ctx context.Context, from, to time.Time) ([]byte, error) {
	start := time.Now()

	decisions, err := s.store.List(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}

	outcomes, err := s.store.Outcomes(ctx)
	switch {
	case errors.Is(err, decision.ErrUnsupported):
		outcomes = nil
	case err != nil:
		return nil, fmt.Errorf("list outcomes: %w", err)
	}

	buf, err := Workbook(decisions, outcomes)
	if err != nil {
		return nil, err
	}

	s.logger.Info("export complete",
		"decisions", len(decisions),
		"bytes", len(buf),
		"duration_ms", time.Since(start).Milliseconds())
	return buf, nil
}

// Workbook renders decisions and the outcomes belonging to them. Outcomes for
// decisions outside the list are dropped.
func Workbook(decisions []decision.Decision, outcomes []decision.Outcome) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", DecisionsSheet); err != nil {
		return nil, fmt.Errorf("xlsx: rename sheet: %w", err)
	}
	if _, err := f.NewSheet(OutcomesSheet); err != nil {
		return nil, fmt.Errorf("xlsx: add sheet: %w", err)
	}
	idx, _ := f.GetSheetIndex(DecisionsSheet)
	f.SetActiveSheet(idx)

	writeHeaders(f, DecisionsSheet, decisionHeaders)
	writeHeaders(f, OutcomesSheet, outcomeHeaders)

	known := make(map[string]bool, len(decisions))
	for i, d := range decisions {
		known[d.ID] = true
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(DecisionsSheet, cell, v)
		}
		write(1, d.ID)
		write(2, d.CreatedAt.UTC().Format(time.RFC3339))
		write(3, string(d.Status))
		write(4, d.Value())
		write(5, d.Confidence)
		write(6, d.Output != nil && d.Output.MLEnhanced)
		write(7, d.ModelVersion)
		write(8, d.Input.Volume)
		write(9, d.Input.Distance)
		write(10, d.Input.TeamSize)
		write(11, d.ExecutionTimeMs)
		if d.Output != nil {
			write(12, formatBreakdown(d.Output.Breakdown))
		}
	}

	row := 2
	for _, o := range outcomes {
		if !known[o.DecisionID] {
			continue
		}
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(OutcomesSheet, cell, v)
		}
		write(1, o.DecisionID)
		write(2, o.Predicted)
		write(3, o.Actual)
		write(4, o.Deviation)
		write(5, o.Accurate)
		write(6, o.ObservedAt.UTC().Format(time.RFC3339))
		row++
	}

	_ = f.SetColWidth(DecisionsSheet, "A", "A", 38)
	_ = f.SetColWidth(DecisionsSheet, "B", "B", 22)
	_ = f.SetColWidth(DecisionsSheet, "C", "K", 14)
	_ = f.SetColWidth(DecisionsSheet, "L", "L", 60)
	_ = f.SetColWidth(OutcomesSheet, "A", "A", 38)
	_ = f.SetColWidth(OutcomesSheet, "B", "E", 14)
	_ = f.SetColWidth(OutcomesSheet, "F", "F", 22)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func writeHeaders(f *excelize.File, sheet string, headers []string) {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
}

// formatBreakdown renders "key=value" pairs in key order.
func formatBreakdown(b map[string]float64) string {
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%.2f", k, b[k]))
	}
	return strings.Join(parts, " ")
}
