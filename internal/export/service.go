package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/ecoscore/constants"
	"github.com/joseph-ayodele/ecoscore/internal/entity"
	"github.com/joseph-ayodele/ecoscore/internal/repository"
)

const (
	sheetReceipts = "Receipts"
	sheetEnergy   = "Energy"
	sheetRides    = "Rides"
	sheetSummary  = "Summary"
)

// Service produces XLSX workbooks of a user's footprint records.
type Service struct {
	records repository.RecordRepository
	logger  *slog.Logger
}

func NewService(records repository.RecordRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{records: records, logger: logger}
}

// ExportRecordsXLSX returns a workbook with one sheet per record kind plus a
// per-kind emissions summary. from/to bound the entry date inclusively; either
// may be nil.
func (s *Service) ExportRecordsXLSX(ctx context.Context, userID string, from, to *time.Time) ([]byte, error) {
	start := time.Now()

	recs, err := s.records.List(ctx, userID, "")
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	recs = filterByEntryDate(recs, from, to)

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	w := &sheetWriter{f: f}
	w.sheet(sheetSummary, []string{"Kind", "Records", "Emissions (kg CO2e)"}, 14, 10, 20)
	w.sheet(sheetReceipts, []string{"Entry Date", "Item", "Emissions (kg CO2e)", "Entry ID"}, 12, 36, 20, 38)
	w.sheet(sheetEnergy, []string{"Entry Date", "Utility", "Start Date", "End Date", "Consumption (kWh)", "Emissions (kg CO2e)", "Entry ID"},
		12, 28, 12, 12, 18, 20, 38)
	w.sheet(sheetRides, []string{"Entry Date", "Ride Date", "Provider", "Vehicle", "Distance (mi)", "Emissions (kg CO2e)", "Entry ID"},
		12, 12, 10, 10, 14, 20, 38)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}
	if idx, err := f.GetSheetIndex(sheetSummary); err == nil {
		f.SetActiveSheet(idx)
	}

	counts := map[constants.DocumentKind]int{}
	totals := map[constants.DocumentKind]float64{}
	for _, r := range recs {
		counts[r.Kind]++
		if r.EmissionsKgCO2e != nil {
			totals[r.Kind] += *r.EmissionsKgCO2e
		}
		switch {
		case r.Receipt != nil:
			for _, it := range r.Receipt.Items {
				w.row(sheetReceipts, r.EntryDate, it.ItemName, opt(it.Emissions), r.ID.String())
			}
		case r.Energy != nil:
			e := r.Energy
			w.row(sheetEnergy, r.EntryDate, opt(e.UtilityName), opt(e.StartDate), opt(e.EndDate),
				opt(e.ConsumptionKWh), opt(r.EmissionsKgCO2e), r.ID.String())
		case r.Ride != nil:
			rd := r.Ride
			w.row(sheetRides, r.EntryDate, opt(rd.RideDate), rd.Provider, rd.VehicleType,
				opt(rd.DistanceMiles), opt(r.EmissionsKgCO2e), r.ID.String())
		}
	}
	for _, k := range constants.Kinds() {
		kind := constants.DocumentKind(k)
		w.row(sheetSummary, k, counts[kind], totals[kind])
	}
	if w.err != nil {
		return nil, fmt.Errorf("xlsx fill: %w", w.err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"user_id", userID,
		"rows", len(recs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func filterByEntryDate(recs []*entity.Record, from, to *time.Time) []*entity.Record {
	if from == nil && to == nil {
		return recs
	}
	var lo, hi string
	if from != nil {
		lo = from.UTC().Format("2006-01-02")
	}
	if to != nil {
		hi = to.UTC().Format("2006-01-02")
	}
	out := recs[:0:0]
	for _, r := range recs {
		if lo != "" && r.EntryDate < lo {
			continue
		}
		if hi != "" && r.EntryDate > hi {
			continue
		}
		out = append(out, r)
	}
	return out
}

// sheetWriter appends rows and remembers the first error.
type sheetWriter struct {
	f    *excelize.File
	next map[string]int
	err  error
}

func (w *sheetWriter) sheet(name string, headers []string, widths ...float64) {
	if w.err != nil {
		return
	}
	if w.next == nil {
		w.next = map[string]int{}
	}
	if _, err := w.f.NewSheet(name); err != nil {
		w.err = err
		return
	}
	w.next[name] = 1
	vals := make([]any, len(headers))
	for i, h := range headers {
		vals[i] = h
	}
	w.row(name, vals...)
	for i, width := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := w.f.SetColWidth(name, col, col, width); err != nil {
			w.err = err
			return
		}
	}
}

func (w *sheetWriter) row(sheet string, vals ...any) {
	if w.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, w.next[sheet])
	if err != nil {
		w.err = err
		return
	}
	if err := w.f.SetSheetRow(sheet, cell, &vals); err != nil {
		w.err = err
		return
	}
	w.next[sheet]++
}

// opt renders nil pointers as empty cells.
func opt[T any](p *T) any {
	if p == nil {
		return ""
	}
	return *p
}
