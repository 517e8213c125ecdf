package store

import (
	"context"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/bonus-cli/internal/model"
)

// sheetHeader is the fixed column order of the backing table.
var sheetHeader = []string{"id", "name", "email", "sales", "quality", "absenteeism", "totalBono", "timestamp"}

// SheetStore keeps records in a single xlsx worksheet. Every operation reads
// or rewrites the whole table, so concurrent writers get read-modify-write
// races rather than partial rows.
type SheetStore struct {
	path      string
	sheetName string
}

// NewSheet creates a SheetStore backed by the workbook at path.
func NewSheet(path, sheetName string) *SheetStore {
	if sheetName == "" {
		sheetName = "Records"
	}
	return &SheetStore{path: path, sheetName: sheetName}
}

// Migrate creates the workbook with a header row if it does not exist yet.
func (s *SheetStore) Migrate(ctx context.Context) error {
	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return eris.Wrapf(err, "sheet: stat %s", s.path)
	}
	return s.writeAll(nil)
}

func (s *SheetStore) Close() error { return nil }

func (s *SheetStore) Insert(ctx context.Context, rec model.BonusRecord) error {
	records, err := s.loadAll()
	if err != nil {
		return err
	}
	key := rec.Key()
	for _, existing := range records {
		if existing.Key().Equal(key) {
			return eris.Wrapf(ErrDuplicate, "sheet: insert %s", key)
		}
	}
	records = append(records, rec)
	return s.writeAll(records)
}

func (s *SheetStore) ListAll(ctx context.Context) ([]model.BonusRecord, error) {
	return s.loadAll()
}

func (s *SheetStore) Get(ctx context.Context, key model.RecordKey) (*model.BonusRecord, error) {
	records, err := s.loadAll()
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].Key().Equal(key) {
			return &records[i], nil
		}
	}
	return nil, eris.Wrapf(ErrNotFound, "sheet: get %s", key)
}

func (s *SheetStore) UpdateMetrics(ctx context.Context, key model.RecordKey, m model.Metrics, total decimal.Decimal) error {
	records, err := s.loadAll()
	if err != nil {
		return err
	}
	for i := range records {
		if records[i].Key().Equal(key) {
			records[i].Metrics = m
			records[i].TotalBono = total
			return s.writeAll(records)
		}
	}
	return eris.Wrapf(ErrNotFound, "sheet: update %s", key)
}

func (s *SheetStore) Delete(ctx context.Context, key model.RecordKey) error {
	records, err := s.loadAll()
	if err != nil {
		return err
	}
	kept := records[:0]
	found := false
	for _, rec := range records {
		if rec.Key().Equal(key) {
			found = true
			continue
		}
		kept = append(kept, rec)
	}
	if !found {
		return eris.Wrapf(ErrNotFound, "sheet: delete %s", key)
	}
	return s.writeAll(kept)
}

// loadAll reads the full table. A missing workbook is an empty table.
func (s *SheetStore) loadAll() ([]model.BonusRecord, error) {
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return nil, nil
	}

	f, err := xlsx.OpenFile(s.path)
	if err != nil {
		return nil, eris.Wrapf(err, "sheet: open %s", s.path)
	}
	sheet, ok := f.Sheet[s.sheetName]
	if !ok {
		return nil, eris.Errorf("sheet: worksheet %q not found in %s", s.sheetName, s.path)
	}

	var records []model.BonusRecord
	for i, row := range sheet.Rows {
		if i == 0 {
			// Header row is never data.
			continue
		}
		rec, ok := parseRow(row)
		if !ok {
			zap.L().Warn("sheet: skipping unparseable row",
				zap.String("path", s.path),
				zap.Int("row", i),
			)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// writeAll rewrites the whole workbook: header first, then one row per record.
func (s *SheetStore) writeAll(records []model.BonusRecord) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(s.sheetName)
	if err != nil {
		return eris.Wrapf(err, "sheet: add worksheet %q", s.sheetName)
	}

	header := sheet.AddRow()
	for _, col := range sheetHeader {
		header.AddCell().SetString(col)
	}

	for _, rec := range records {
		row := sheet.AddRow()
		row.AddCell().SetString(rec.AgentID)
		row.AddCell().SetString(rec.Name)
		row.AddCell().SetString(rec.Email)
		row.AddCell().SetFloat(rec.Metrics.Sales)
		row.AddCell().SetFloat(rec.Metrics.Quality)
		row.AddCell().SetFloat(rec.Metrics.Absenteeism)
		row.AddCell().SetString(rec.TotalBono.String())
		row.AddCell().SetString(model.NormalizeTimestamp(rec.RecordedAt).Format(time.RFC3339))
	}

	if err := f.Save(s.path); err != nil {
		return eris.Wrapf(err, "sheet: save %s", s.path)
	}
	return nil
}

func parseRow(row *xlsx.Row) (model.BonusRecord, bool) {
	cells := make([]string, len(sheetHeader))
	for j := 0; j < len(cells) && j < len(row.Cells); j++ {
		cells[j] = row.Cells[j].String()
	}
	if cells[0] == "" {
		return model.BonusRecord{}, false
	}

	ts, err := model.ParseTimestamp(cells[7])
	if err != nil {
		return model.BonusRecord{}, false
	}

	total, err := decimal.NewFromString(cells[6])
	if err != nil {
		total = decimal.Zero
	}

	return model.BonusRecord{
		AgentID: cells[0],
		Name:    cells[1],
		Email:   cells[2],
		Metrics: model.Metrics{
			Sales:       model.CoerceMetric(cells[3]),
			Quality:     model.CoerceMetric(cells[4]),
			Absenteeism: model.CoerceMetric(cells[5]),
		},
		TotalBono:  total,
		RecordedAt: ts,
	}, true
}
