package export

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/form-extractor/constants"
	"github.com/joseph-ayodele/form-extractor/internal/entity"
)

const (
	sheetFields   = "Fields"
	sheetEntities = "Entities"
	sheetText     = "Text"
	sheetErrors   = "Errors"

	maxCellChars = 32767
)

// Service renders batch outcomes as an XLSX workbook.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

type sheetWriter struct {
	f     *excelize.File
	sheet string
	row   int
}

func newSheet(f *excelize.File, sheet string, headers ...string) (*sheetWriter, error) {
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	w := &sheetWriter{f: f, sheet: sheet, row: 1}
	vals := make([]any, len(headers))
	for i, h := range headers {
		vals[i] = h
	}
	w.write(vals...)
	return w, nil
}

func (w *sheetWriter) write(vals ...any) {
	for i, v := range vals {
		cell, _ := excelize.CoordinatesToCellName(i+1, w.row)
		_ = w.f.SetCellValue(w.sheet, cell, v)
	}
	w.row++
}

// WorkbookXLSX returns the workbook bytes. Every document contributes rows to
// the sheets matching its variant; failed documents land on the Errors sheet.
func (s *Service) WorkbookXLSX(results []entity.DocumentResult) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	fields, err := newSheet(f, sheetFields, "Document", "File", "Key", "Value")
	if err != nil {
		return nil, err
	}
	ents, err := newSheet(f, sheetEntities, "Document", "File", "Category", "Value")
	if err != nil {
		return nil, err
	}
	text, err := newSheet(f, sheetText, "Document", "File", "Lines", "Average Confidence", "Text")
	if err != nil {
		return nil, err
	}
	failed, err := newSheet(f, sheetErrors, "Document", "File", "Variant", "Error")
	if err != nil {
		return nil, err
	}
	_ = f.DeleteSheet("Sheet1")
	if index, _ := f.GetSheetIndex(sheetFields); index >= 0 {
		f.SetActiveSheet(index)
	}

	for _, r := range results {
		id, name := r.Document.ID, r.Document.Filename
		switch {
		case r.Err != nil:
			failed.write(id, name, string(r.Variant), r.Err.Error())
		case r.Text != nil:
			text.write(id, name, r.Text.LineCount, r.Text.AverageConfidence, truncate(r.Text.Text, maxCellChars))
		case r.Form != nil:
			for _, fld := range r.Form.Fields {
				fields.write(id, name, fld.Key, fld.Value)
			}
		case r.Entities != nil:
			for _, fld := range r.Entities.Fields {
				fields.write(id, name, fld.Key, fld.Value)
			}
			writeEntities(ents, id, name, r.Entities.Entities)
		}
	}

	_ = f.SetColWidth(sheetFields, "A", "B", 28)
	_ = f.SetColWidth(sheetFields, "C", "D", 36)
	_ = f.SetColWidth(sheetEntities, "A", "B", 28)
	_ = f.SetColWidth(sheetEntities, "C", "C", 16)
	_ = f.SetColWidth(sheetEntities, "D", "D", 40)
	_ = f.SetColWidth(sheetText, "A", "B", 28)
	_ = f.SetColWidth(sheetText, "E", "E", 80)
	_ = f.SetColWidth(sheetErrors, "D", "D", 80)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"documents", len(results),
		"field_rows", fields.row-2,
		"entity_rows", ents.row-2,
		"failed", failed.row-2,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func writeEntities(w *sheetWriter, id, name string, e entity.ExtractedEntities) {
	sets := []struct {
		cat constants.EntityCategory
		set entity.StringSet
	}{
		{constants.CategoryNames, e.Names},
		{constants.CategoryAddresses, e.Addresses},
		{constants.CategoryPhoneNumbers, e.PhoneNumbers},
		{constants.CategoryEmails, e.Emails},
	}
	for _, s := range sets {
		for _, v := range s.set.Sorted() {
			w.write(id, name, string(s.cat), v)
		}
	}
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n-1])) + "…"
}
