package export

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/docuflow/internal/entity"
)

// Service builds XLSX workbooks from extraction results. The remote service
// can produce the same export; this local path avoids a round-trip when the
// extracted data is already in hand.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// BuildXLSX returns an XLSX workbook (as bytes) with one row per extracted
// field.
func (s *Service) BuildXLSX(doc *entity.Document, data *entity.ExtractedData) ([]byte, error) {
	if data == nil {
		return nil, fmt.Errorf("no extracted data")
	}
	start := time.Now()

	f := excelize.NewFile()
	const sheet = "Extraction"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"Field",
		"Value",
		"Document",
		"Folder",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	docName, folder := "", ""
	if doc != nil {
		docName, folder = doc.Name, doc.FolderName
	}

	names := make([]string, 0, len(data.Fields))
	for name := range data.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	row := 2
	for _, name := range names {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		write(1, name)
		write(2, cellValue(data.Fields[name]))
		write(3, docName)
		write(4, folder)
		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 28) // field name
	_ = f.SetColWidth(sheet, "B", "B", 48) // value
	_ = f.SetColWidth(sheet, "C", "C", 32) // document
	_ = f.SetColWidth(sheet, "D", "D", 20) // folder

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"document", docName,
		"rows", len(names),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// cellValue flattens a free-form extracted value into something a cell can
// hold. Nested structures render as compact JSON.
func cellValue(v any) any {
	switch t := v.(type) {
	case nil:
		return ""
	case string, bool, float64, int, int64:
		return t
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(b)
	}
}

// FileSink writes export payloads under dir, creating it if needed. Used as
// the workflow controller's export sink.
func FileSink(dir string, logger *slog.Logger) func(filename string, payload []byte) error {
	if logger == nil {
		logger = slog.Default()
	}
	return func(filename string, payload []byte) error {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create export dir: %w", err)
		}
		path := filepath.Join(dir, filepath.Base(filename))
		if err := os.WriteFile(path, payload, 0o644); err != nil {
			return fmt.Errorf("write export: %w", err)
		}
		logger.Info("export.saved", "path", path, "bytes", len(payload))
		return nil
	}
}
