package importer

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// sheetSource streams rows from the first worksheet of a workbook.
// Cells are read unformatted, so date cells arrive as Excel serial numbers.
type sheetSource struct {
	file    *excelize.File
	rows    *excelize.Rows
	headers []string
}

// OpenSheet opens a workbook and positions the reader after its header row
func OpenSheet(path string) (RowSource, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet: %w", err)
	}

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		f.Close()
		return nil, fmt.Errorf("spreadsheet has no worksheets")
	}

	rows, err := f.Rows(sheets[0])
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to read worksheet %q: %w", sheets[0], err)
	}

	src := &sheetSource{file: f, rows: rows}
	for rows.Next() {
		cells, err := rows.Columns(excelize.Options{RawCellValue: true})
		if err != nil {
			src.Close()
			return nil, fmt.Errorf("failed to read spreadsheet header: %w", err)
		}
		if !isBlank(cells) {
			src.headers = trimHeaders(cells)
			break
		}
	}
	if err := rows.Error(); err != nil {
		src.Close()
		return nil, fmt.Errorf("failed to read spreadsheet header: %w", err)
	}

	return src, nil
}

func (s *sheetSource) Next() (RawRow, error) {
	if s.headers == nil {
		return nil, io.EOF
	}

	for s.rows.Next() {
		cells, err := s.rows.Columns(excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("failed to read spreadsheet row: %w", err)
		}
		if isBlank(cells) {
			continue
		}
		return buildRow(s.headers, cells), nil
	}

	if err := s.rows.Error(); err != nil {
		return nil, fmt.Errorf("failed to read spreadsheet row: %w", err)
	}
	return nil, io.EOF
}

func (s *sheetSource) Close() error {
	if err := s.rows.Close(); err != nil {
		s.file.Close()
		return err
	}
	return s.file.Close()
}
