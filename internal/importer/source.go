// Package importer turns spreadsheet and delimited-text exports into voucher records.
//
// Both file kinds are read through a RowSource yielding RawRow values keyed by the
// header cell text, so the Normalizer only ever deals with one shape.
package importer

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// RawRow is one data row keyed by its header text.
// Values are strings for both sources; the normalizer also accepts bool, numbers and time.Time.
type RawRow map[string]any

// RowSource yields raw rows one at a time
type RowSource interface {
	// Next returns the next non-blank row, or io.EOF once the source is exhausted
	Next() (RawRow, error)
	Close() error
}

// Format identifies the encoding of an import file
type Format string

const (
	FormatCSV   Format = "csv"
	FormatSheet Format = "spreadsheet"
)

// ErrUnsupportedFormat is returned for file extensions no RowSource can read
var ErrUnsupportedFormat = errors.New("unsupported file format")

// FormatFromExtension maps a file name or extension onto a Format
func FormatFromExtension(name string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" && strings.HasPrefix(name, ".") {
		ext = strings.ToLower(name)
	}

	switch ext {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx", ".xlsm", ".xls":
		return FormatSheet, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
}

// OpenSource opens path with the RowSource matching format
func OpenSource(path string, format Format) (RowSource, error) {
	switch format {
	case FormatCSV:
		return OpenCSV(path)
	case FormatSheet:
		return OpenSheet(path)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

// isBlank reports whether every cell is empty after trimming
func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// buildRow pairs headers with cells. Missing trailing cells read as "".
// When a header repeats, the first non-empty cell wins.
func buildRow(headers, cells []string) RawRow {
	row := make(RawRow, len(headers))
	for i, h := range headers {
		if h == "" {
			continue
		}
		var v string
		if i < len(cells) {
			v = cells[i]
		}
		if prev, ok := row[h]; ok && prev.(string) != "" {
			continue
		}
		row[h] = v
	}
	return row
}

func trimHeaders(cells []string) []string {
	headers := make([]string, len(cells))
	for i, c := range cells {
		headers[i] = strings.TrimSpace(c)
	}
	return headers
}
