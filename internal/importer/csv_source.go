package importer

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// sniffWindow bounds how much of the file is inspected for the delimiter
const sniffWindow = 64 * 1024

// csvSource streams rows from a delimited-text file
type csvSource struct {
	file    *os.File
	reader  *csv.Reader
	headers []string
}

// OpenCSV opens a delimited-text file. The delimiter is detected from the header line.
func OpenCSV(path string) (RowSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv file: %w", err)
	}

	src, err := newCSVSource(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	src.file = f
	return src, nil
}

func newCSVSource(r io.Reader) (*csvSource, error) {
	br := bufio.NewReaderSize(r, sniffWindow)

	if prefix, _ := br.Peek(len(utf8BOM)); bytes.Equal(prefix, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	head, err := br.Peek(sniffWindow)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	reader := csv.NewReader(br)
	reader.Comma = sniffDelimiter(head)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	src := &csvSource{reader: reader}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return src, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv header: %w", err)
		}
		if !isBlank(record) {
			src.headers = trimHeaders(record)
			return src, nil
		}
	}
}

// sniffDelimiter picks the most frequent of comma, semicolon and tab on the first line
func sniffDelimiter(head []byte) rune {
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		head = head[:i]
	}

	best, bestCount := ',', 0
	inQuotes := false
	counts := map[rune]int{}
	for _, b := range head {
		switch b {
		case '"':
			inQuotes = !inQuotes
		case ',', ';', '\t':
			if !inQuotes {
				counts[rune(b)]++
			}
		}
	}
	for _, d := range []rune{',', ';', '\t'} {
		if counts[d] > bestCount {
			best, bestCount = d, counts[d]
		}
	}
	return best
}

func (s *csvSource) Next() (RawRow, error) {
	if s.headers == nil {
		return nil, io.EOF
	}

	for {
		record, err := s.reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("failed to read csv row: %w", err)
		}
		if isBlank(record) {
			continue
		}
		return buildRow(s.headers, record), nil
	}
}

func (s *csvSource) Close() error {
	if s.file == nil {
		return nil
	}
	return s.file.Close()
}
