package importer

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func readAll(t *testing.T, src RowSource) []RawRow {
	t.Helper()
	var rows []RawRow
	for {
		row, err := src.Next()
		if err == io.EOF {
			return rows
		}
		require.NoError(t, err)
		rows = append(rows, row)
	}
}

func TestOpenCSV(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []RawRow
	}{
		{
			name:    "comma delimited",
			content: "Voucher code,Alias\nABC,VIP\n",
			want:    []RawRow{{"Voucher code": "ABC", "Alias": "VIP"}},
		},
		{
			name:    "semicolon delimited with BOM",
			content: "\xEF\xBB\xBFVoucher code;Price\nABC;1,500\n",
			want:    []RawRow{{"Voucher code": "ABC", "Price": "1,500"}},
		},
		{
			name:    "tab delimited",
			content: "Voucher code\tStatus\nABC\tUsed\n",
			want:    []RawRow{{"Voucher code": "ABC", "Status": "Used"}},
		},
		{
			name:    "blank rows skipped and short rows padded",
			content: "Voucher code,Alias,Devices\n\n,,\nABC\n",
			want:    []RawRow{{"Voucher code": "ABC", "Alias": "", "Devices": ""}},
		},
		{
			name:    "quoted delimiter in header does not win",
			content: "\"a;b;c\",Alias\nx,y\n",
			want:    []RawRow{{"a;b;c": "x", "Alias": "y"}},
		},
		{
			name:    "header only",
			content: "Voucher code,Alias\n",
			want:    nil,
		},
		{
			name:    "empty file",
			content: "",
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := OpenCSV(writeFile(t, "in.csv", tt.content))
			require.NoError(t, err)
			defer src.Close()

			assert.Equal(t, tt.want, readAll(t, src))
		})
	}
}

func TestOpenCSV_MalformedRow(t *testing.T) {
	src, err := OpenCSV(writeFile(t, "bad.csv", "Voucher code,Alias\nABC,\"unterminated\n"))
	require.NoError(t, err)
	defer src.Close()

	_, err = src.Next()
	assert.Error(t, err)
	assert.NotEqual(t, io.EOF, err)
}

func TestOpenCSV_MissingFile(t *testing.T) {
	_, err := OpenCSV(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestFormatFromExtension(t *testing.T) {
	tests := []struct {
		name    string
		want    Format
		wantErr bool
	}{
		{"export.csv", FormatCSV, false},
		{"EXPORT.CSV", FormatCSV, false},
		{"book.xlsx", FormatSheet, false},
		{"book.xlsm", FormatSheet, false},
		{"legacy.xls", FormatSheet, false},
		{".csv", FormatCSV, false},
		{"notes.txt", "", true},
		{"noext", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FormatFromExtension(tt.name)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
