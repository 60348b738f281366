package importer

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

func writeWorkbook(t *testing.T, rows [][]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}

	path := filepath.Join(t.TempDir(), "vouchers.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestParser_ImportFromFile_CSV(t *testing.T) {
	path := writeFile(t, "vouchers.csv",
		"Voucher code,User group,Status,Price,Created at\n"+
			"AB12CD34,guests,Used,10,2024/03/10 08:30:00\n"+
			",guests,,abc,-\n")

	vouchers, err := NewParser(time.UTC, zap.NewNop()).ImportFromFile(path, FormatCSV)
	require.NoError(t, err)
	require.Len(t, vouchers, 2)

	assert.Equal(t, "AB12CD34", vouchers[0].VoucherCode)
	assert.Equal(t, 10.0, vouchers[0].Price)
	require.NotNil(t, vouchers[0].CreatedTime)

	assert.Empty(t, vouchers[1].VoucherCode)
	assert.Zero(t, vouchers[1].Price)
	assert.Nil(t, vouchers[1].CreatedTime)
}

func TestParser_ImportFromFile_SemicolonDecimalComma(t *testing.T) {
	path := writeFile(t, "vouchers.csv",
		"Voucher code;Price\n"+
			"EU000001;1,5\n"+
			"EU000002;2,500\n")

	vouchers, err := NewParser(time.UTC, zap.NewNop()).ImportFromFile(path, FormatCSV)
	require.NoError(t, err)
	require.Len(t, vouchers, 2)

	assert.Equal(t, 1.5, vouchers[0].Price)
	assert.Equal(t, 2500.0, vouchers[1].Price)
}

func TestParser_ImportFromFile_Spreadsheet(t *testing.T) {
	created := time.Date(2024, 3, 10, 8, 30, 0, 0, time.UTC)
	path := writeWorkbook(t, [][]interface{}{
		{"Voucher code", "Price", "Disabled", "Created at", "Activated at"},
		{"XL000001", 15000, true, created, "2024/03/11 09:00:00"},
		{nil, nil, nil, nil, nil},
		{"XL000002", "1,500", false, "-", nil},
	})

	vouchers, err := NewParser(time.UTC, zap.NewNop()).ImportFromFile(path, FormatSheet)
	require.NoError(t, err)
	require.Len(t, vouchers, 2)

	first := vouchers[0]
	assert.Equal(t, "XL000001", first.VoucherCode)
	assert.Equal(t, 15000.0, first.Price)
	assert.True(t, first.Disabled)
	require.NotNil(t, first.CreatedTime)
	assert.True(t, created.Equal(*first.CreatedTime), "got %s", first.CreatedTime)
	require.NotNil(t, first.ActivatedTime)
	assert.Equal(t, 11, first.ActivatedTime.Day())

	second := vouchers[1]
	assert.Equal(t, "XL000002", second.VoucherCode)
	assert.Equal(t, 1500.0, second.Price)
	assert.False(t, second.Disabled)
	assert.Nil(t, second.CreatedTime)
}

func TestParser_ImportFromFile_Errors(t *testing.T) {
	p := NewParser(time.UTC, zap.NewNop())

	_, err := p.ImportFromFile(filepath.Join(t.TempDir(), "missing.csv"), FormatCSV)
	assert.Error(t, err)

	notAWorkbook := writeFile(t, "fake.xlsx", "this is not a zip archive")
	_, err = p.ImportFromFile(notAWorkbook, FormatSheet)
	assert.Error(t, err)

	_, err = p.ImportFromFile(notAWorkbook, Format("pdf"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestParser_ImportFromFile_Empty(t *testing.T) {
	vouchers, err := NewParser(time.UTC, zap.NewNop()).ImportFromFile(writeFile(t, "empty.csv", "Voucher code\n"), FormatCSV)
	require.NoError(t, err)
	assert.Empty(t, vouchers)
}
