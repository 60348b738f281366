package importer

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// DateMatcher recognizes one date layout. Match returns false when raw is not in that layout.
type DateMatcher struct {
	Name  string
	Match func(raw string, loc *time.Location) (time.Time, bool)
}

// Excel serials outside this range are treated as plain numbers, not dates
const (
	minExcelSerial = 1
	maxExcelSerial = 2958465 // 9999-12-31
)

// DefaultDateMatchers is the ordered list the normalizer tries
var DefaultDateMatchers = []DateMatcher{
	layoutMatcher("YYYY/MM/DD HH:mm:ss", "2006/1/2 15:04:05"),
	layoutMatcher("YYYY-MM-DD HH:mm:ss", "2006-1-2 15:04:05"),
	layoutMatcher("DD/MM/YYYY HH:mm:ss", "2/1/2006 15:04:05"),
	layoutMatcher("MM/DD/YYYY HH:mm:ss", "1/2/2006 15:04:05"),
	{Name: "RFC3339", Match: func(raw string, _ *time.Location) (time.Time, bool) {
		t, err := time.Parse(time.RFC3339, raw)
		return t, err == nil
	}},
	layoutMatcher("YYYY-MM-DD", "2006-1-2"),
	layoutMatcher("YYYY/MM/DD", "2006/1/2"),
	{Name: "Excel serial", Match: matchExcelSerial},
}

func layoutMatcher(name, layout string) DateMatcher {
	return DateMatcher{
		Name: name,
		Match: func(raw string, loc *time.Location) (time.Time, bool) {
			t, err := time.ParseInLocation(layout, raw, loc)
			return t, err == nil
		},
	}
}

func matchExcelSerial(raw string, loc *time.Location) (time.Time, bool) {
	serial, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(serial) || serial < minExcelSerial || serial > maxExcelSerial {
		return time.Time{}, false
	}
	return fromExcelSerial(serial, loc)
}

func fromExcelSerial(serial float64, loc *time.Location) (time.Time, bool) {
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return time.Time{}, false
	}
	t = t.Round(time.Second)
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc), true
}

// ParseDate resolves a raw cell to a timestamp using matchers in order.
// "", "-", "NULL" and unmatched values yield nil.
func ParseDate(value any, matchers []DateMatcher, loc *time.Location) *time.Time {
	switch v := value.(type) {
	case nil:
		return nil
	case time.Time:
		if v.IsZero() {
			return nil
		}
		return &v
	case float64:
		if v < minExcelSerial || v > maxExcelSerial {
			return nil
		}
		if t, ok := fromExcelSerial(v, loc); ok {
			return &t
		}
		return nil
	case string:
		raw := strings.TrimSpace(v)
		if raw == "" || raw == "-" || strings.EqualFold(raw, "NULL") {
			return nil
		}
		for _, m := range matchers {
			if t, ok := m.Match(raw, loc); ok {
				return &t
			}
		}
	}
	return nil
}
