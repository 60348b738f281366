package importer

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/garyjia/voucher-service/internal/domain/entity"
	"github.com/garyjia/voucher-service/pkg/utils"
)

// headerAliases lists, per canonical field, the canonical header keys that feed it, in priority order
var headerAliases = map[string][]string{
	"voucher_code":          {"voucher_code", "code"},
	"user_group":            {"user_group"},
	"status":                {"status"},
	"disabled":              {"disabled"},
	"price":                 {"price"},
	"period":                {"period"},
	"first_name":            {"first_name"},
	"last_name":             {"last_name"},
	"alias":                 {"alias"},
	"phone_number":          {"phone_number", "phone"},
	"devices":               {"devices"},
	"trafic_used_total":     {"traffic_used_total", "trafic_used_total"},
	"upload_download_limit": {"upload_download_limit"},
	"mac_binding":           {"mac_binding"},
	"created_time":          {"created_at", "created_time"},
	"activated_time":        {"activated_at", "activated_time"},
	"expired_time":          {"expired_at", "expired_time"},
}

// CanonicalHeader lowercases h and collapses every run of non-alphanumerics to "_",
// so "MAC Binding", "mac-binding" and "Traffic Used/Total" become mac_binding and traffic_used_total.
func CanonicalHeader(h string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(strings.TrimSpace(h)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	return b.String()
}

// Normalizer maps raw rows onto voucher records
type Normalizer struct {
	loc      *time.Location
	matchers []DateMatcher
}

// NewNormalizer returns a Normalizer parsing zone-less dates in loc (UTC when nil)
func NewNormalizer(loc *time.Location) *Normalizer {
	if loc == nil {
		loc = time.UTC
	}
	return &Normalizer{loc: loc, matchers: DefaultDateMatchers}
}

// Normalize converts one raw row. Imported vouchers always start unprinted.
func (n *Normalizer) Normalize(row RawRow) *entity.Voucher {
	fields := canonicalize(row)
	text := func(field string) string { return toText(fields.lookup(field)) }

	return &entity.Voucher{
		VoucherCode:         text("voucher_code"),
		UserGroup:           text("user_group"),
		Status:              entity.ParseStatus(text("status")),
		Disabled:            toBool(fields.lookup("disabled")),
		Price:               toPrice(fields.lookup("price")),
		Period:              text("period"),
		FirstName:           text("first_name"),
		LastName:            text("last_name"),
		Alias:               text("alias"),
		PhoneNumber:         text("phone_number"),
		Devices:             optionalText(text("devices")),
		TraficUsedTotal:     optionalText(text("trafic_used_total")),
		UploadDownloadLimit: optionalText(text("upload_download_limit")),
		MACBinding:          toBool(fields.lookup("mac_binding")),
		CreatedTime:         ParseDate(fields.lookup("created_time"), n.matchers, n.loc),
		ActivatedTime:       ParseDate(fields.lookup("activated_time"), n.matchers, n.loc),
		ExpiredTime:         ParseDate(fields.lookup("expired_time"), n.matchers, n.loc),
		IsPrinted:           false,
		PrintCount:          0,
	}
}

type canonicalRow map[string][]any

// canonicalize groups raw values by canonical header. Raw keys are visited in sorted order
// so the result does not depend on map iteration.
func canonicalize(row RawRow) canonicalRow {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(canonicalRow, len(row))
	for _, k := range keys {
		ck := CanonicalHeader(k)
		out[ck] = append(out[ck], row[k])
	}
	return out
}

// lookup returns the first non-empty value among the field's header aliases
func (c canonicalRow) lookup(field string) any {
	for _, alias := range headerAliases[field] {
		for _, v := range c[alias] {
			if !isEmptyValue(v) {
				return v
			}
		}
	}
	return nil
}

func isEmptyValue(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

func toText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return utils.SanitizeString(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		return t.Format(time.RFC3339)
	}
	return ""
}

func optionalText(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// toBool passes native booleans through; only "yes", "true" and "1" are true among strings
func toBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "yes", "true", "1":
			return true
		}
	}
	return false
}

// toPrice yields 0 for missing, unparsable, negative or non-finite values
func toPrice(v any) float64 {
	var price float64
	switch t := v.(type) {
	case float64:
		price = t
	case int:
		price = float64(t)
	case int64:
		price = float64(t)
	case string:
		p, err := utils.ParsePrice(t)
		if err != nil {
			return 0
		}
		price = p
	default:
		return 0
	}

	if math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
		return 0
	}
	return price
}
