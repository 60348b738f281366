package entity

import "strings"

// VoucherStatus is the lifecycle state of a voucher, stored by its display name
type VoucherStatus string

// Status constants for Voucher
const (
	StatusNotUsed  VoucherStatus = "Not used"
	StatusUsed     VoucherStatus = "Used"
	StatusActive   VoucherStatus = "Active"
	StatusExpired  VoucherStatus = "Expired"
	StatusDisabled VoucherStatus = "Disabled"
)

// DefaultCodeLength is the length of generated voucher codes
const DefaultCodeLength = 8

var statusByKey = map[string]VoucherStatus{
	"not used": StatusNotUsed,
	"notused":  StatusNotUsed,
	"used":     StatusUsed,
	"active":   StatusActive,
	"expired":  StatusExpired,
	"disabled": StatusDisabled,
}

// ParseStatus maps a raw status value onto the enumeration.
// Matching ignores case, underscores and repeated spaces; anything unrecognized is StatusNotUsed.
func ParseStatus(raw string) VoucherStatus {
	key := strings.ToLower(strings.ReplaceAll(raw, "_", " "))
	key = strings.Join(strings.Fields(key), " ")
	if status, ok := statusByKey[key]; ok {
		return status
	}
	return StatusNotUsed
}

// Valid reports whether s is one of the enumerated statuses
func (s VoucherStatus) Valid() bool {
	switch s {
	case StatusNotUsed, StatusUsed, StatusActive, StatusExpired, StatusDisabled:
		return true
	}
	return false
}
