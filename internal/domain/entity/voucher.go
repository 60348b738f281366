package entity

import (
	"strings"
	"time"
)

// Voucher represents a prepaid access code with usage window, pricing and print tracking
type Voucher struct {
	ID                  int64         `json:"id"`
	VoucherCode         string        `json:"voucher_code"`
	UserGroup           string        `json:"user_group"`
	Status              VoucherStatus `json:"status"`
	Disabled            bool          `json:"disabled"`
	Price               float64       `json:"price"`
	Period              string        `json:"period"`
	FirstName           string        `json:"first_name"`
	LastName            string        `json:"last_name"`
	Alias               string        `json:"alias"`
	PhoneNumber         string        `json:"phone_number"`
	Devices             *string       `json:"devices"`
	TraficUsedTotal     *string       `json:"trafic_used_total"`
	UploadDownloadLimit *string       `json:"upload_download_limit"`
	MACBinding          bool          `json:"mac_binding"`
	CreatedTime         *time.Time    `json:"created_time"`
	ActivatedTime       *time.Time    `json:"activated_time"`
	ExpiredTime         *time.Time    `json:"expired_time"`
	PrintLastTime       *time.Time    `json:"print_last_time"`
	IsPrinted           bool          `json:"is_printed"`
	PrintCount          int64         `json:"print_count"`
	CreatedAt           time.Time     `json:"created_at"`
	UpdatedAt           time.Time     `json:"updated_at"`
}

// VoucherInput carries caller-supplied voucher fields.
// A nil field means "not supplied": create applies defaults, update leaves the current value.
type VoucherInput struct {
	VoucherCode         *string    `json:"voucher_code"`
	UserGroup           *string    `json:"user_group"`
	Status              *string    `json:"status"`
	Disabled            *bool      `json:"disabled"`
	Price               *float64   `json:"price"`
	Period              *string    `json:"period"`
	FirstName           *string    `json:"first_name"`
	LastName            *string    `json:"last_name"`
	Alias               *string    `json:"alias"`
	PhoneNumber         *string    `json:"phone_number"`
	Devices             *string    `json:"devices"`
	TraficUsedTotal     *string    `json:"trafic_used_total"`
	UploadDownloadLimit *string    `json:"upload_download_limit"`
	MACBinding          *bool      `json:"mac_binding"`
	CreatedTime         *time.Time `json:"created_time"`
	ActivatedTime       *time.Time `json:"activated_time"`
	ExpiredTime         *time.Time `json:"expired_time"`
}

// HasCode reports whether a non-blank voucher code was supplied
func (in *VoucherInput) HasCode() bool {
	return in.VoucherCode != nil && strings.TrimSpace(*in.VoucherCode) != ""
}

// ApplyTo overwrites the supplied fields on v. Status goes through ParseStatus.
func (in *VoucherInput) ApplyTo(v *Voucher) {
	if in.VoucherCode != nil {
		v.VoucherCode = strings.TrimSpace(*in.VoucherCode)
	}
	if in.UserGroup != nil {
		v.UserGroup = *in.UserGroup
	}
	if in.Status != nil {
		v.Status = ParseStatus(*in.Status)
	}
	if in.Disabled != nil {
		v.Disabled = *in.Disabled
	}
	if in.Price != nil {
		v.Price = *in.Price
	}
	if in.Period != nil {
		v.Period = *in.Period
	}
	if in.FirstName != nil {
		v.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		v.LastName = *in.LastName
	}
	if in.Alias != nil {
		v.Alias = *in.Alias
	}
	if in.PhoneNumber != nil {
		v.PhoneNumber = *in.PhoneNumber
	}
	if in.Devices != nil {
		v.Devices = in.Devices
	}
	if in.TraficUsedTotal != nil {
		v.TraficUsedTotal = in.TraficUsedTotal
	}
	if in.UploadDownloadLimit != nil {
		v.UploadDownloadLimit = in.UploadDownloadLimit
	}
	if in.MACBinding != nil {
		v.MACBinding = *in.MACBinding
	}
	if in.CreatedTime != nil {
		v.CreatedTime = in.CreatedTime
	}
	if in.ActivatedTime != nil {
		v.ActivatedTime = in.ActivatedTime
	}
	if in.ExpiredTime != nil {
		v.ExpiredTime = in.ExpiredTime
	}
}

// VoucherFilter narrows a voucher listing.
// Empty fields impose no constraint.
type VoucherFilter struct {
	Status    string
	UserGroup string
	Search    string
}
