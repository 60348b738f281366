package port

import (
	"context"
	"errors"
	"time"

	"github.com/garyjia/voucher-service/internal/domain/entity"
)

var (
	// ErrVoucherNotFound is returned when the target voucher row does not exist
	ErrVoucherNotFound = errors.New("voucher not found")

	// ErrDuplicateVoucherCode is returned when the store's unique constraint on voucher_code rejects a write
	ErrDuplicateVoucherCode = errors.New("voucher code already exists")
)

// VoucherRepository defines persistence operations for Voucher
type VoucherRepository interface {
	// Create inserts a voucher and fills in ID, CreatedAt and UpdatedAt
	Create(ctx context.Context, voucher *entity.Voucher) error

	// GetByID retrieves a voucher by its ID, returning nil, nil when missing
	GetByID(ctx context.Context, id int64) (*entity.Voucher, error)

	// FindByCode retrieves the voucher holding code, ignoring excludeID (0 excludes nothing)
	FindByCode(ctx context.Context, code string, excludeID int64) (*entity.Voucher, error)

	// List returns vouchers matching filter ordered by created_at descending
	List(ctx context.Context, filter entity.VoucherFilter, limit, offset int) ([]*entity.Voucher, error)

	// Count returns the number of vouchers matching filter
	Count(ctx context.Context, filter entity.VoucherFilter) (int64, error)

	// Update overwrites every mutable column of an existing voucher
	Update(ctx context.Context, voucher *entity.Voucher) error

	// Delete removes a voucher, returning ErrVoucherNotFound when missing
	Delete(ctx context.Context, id int64) error

	// IncrementPrint atomically bumps print_count, sets is_printed and print_last_time
	IncrementPrint(ctx context.Context, id int64, printedAt time.Time) (*entity.Voucher, error)

	// InsertAll persists every voucher in one transaction, or none of them
	InsertAll(ctx context.Context, vouchers []*entity.Voucher) error

	// Ping verifies the store is reachable
	Ping(ctx context.Context) error
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
