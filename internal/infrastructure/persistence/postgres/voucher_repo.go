package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/voucher-service/internal/application/port"
	"github.com/garyjia/voucher-service/internal/domain/entity"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const voucherColumns = `
	id, voucher_code, user_group, status, disabled, price, period,
	first_name, last_name, alias, phone_number,
	devices, trafic_used_total, upload_download_limit, mac_binding,
	created_time, activated_time, expired_time, print_last_time,
	is_printed, print_count, created_at, updated_at`

const insertVoucherSQL = `
	INSERT INTO vouchers (
		voucher_code, user_group, status, disabled, price, period,
		first_name, last_name, alias, phone_number,
		devices, trafic_used_total, upload_download_limit, mac_binding,
		created_time, activated_time, expired_time, print_last_time,
		is_printed, print_count
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	RETURNING id, created_at, updated_at
`

// searchColumns are matched case-insensitively by a free-text search
var searchColumns = []string{"voucher_code", "first_name", "last_name", "alias", "phone_number"}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// VoucherRepository implements port.VoucherRepository on PostgreSQL
type VoucherRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewVoucherRepository creates a new voucher repository
func NewVoucherRepository(db *DB, logger *zap.Logger) port.VoucherRepository {
	return &VoucherRepository{db: db, logger: logger}
}

// Create creates a new voucher record
func (r *VoucherRepository) Create(ctx context.Context, voucher *entity.Voucher) error {
	if err := r.insert(ctx, r.db.Executor(ctx), voucher); err != nil {
		if IsUniqueViolation(err) {
			return port.ErrDuplicateVoucherCode
		}
		r.logger.Error("Failed to create voucher", zap.String("voucher_code", voucher.VoucherCode), zap.Error(err))
		return fmt.Errorf("failed to create voucher: %w", err)
	}
	return nil
}

func (r *VoucherRepository) insert(ctx context.Context, exec DBTX, voucher *entity.Voucher) error {
	return exec.QueryRow(ctx, insertVoucherSQL,
		voucher.VoucherCode,
		voucher.UserGroup,
		string(voucher.Status),
		voucher.Disabled,
		voucher.Price,
		voucher.Period,
		voucher.FirstName,
		voucher.LastName,
		voucher.Alias,
		voucher.PhoneNumber,
		voucher.Devices,
		voucher.TraficUsedTotal,
		voucher.UploadDownloadLimit,
		voucher.MACBinding,
		voucher.CreatedTime,
		voucher.ActivatedTime,
		voucher.ExpiredTime,
		voucher.PrintLastTime,
		voucher.IsPrinted,
		voucher.PrintCount,
	).Scan(&voucher.ID, &voucher.CreatedAt, &voucher.UpdatedAt)
}

// InsertAll persists every voucher inside a single transaction
func (r *VoucherRepository) InsertAll(ctx context.Context, vouchers []*entity.Voucher) error {
	err := r.db.WithTransaction(ctx, func(txCtx context.Context) error {
		exec := r.db.Executor(txCtx)
		for i, v := range vouchers {
			if err := r.insert(txCtx, exec, v); err != nil {
				if IsUniqueViolation(err) {
					return port.ErrDuplicateVoucherCode
				}
				return fmt.Errorf("failed to insert voucher %d of %d: %w", i+1, len(vouchers), err)
			}
		}
		return nil
	})
	if err != nil {
		for _, v := range vouchers {
			v.ID = 0
		}
		if !errors.Is(err, port.ErrDuplicateVoucherCode) {
			r.logger.Error("Failed to insert voucher batch", zap.Int("count", len(vouchers)), zap.Error(err))
		}
		return err
	}
	return nil
}

// GetByID retrieves a voucher by ID
func (r *VoucherRepository) GetByID(ctx context.Context, id int64) (*entity.Voucher, error) {
	query := `SELECT ` + voucherColumns + ` FROM vouchers WHERE id = $1`

	voucher, err := scanVoucher(r.db.Executor(ctx).QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get voucher", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get voucher: %w", err)
	}
	return voucher, nil
}

// FindByCode retrieves the voucher holding code other than excludeID
func (r *VoucherRepository) FindByCode(ctx context.Context, code string, excludeID int64) (*entity.Voucher, error) {
	query := `SELECT ` + voucherColumns + ` FROM vouchers WHERE voucher_code = $1 AND id <> $2`

	voucher, err := scanVoucher(r.db.Executor(ctx).QueryRow(ctx, query, code, excludeID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to find voucher by code", zap.String("voucher_code", code), zap.Error(err))
		return nil, fmt.Errorf("failed to find voucher by code: %w", err)
	}
	return voucher, nil
}

// List retrieves vouchers matching filter, newest first
func (r *VoucherRepository) List(ctx context.Context, filter entity.VoucherFilter, limit, offset int) ([]*entity.Voucher, error) {
	where, args := buildWhere(filter)
	query := fmt.Sprintf(`SELECT %s FROM vouchers%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		voucherColumns, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.Executor(ctx).Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list vouchers", zap.Error(err))
		return nil, fmt.Errorf("failed to list vouchers: %w", err)
	}
	defer rows.Close()

	vouchers := make([]*entity.Voucher, 0, limit)
	for rows.Next() {
		voucher, err := scanVoucher(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan voucher: %w", err)
		}
		vouchers = append(vouchers, voucher)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating vouchers: %w", err)
	}
	return vouchers, nil
}

// Count returns the number of vouchers matching filter
func (r *VoucherRepository) Count(ctx context.Context, filter entity.VoucherFilter) (int64, error) {
	where, args := buildWhere(filter)

	var total int64
	if err := r.db.Executor(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM vouchers`+where, args...).Scan(&total); err != nil {
		r.logger.Error("Failed to count vouchers", zap.Error(err))
		return 0, fmt.Errorf("failed to count vouchers: %w", err)
	}
	return total, nil
}

// Update updates every mutable column of a voucher
func (r *VoucherRepository) Update(ctx context.Context, voucher *entity.Voucher) error {
	query := `
		UPDATE vouchers
		SET voucher_code = $1, user_group = $2, status = $3, disabled = $4, price = $5, period = $6,
			first_name = $7, last_name = $8, alias = $9, phone_number = $10,
			devices = $11, trafic_used_total = $12, upload_download_limit = $13, mac_binding = $14,
			created_time = $15, activated_time = $16, expired_time = $17, updated_at = NOW()
		WHERE id = $18
		RETURNING updated_at
	`

	err := r.db.Executor(ctx).QueryRow(ctx, query,
		voucher.VoucherCode,
		voucher.UserGroup,
		string(voucher.Status),
		voucher.Disabled,
		voucher.Price,
		voucher.Period,
		voucher.FirstName,
		voucher.LastName,
		voucher.Alias,
		voucher.PhoneNumber,
		voucher.Devices,
		voucher.TraficUsedTotal,
		voucher.UploadDownloadLimit,
		voucher.MACBinding,
		voucher.CreatedTime,
		voucher.ActivatedTime,
		voucher.ExpiredTime,
		voucher.ID,
	).Scan(&voucher.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return port.ErrVoucherNotFound
	}
	if err != nil {
		if IsUniqueViolation(err) {
			return port.ErrDuplicateVoucherCode
		}
		r.logger.Error("Failed to update voucher", zap.Int64("id", voucher.ID), zap.Error(err))
		return fmt.Errorf("failed to update voucher: %w", err)
	}
	return nil
}

// Delete removes a voucher
func (r *VoucherRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Executor(ctx).Exec(ctx, `DELETE FROM vouchers WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete voucher", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete voucher: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return port.ErrVoucherNotFound
	}
	return nil
}

// IncrementPrint records one print of a voucher and returns the updated row.
// The increment happens in a single statement so concurrent prints never lose a count.
func (r *VoucherRepository) IncrementPrint(ctx context.Context, id int64, printedAt time.Time) (*entity.Voucher, error) {
	query := `
		UPDATE vouchers
		SET print_count = print_count + 1, is_printed = TRUE, print_last_time = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING ` + voucherColumns

	voucher, err := scanVoucher(r.db.Executor(ctx).QueryRow(ctx, query, printedAt, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, port.ErrVoucherNotFound
	}
	if err != nil {
		r.logger.Error("Failed to record voucher print", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to record voucher print: %w", err)
	}
	return voucher, nil
}

// Ping verifies the pool can reach the server
func (r *VoucherRepository) Ping(ctx context.Context) error {
	return r.db.Pool.Ping(ctx)
}

func buildWhere(filter entity.VoucherFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.UserGroup != "" {
		args = append(args, filter.UserGroup)
		conditions = append(conditions, fmt.Sprintf("user_group = $%d", len(args)))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+likeEscaper.Replace(search)+"%")
		n := len(args)
		var matches []string
		for _, col := range searchColumns {
			matches = append(matches, fmt.Sprintf("%s ILIKE $%d", col, n))
		}
		conditions = append(conditions, "("+strings.Join(matches, " OR ")+")")
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func scanVoucher(row pgx.Row) (*entity.Voucher, error) {
	var voucher entity.Voucher
	var status string

	err := row.Scan(
		&voucher.ID,
		&voucher.VoucherCode,
		&voucher.UserGroup,
		&status,
		&voucher.Disabled,
		&voucher.Price,
		&voucher.Period,
		&voucher.FirstName,
		&voucher.LastName,
		&voucher.Alias,
		&voucher.PhoneNumber,
		&voucher.Devices,
		&voucher.TraficUsedTotal,
		&voucher.UploadDownloadLimit,
		&voucher.MACBinding,
		&voucher.CreatedTime,
		&voucher.ActivatedTime,
		&voucher.ExpiredTime,
		&voucher.PrintLastTime,
		&voucher.IsPrinted,
		&voucher.PrintCount,
		&voucher.CreatedAt,
		&voucher.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	voucher.Status = entity.VoucherStatus(status)
	return &voucher, nil
}

// Verify interface compliance
var _ port.VoucherRepository = (*VoucherRepository)(nil)
