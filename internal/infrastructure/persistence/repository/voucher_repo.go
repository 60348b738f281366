package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/voucher-service/internal/application/port"
	"github.com/garyjia/voucher-service/internal/domain/entity"
	"github.com/garyjia/voucher-service/internal/infrastructure/persistence/sqlite"
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
		is_printed, print_count, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// VoucherRepository implements port.VoucherRepository on SQLite
type VoucherRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewVoucherRepository creates a new voucher repository
func NewVoucherRepository(db *sqlite.DB, logger *zap.Logger) port.VoucherRepository {
	return &VoucherRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new voucher record
func (r *VoucherRepository) Create(ctx context.Context, voucher *entity.Voucher) error {
	if err := r.insert(ctx, r.db.Executor(ctx), voucher); err != nil {
		if sqlite.IsUniqueViolation(err) {
			return port.ErrDuplicateVoucherCode
		}
		r.logger.Error("Failed to create voucher", zap.String("voucher_code", voucher.VoucherCode), zap.Error(err))
		return fmt.Errorf("failed to create voucher: %w", err)
	}
	return nil
}

func (r *VoucherRepository) insert(ctx context.Context, exec sqlite.Executor, voucher *entity.Voucher) error {
	now := time.Now().UTC()
	voucher.CreatedAt = now
	voucher.UpdatedAt = now

	result, err := exec.ExecContext(ctx, insertVoucherSQL,
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
		utcPtr(voucher.CreatedTime),
		utcPtr(voucher.ActivatedTime),
		utcPtr(voucher.ExpiredTime),
		utcPtr(voucher.PrintLastTime),
		voucher.IsPrinted,
		voucher.PrintCount,
		voucher.CreatedAt,
		voucher.UpdatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	voucher.ID = id
	return nil
}

// InsertAll persists every voucher inside a single transaction
func (r *VoucherRepository) InsertAll(ctx context.Context, vouchers []*entity.Voucher) error {
	err := r.db.WithTransaction(ctx, func(txCtx context.Context) error {
		exec := r.db.Executor(txCtx)
		for i, v := range vouchers {
			if err := r.insert(txCtx, exec, v); err != nil {
				if sqlite.IsUniqueViolation(err) {
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
		if err != port.ErrDuplicateVoucherCode {
			r.logger.Error("Failed to insert voucher batch", zap.Int("count", len(vouchers)), zap.Error(err))
		}
		return err
	}
	return nil
}

// GetByID retrieves a voucher by ID
func (r *VoucherRepository) GetByID(ctx context.Context, id int64) (*entity.Voucher, error) {
	query := `SELECT ` + voucherColumns + ` FROM vouchers WHERE id = ?`

	voucher, err := scanVoucher(r.db.Executor(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
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
	query := `SELECT ` + voucherColumns + ` FROM vouchers WHERE voucher_code = ? AND id != ?`

	voucher, err := scanVoucher(r.db.Executor(ctx).QueryRowContext(ctx, query, code, excludeID))
	if err == sql.ErrNoRows {
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
	query := `SELECT ` + voucherColumns + ` FROM vouchers` + where +
		` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, args...)
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
	err := r.db.Executor(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM vouchers`+where, args...).Scan(&total)
	if err != nil {
		r.logger.Error("Failed to count vouchers", zap.Error(err))
		return 0, fmt.Errorf("failed to count vouchers: %w", err)
	}
	return total, nil
}

// Update updates every mutable column of a voucher
func (r *VoucherRepository) Update(ctx context.Context, voucher *entity.Voucher) error {
	query := `
		UPDATE vouchers
		SET voucher_code = ?, user_group = ?, status = ?, disabled = ?, price = ?, period = ?,
			first_name = ?, last_name = ?, alias = ?, phone_number = ?,
			devices = ?, trafic_used_total = ?, upload_download_limit = ?, mac_binding = ?,
			created_time = ?, activated_time = ?, expired_time = ?, updated_at = ?
		WHERE id = ?
	`

	updatedAt := time.Now().UTC()
	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
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
		utcPtr(voucher.CreatedTime),
		utcPtr(voucher.ActivatedTime),
		utcPtr(voucher.ExpiredTime),
		updatedAt,
		voucher.ID,
	)
	if err != nil {
		if sqlite.IsUniqueViolation(err) {
			return port.ErrDuplicateVoucherCode
		}
		r.logger.Error("Failed to update voucher", zap.Int64("id", voucher.ID), zap.Error(err))
		return fmt.Errorf("failed to update voucher: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return port.ErrVoucherNotFound
	}

	voucher.UpdatedAt = updatedAt
	return nil
}

// Delete removes a voucher
func (r *VoucherRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.Executor(ctx).ExecContext(ctx, `DELETE FROM vouchers WHERE id = ?`, id)
	if err != nil {
		r.logger.Error("Failed to delete voucher", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete voucher: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return port.ErrVoucherNotFound
	}
	return nil
}

// IncrementPrint records one print of a voucher and returns the updated row
func (r *VoucherRepository) IncrementPrint(ctx context.Context, id int64, printedAt time.Time) (*entity.Voucher, error) {
	query := `
		UPDATE vouchers
		SET print_count = print_count + 1, is_printed = 1, print_last_time = ?, updated_at = ?
		WHERE id = ?
	`

	var voucher *entity.Voucher
	err := r.db.WithTransaction(ctx, func(txCtx context.Context) error {
		exec := r.db.Executor(txCtx)

		result, err := exec.ExecContext(txCtx, query, printedAt.UTC(), time.Now().UTC(), id)
		if err != nil {
			return fmt.Errorf("failed to increment print count: %w", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return port.ErrVoucherNotFound
		}

		voucher, err = scanVoucher(exec.QueryRowContext(txCtx,
			`SELECT `+voucherColumns+` FROM vouchers WHERE id = ?`, id))
		if err != nil {
			return fmt.Errorf("failed to reload voucher: %w", err)
		}
		return nil
	})
	if err != nil {
		if err != port.ErrVoucherNotFound {
			r.logger.Error("Failed to record voucher print", zap.Int64("id", id), zap.Error(err))
		}
		return nil, err
	}
	return voucher, nil
}

// Ping verifies the database is reachable
func (r *VoucherRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// buildWhere renders filter as a WHERE clause with positional arguments
func buildWhere(filter entity.VoucherFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.UserGroup != "" {
		conditions = append(conditions, "user_group = ?")
		args = append(args, filter.UserGroup)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + EscapeLike(strings.ToLower(search)) + "%"
		var matches []string
		for _, col := range SearchColumns {
			matches = append(matches, fmt.Sprintf(`unicode_lower(COALESCE(%s, '')) LIKE ? ESCAPE '\'`, col))
			args = append(args, pattern)
		}
		conditions = append(conditions, "("+strings.Join(matches, " OR ")+")")
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// SearchColumns are the columns matched by a free-text search
var SearchColumns = []string{"voucher_code", "first_name", "last_name", "alias", "phone_number"}

// EscapeLike escapes LIKE wildcards so the search term matches literally
func EscapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanVoucher(row rowScanner) (*entity.Voucher, error) {
	var voucher entity.Voucher
	var status string
	var devices, traficUsedTotal, uploadDownloadLimit sql.NullString
	var createdTime, activatedTime, expiredTime, printLastTime sql.NullTime

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
		&devices,
		&traficUsedTotal,
		&uploadDownloadLimit,
		&voucher.MACBinding,
		&createdTime,
		&activatedTime,
		&expiredTime,
		&printLastTime,
		&voucher.IsPrinted,
		&voucher.PrintCount,
		&voucher.CreatedAt,
		&voucher.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	voucher.Status = entity.VoucherStatus(status)
	voucher.Devices = nullString(devices)
	voucher.TraficUsedTotal = nullString(traficUsedTotal)
	voucher.UploadDownloadLimit = nullString(uploadDownloadLimit)
	voucher.CreatedTime = nullTime(createdTime)
	voucher.ActivatedTime = nullTime(activatedTime)
	voucher.ExpiredTime = nullTime(expiredTime)
	voucher.PrintLastTime = nullTime(printLastTime)

	return &voucher, nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

func utcPtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}

// Verify interface compliance
var _ port.VoucherRepository = (*VoucherRepository)(nil)
