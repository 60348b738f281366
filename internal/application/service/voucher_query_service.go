package service

import (
	"context"
	"strings"

	"github.com/garyjia/voucher-service/internal/application/port"
	"github.com/garyjia/voucher-service/internal/domain/entity"
)

// Paging defaults applied when the caller omits or garbles page/limit
const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// ListQuery describes one page of a filtered voucher listing
type ListQuery struct {
	Filter entity.VoucherFilter
	Page   int
	Limit  int
}

// ListResult is one page of vouchers plus the totals needed to page through the rest
type ListResult struct {
	Items      []*entity.Voucher
	Page       int
	Limit      int
	Total      int64
	TotalPages int
}

// VoucherQueryService answers read-only voucher queries
type VoucherQueryService interface {
	List(ctx context.Context, query ListQuery) (*ListResult, error)
	Get(ctx context.Context, id int64) (*entity.Voucher, error)
}

type voucherQueryServiceImpl struct {
	repo   port.VoucherRepository
	logger Logger
}

// NewVoucherQueryService creates a new VoucherQueryService
func NewVoucherQueryService(repo port.VoucherRepository, logger Logger) VoucherQueryService {
	return &voucherQueryServiceImpl{repo: repo, logger: logger}
}

// List returns the requested page, newest vouchers first.
// Total counts every match regardless of paging.
func (s *voucherQueryServiceImpl) List(ctx context.Context, query ListQuery) (*ListResult, error) {
	page, limit := query.Page, query.Limit
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}

	filter := entity.VoucherFilter{
		Status:    strings.TrimSpace(query.Filter.Status),
		UserGroup: strings.TrimSpace(query.Filter.UserGroup),
		Search:    strings.TrimSpace(query.Filter.Search),
	}

	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to count vouchers", "error", err)
		return nil, NewInternalError("failed to count vouchers", err)
	}

	items := []*entity.Voucher{}
	offset := (page - 1) * limit
	if int64(offset) < total {
		items, err = s.repo.List(ctx, filter, limit, offset)
		if err != nil {
			s.logger.Error("Failed to list vouchers", "error", err, "page", page, "limit", limit)
			return nil, NewInternalError("failed to list vouchers", err)
		}
	}

	return &ListResult{
		Items:      items,
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: TotalPages(total, limit),
	}, nil
}

// Get returns a single voucher
func (s *voucherQueryServiceImpl) Get(ctx context.Context, id int64) (*entity.Voucher, error) {
	voucher, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get voucher", "error", err, "id", id)
		return nil, NewInternalError("failed to get voucher", err)
	}
	if voucher == nil {
		return nil, NewNotFoundError(id)
	}
	return voucher, nil
}

// TotalPages is ceil(total/limit), and 0 when nothing matches
func TotalPages(total int64, limit int) int {
	if total <= 0 || limit < 1 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}
