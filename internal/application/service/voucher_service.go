package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/garyjia/voucher-service/internal/application/port"
	"github.com/garyjia/voucher-service/internal/domain/entity"
	"github.com/garyjia/voucher-service/pkg/utils"
)

// maxCodeAttempts bounds regeneration of a colliding auto-generated code
const maxCodeAttempts = 5

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// VoucherService manages the voucher lifecycle
type VoucherService interface {
	Create(ctx context.Context, input *entity.VoucherInput) (*entity.Voucher, error)
	Update(ctx context.Context, id int64, input *entity.VoucherInput) (*entity.Voucher, error)
	Delete(ctx context.Context, id int64) error
	Print(ctx context.Context, id int64) (*entity.Voucher, error)
}

type voucherServiceImpl struct {
	repo      port.VoucherRepository
	txManager port.TransactionManager
	codes     CodeGenerator
	logger    Logger
	now       func() time.Time
}

// NewVoucherService creates a new VoucherService
func NewVoucherService(
	repo port.VoucherRepository,
	txManager port.TransactionManager,
	codes CodeGenerator,
	logger Logger,
) VoucherService {
	return &voucherServiceImpl{
		repo:      repo,
		txManager: txManager,
		codes:     codes,
		logger:    logger,
		now:       time.Now,
	}
}

// Create stores a new voucher. A missing code is generated and regenerated on collision;
// a supplied code that is already taken fails with DUPLICATE_CODE.
func (s *voucherServiceImpl) Create(ctx context.Context, input *entity.VoucherInput) (voucher *entity.Voucher, err error) {
	defer func() { recordOperation("create", err) }()

	if input == nil {
		input = &entity.VoucherInput{}
	}
	if err := validateInputPrice(input); err != nil {
		return nil, err
	}

	generated := !input.HasCode()

	for attempt := 1; ; attempt++ {
		voucher = &entity.Voucher{Status: entity.StatusNotUsed}
		input.ApplyTo(voucher)

		if generated {
			code, err := s.codes.Generate(entity.DefaultCodeLength)
			if err != nil {
				s.logger.Error("Failed to generate voucher code", "error", err)
				return nil, NewInternalError("failed to generate voucher code", err)
			}
			voucher.VoucherCode = code
		}
		if voucher.CreatedTime == nil {
			now := s.now()
			voucher.CreatedTime = &now
		}

		existing, err := s.repo.FindByCode(ctx, voucher.VoucherCode, 0)
		if err != nil {
			s.logger.Error("Failed to check voucher code", "error", err, "voucher_code", voucher.VoucherCode)
			return nil, NewInternalError("failed to check voucher code", err)
		}

		if existing == nil {
			err = s.repo.Create(ctx, voucher)
			if err == nil {
				s.logger.Info("Voucher created", "id", voucher.ID, "voucher_code", voucher.VoucherCode, "generated", generated)
				return voucher, nil
			}
			if !errors.Is(err, port.ErrDuplicateVoucherCode) {
				s.logger.Error("Failed to create voucher", "error", err, "voucher_code", voucher.VoucherCode)
				return nil, NewInternalError("failed to create voucher", err)
			}
		}

		if !generated || attempt >= maxCodeAttempts {
			return nil, duplicateCodeError(voucher.VoucherCode)
		}
		codeCollisionsTotal.Inc()
		s.logger.Info("Generated voucher code collided, retrying", "attempt", attempt, "voucher_code", voucher.VoucherCode)
	}
}

// Update overwrites the supplied fields of an existing voucher
func (s *voucherServiceImpl) Update(ctx context.Context, id int64, input *entity.VoucherInput) (updated *entity.Voucher, err error) {
	defer func() { recordOperation("update", err) }()

	if input == nil {
		input = &entity.VoucherInput{}
	}
	if err := validateInputPrice(input); err != nil {
		return nil, err
	}

	changes := *input
	if changes.VoucherCode != nil && !changes.HasCode() {
		changes.VoucherCode = nil
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		current, err := s.repo.GetByID(txCtx, id)
		if err != nil {
			return NewInternalError("failed to load voucher", err)
		}
		if current == nil {
			return NewNotFoundError(id)
		}

		if changes.VoucherCode != nil {
			code := strings.TrimSpace(*changes.VoucherCode)
			if code != current.VoucherCode {
				existing, err := s.repo.FindByCode(txCtx, code, id)
				if err != nil {
					return NewInternalError("failed to check voucher code", err)
				}
				if existing != nil {
					return duplicateCodeError(code)
				}
			}
		}

		changes.ApplyTo(current)

		if err := s.repo.Update(txCtx, current); err != nil {
			switch {
			case errors.Is(err, port.ErrDuplicateVoucherCode):
				return duplicateCodeError(current.VoucherCode)
			case errors.Is(err, port.ErrVoucherNotFound):
				return NewNotFoundError(id)
			}
			return NewInternalError("failed to update voucher", err)
		}

		updated = current
		return nil
	})
	if err != nil {
		if !IsKind(err, KindValidation) && !IsKind(err, KindNotFound) {
			s.logger.Error("Failed to update voucher", "error", err, "id", id)
		}
		return nil, AsError(err)
	}

	s.logger.Info("Voucher updated", "id", id)
	return updated, nil
}

// Delete removes a voucher
func (s *voucherServiceImpl) Delete(ctx context.Context, id int64) (err error) {
	defer func() { recordOperation("delete", err) }()

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, port.ErrVoucherNotFound) {
			return NewNotFoundError(id)
		}
		s.logger.Error("Failed to delete voucher", "error", err, "id", id)
		return NewInternalError("failed to delete voucher", err)
	}

	s.logger.Info("Voucher deleted", "id", id)
	return nil
}

// Print records one print of a voucher
func (s *voucherServiceImpl) Print(ctx context.Context, id int64) (voucher *entity.Voucher, err error) {
	defer func() { recordOperation("print", err) }()

	voucher, err = s.repo.IncrementPrint(ctx, id, s.now())
	if err != nil {
		if errors.Is(err, port.ErrVoucherNotFound) {
			return nil, NewNotFoundError(id)
		}
		s.logger.Error("Failed to print voucher", "error", err, "id", id)
		return nil, NewInternalError("failed to print voucher", err)
	}

	s.logger.Info("Voucher printed", "id", id, "print_count", voucher.PrintCount)
	return voucher, nil
}

func validateInputPrice(input *entity.VoucherInput) error {
	if input.Price == nil {
		return nil
	}
	if err := utils.ValidatePrice(*input.Price); err != nil {
		return NewValidationError(CodeInvalidPrice, err.Error())
	}
	return nil
}
