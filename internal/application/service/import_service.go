package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/garyjia/voucher-service/internal/application/port"
	"github.com/garyjia/voucher-service/internal/domain/entity"
	"github.com/garyjia/voucher-service/internal/importer"
)

// FileParser reads an import file into normalized vouchers
type FileParser interface {
	ImportFromFile(path string, format importer.Format) ([]*entity.Voucher, error)
}

// ImportResult reports a committed batch import
type ImportResult struct {
	ImportedCount int               `json:"importedCount"`
	Vouchers      []*entity.Voucher `json:"vouchers"`
}

// ImportService runs batch imports of uploaded files
type ImportService interface {
	// ImportFile parses the upload at path and persists every row atomically.
	// The upload is removed before ImportFile returns, whatever the outcome.
	ImportFile(ctx context.Context, path, originalName string) (*ImportResult, error)
}

type importServiceImpl struct {
	repo    port.VoucherRepository
	uploads port.UploadStorage
	parser  FileParser
	codes   CodeGenerator
	logger  Logger
}

// NewImportService creates a new ImportService
func NewImportService(
	repo port.VoucherRepository,
	uploads port.UploadStorage,
	parser FileParser,
	codes CodeGenerator,
	logger Logger,
) ImportService {
	return &importServiceImpl{
		repo:    repo,
		uploads: uploads,
		parser:  parser,
		codes:   codes,
		logger:  logger,
	}
}

func (s *importServiceImpl) ImportFile(ctx context.Context, path, originalName string) (result *ImportResult, err error) {
	defer func() {
		if rmErr := s.uploads.Remove(ctx, path); rmErr != nil {
			s.logger.Error("Failed to remove upload", "error", rmErr, "path", path)
		}
		if err != nil {
			voucherImportsTotal.WithLabelValues(AsError(err).Kind.String()).Inc()
			return
		}
		voucherImportsTotal.WithLabelValues("success").Inc()
		vouchersImportedTotal.Add(float64(result.ImportedCount))
	}()

	name := originalName
	if name == "" {
		name = filepath.Base(path)
	}

	format, err := importer.FormatFromExtension(name)
	if err != nil {
		return nil, NewValidationError(CodeUnsupportedFileFormat, fmt.Sprintf("unsupported file format %q, expected .csv, .xlsx or .xls", filepath.Ext(name)))
	}

	vouchers, err := s.parser.ImportFromFile(path, format)
	if err != nil {
		if errors.Is(err, importer.ErrUnsupportedFormat) {
			return nil, NewValidationError(CodeUnsupportedFileFormat, err.Error())
		}
		s.logger.Error("Failed to parse import file", "error", err, "file", name)
		return nil, NewImportError(err)
	}

	if len(vouchers) == 0 {
		return nil, NewValidationError(CodeNoValidDataFound, "no valid data found in file")
	}

	if err := s.assignCodes(vouchers); err != nil {
		return nil, err
	}

	if err := s.repo.InsertAll(ctx, vouchers); err != nil {
		if errors.Is(err, port.ErrDuplicateVoucherCode) {
			return nil, NewValidationError(CodeDuplicateCode, "import contains a voucher code that already exists; nothing was imported")
		}
		s.logger.Error("Failed to persist import batch", "error", err, "file", name, "rows", len(vouchers))
		return nil, NewInternalError("failed to import vouchers", err)
	}

	s.logger.Info("Vouchers imported", "file", name, "count", len(vouchers))
	return &ImportResult{ImportedCount: len(vouchers), Vouchers: vouchers}, nil
}

// assignCodes fills in missing codes, keeping them unique within the batch.
// Supplied codes are not checked against the store.
func (s *importServiceImpl) assignCodes(vouchers []*entity.Voucher) error {
	seen := make(map[string]struct{}, len(vouchers))
	for _, v := range vouchers {
		if v.VoucherCode != "" {
			seen[v.VoucherCode] = struct{}{}
		}
	}

	for _, v := range vouchers {
		if v.VoucherCode != "" {
			continue
		}
		for attempt := 1; ; attempt++ {
			code, err := s.codes.Generate(entity.DefaultCodeLength)
			if err != nil {
				return NewInternalError("failed to generate voucher code", err)
			}
			if _, taken := seen[code]; !taken {
				v.VoucherCode = code
				seen[code] = struct{}{}
				break
			}
			codeCollisionsTotal.Inc()
			if attempt >= maxCodeAttempts {
				return NewInternalError("failed to generate voucher code", fmt.Errorf("%d consecutive collisions", attempt))
			}
		}
	}
	return nil
}
