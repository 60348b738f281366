package importer

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/garyjia/voucher-service/internal/domain/entity"
	"go.uber.org/zap"
)

// Parser reads import files into normalized vouchers
type Parser struct {
	normalizer *Normalizer
	logger     *zap.Logger
}

// NewParser creates a parser whose zone-less dates are read in loc
func NewParser(loc *time.Location, logger *zap.Logger) *Parser {
	return &Parser{
		normalizer: NewNormalizer(loc),
		logger:     logger,
	}
}

// ImportFromFile reads every row of path and normalizes it.
// Open and read failures are returned as-is; an empty file yields an empty slice.
func (p *Parser) ImportFromFile(path string, format Format) ([]*entity.Voucher, error) {
	src, err := OpenSource(path, format)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	var vouchers []*entity.Voucher
	for {
		row, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", len(vouchers)+1, err)
		}
		vouchers = append(vouchers, p.normalizer.Normalize(row))
	}

	p.logger.Debug("Import file parsed",
		zap.String("path", path),
		zap.String("format", string(format)),
		zap.Int("rows", len(vouchers)))

	return vouchers, nil
}
