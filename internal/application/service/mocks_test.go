package service

import (
	"context"
	"io"
	"time"

	"github.com/garyjia/voucher-service/internal/domain/entity"
	"github.com/garyjia/voucher-service/internal/importer"
)

// Mock repositories
type mockVoucherRepo struct {
	createFunc         func(ctx context.Context, voucher *entity.Voucher) error
	getByIDFunc        func(ctx context.Context, id int64) (*entity.Voucher, error)
	findByCodeFunc     func(ctx context.Context, code string, excludeID int64) (*entity.Voucher, error)
	listFunc           func(ctx context.Context, filter entity.VoucherFilter, limit, offset int) ([]*entity.Voucher, error)
	countFunc          func(ctx context.Context, filter entity.VoucherFilter) (int64, error)
	updateFunc         func(ctx context.Context, voucher *entity.Voucher) error
	deleteFunc         func(ctx context.Context, id int64) error
	incrementPrintFunc func(ctx context.Context, id int64, printedAt time.Time) (*entity.Voucher, error)
	insertAllFunc      func(ctx context.Context, vouchers []*entity.Voucher) error
}

func (m *mockVoucherRepo) Create(ctx context.Context, voucher *entity.Voucher) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, voucher)
	}
	voucher.ID = 1
	return nil
}

func (m *mockVoucherRepo) GetByID(ctx context.Context, id int64) (*entity.Voucher, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return &entity.Voucher{ID: id, VoucherCode: "EXIST001", Status: entity.StatusNotUsed}, nil
}

func (m *mockVoucherRepo) FindByCode(ctx context.Context, code string, excludeID int64) (*entity.Voucher, error) {
	if m.findByCodeFunc != nil {
		return m.findByCodeFunc(ctx, code, excludeID)
	}
	return nil, nil
}

func (m *mockVoucherRepo) List(ctx context.Context, filter entity.VoucherFilter, limit, offset int) ([]*entity.Voucher, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, filter, limit, offset)
	}
	return []*entity.Voucher{}, nil
}

func (m *mockVoucherRepo) Count(ctx context.Context, filter entity.VoucherFilter) (int64, error) {
	if m.countFunc != nil {
		return m.countFunc(ctx, filter)
	}
	return 0, nil
}

func (m *mockVoucherRepo) Update(ctx context.Context, voucher *entity.Voucher) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, voucher)
	}
	return nil
}

func (m *mockVoucherRepo) Delete(ctx context.Context, id int64) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

func (m *mockVoucherRepo) IncrementPrint(ctx context.Context, id int64, printedAt time.Time) (*entity.Voucher, error) {
	if m.incrementPrintFunc != nil {
		return m.incrementPrintFunc(ctx, id, printedAt)
	}
	return &entity.Voucher{ID: id, IsPrinted: true, PrintCount: 1, PrintLastTime: &printedAt}, nil
}

func (m *mockVoucherRepo) InsertAll(ctx context.Context, vouchers []*entity.Voucher) error {
	if m.insertAllFunc != nil {
		return m.insertAllFunc(ctx, vouchers)
	}
	for i, v := range vouchers {
		v.ID = int64(i + 1)
	}
	return nil
}

func (m *mockVoucherRepo) Ping(ctx context.Context) error {
	return nil
}

type mockTxManager struct {
	withTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.withTransactionFunc != nil {
		return m.withTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}

// sequenceCodes hands out codes in order, repeating the last one when exhausted
type sequenceCodes struct {
	codes []string
	calls int
}

func (g *sequenceCodes) Generate(length int) (string, error) {
	i := g.calls
	if i >= len(g.codes) {
		i = len(g.codes) - 1
	}
	g.calls++
	return g.codes[i], nil
}

type mockUploadStorage struct {
	removed []string
}

func (m *mockUploadStorage) Save(ctx context.Context, originalName string, content io.Reader) (string, error) {
	return "/tmp/" + originalName, nil
}

func (m *mockUploadStorage) Remove(ctx context.Context, fullPath string) error {
	m.removed = append(m.removed, fullPath)
	return nil
}

type mockParser struct {
	importFunc func(path string, format importer.Format) ([]*entity.Voucher, error)
}

func (m *mockParser) ImportFromFile(path string, format importer.Format) ([]*entity.Voucher, error) {
	if m.importFunc != nil {
		return m.importFunc(path, format)
	}
	return nil, nil
}

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}
