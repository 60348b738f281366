package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/garyjia/voucher-service/internal/application/port"
	"github.com/garyjia/voucher-service/internal/domain/entity"
	"github.com/garyjia/voucher-service/internal/importer"
	"github.com/garyjia/voucher-service/internal/infrastructure/persistence/repository"
	"github.com/garyjia/voucher-service/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/voucher-service/internal/infrastructure/storage"
	"github.com/garyjia/voucher-service/pkg/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestImportService_ImportFile_WithMocks(t *testing.T) {
	tests := []struct {
		name      string
		file      string
		parse     func(path string, format importer.Format) ([]*entity.Voucher, error)
		insertErr error
		wantCode  string
		wantCount int
	}{
		{
			name: "imports parsed rows and fills missing codes",
			file: "batch.csv",
			parse: func(path string, format importer.Format) ([]*entity.Voucher, error) {
				return []*entity.Voucher{{VoucherCode: "GEN00001"}, {}, {}}, nil
			},
			wantCount: 3,
		},
		{
			name:     "unsupported extension",
			file:     "notes.txt",
			wantCode: CodeUnsupportedFileFormat,
		},
		{
			name: "parse failure",
			file: "broken.xlsx",
			parse: func(path string, format importer.Format) ([]*entity.Voucher, error) {
				return nil, errors.New("zip: not a valid zip file")
			},
			wantCode: CodeImportFailed,
		},
		{
			name: "no rows",
			file: "empty.csv",
			parse: func(path string, format importer.Format) ([]*entity.Voucher, error) {
				return nil, nil
			},
			wantCode: CodeNoValidDataFound,
		},
		{
			name: "store rejects a duplicate",
			file: "dup.csv",
			parse: func(path string, format importer.Format) ([]*entity.Voucher, error) {
				return []*entity.Voucher{{VoucherCode: "A"}, {VoucherCode: "A"}}, nil
			},
			insertErr: port.ErrDuplicateVoucherCode,
			wantCode:  CodeDuplicateCode,
		},
		{
			name: "store failure",
			file: "ok.csv",
			parse: func(path string, format importer.Format) ([]*entity.Voucher, error) {
				return []*entity.Voucher{{VoucherCode: "A"}}, nil
			},
			insertErr: errors.New("disk full"),
			wantCode:  CodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockVoucherRepo{}
			if tt.insertErr != nil {
				repo.insertAllFunc = func(ctx context.Context, vouchers []*entity.Voucher) error { return tt.insertErr }
			}
			uploads := &mockUploadStorage{}
			codes := &sequenceCodes{codes: []string{"GEN00001", "GEN00002", "GEN00003"}}

			svc := NewImportService(repo, uploads, &mockParser{importFunc: tt.parse}, codes, &mockLogger{})
			path := "/uploads/" + tt.file

			result, err := svc.ImportFile(context.Background(), path, tt.file)

			assert.Equal(t, []string{path}, uploads.removed, "upload must be removed on every path")

			if tt.wantCode != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, ErrorCode(err))
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantCount, result.ImportedCount)
			seen := map[string]bool{}
			for _, v := range result.Vouchers {
				assert.NotEmpty(t, v.VoucherCode)
				assert.False(t, seen[v.VoucherCode], "codes must be unique within the batch")
				seen[v.VoucherCode] = true
			}
		})
	}
}

type sqliteImportFixture struct {
	svc      ImportService
	repo     port.VoucherRepository
	uploads  *storage.LocalUploadStorage
	tempRoot string
}

func setupSQLiteImport(t *testing.T) *sqliteImportFixture {
	t.Helper()
	logger := zap.NewNop()
	root := t.TempDir()

	db, err := database.New(database.Config{Path: filepath.Join(root, "test.db")}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.NewMigrator(db, logger).RunMigrations(context.Background(), database.EmbeddedMigrations()))

	repo := repository.NewVoucherRepository(sqlite.NewDB(db.DB, logger), logger)
	uploads, err := storage.NewLocalUploadStorage(filepath.Join(root, "uploads"), logger)
	require.NoError(t, err)

	svc := NewImportService(repo, uploads, importer.NewParser(time.UTC, logger), NewCodeGenerator(), &mockLogger{})
	return &sqliteImportFixture{svc: svc, repo: repo, uploads: uploads, tempRoot: root}
}

func (f *sqliteImportFixture) upload(t *testing.T, name, content string) string {
	t.Helper()
	path, err := f.uploads.Save(context.Background(), name, strings.NewReader(content))
	require.NoError(t, err)
	return path
}

func TestImportService_ImportFile_SQLite(t *testing.T) {
	ctx := context.Background()

	t.Run("single row round trip", func(t *testing.T) {
		f := setupSQLiteImport(t)
		path := f.upload(t, "one.csv", "Voucher code,Disabled,Created at\nRT000001,Yes,2024/03/10 08:30:00\n")

		result, err := f.svc.ImportFile(ctx, path, "one.csv")
		require.NoError(t, err)
		assert.Equal(t, 1, result.ImportedCount)
		require.Len(t, result.Vouchers, 1)
		assert.NotZero(t, result.Vouchers[0].ID)
		assert.NoFileExists(t, path)

		stored, err := f.repo.GetByID(ctx, result.Vouchers[0].ID)
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Equal(t, "RT000001", stored.VoucherCode)
		assert.True(t, stored.Disabled)
		assert.False(t, stored.IsPrinted)
		assert.Zero(t, stored.PrintCount)
		require.NotNil(t, stored.CreatedTime)
		assert.True(t, time.Date(2024, 3, 10, 8, 30, 0, 0, time.UTC).Equal(*stored.CreatedTime))
	})

	t.Run("one bad row aborts the batch", func(t *testing.T) {
		f := setupSQLiteImport(t)
		require.NoError(t, f.repo.Create(ctx, &entity.Voucher{VoucherCode: "TAKEN001", Status: entity.StatusNotUsed}))

		path := f.upload(t, "batch.csv", "Voucher code\nNEW00001\nTAKEN001\nNEW00002\n")
		_, err := f.svc.ImportFile(ctx, path, "batch.csv")

		assert.Equal(t, CodeDuplicateCode, ErrorCode(err))
		assert.NoFileExists(t, path)

		total, err := f.repo.Count(ctx, entity.VoucherFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
	})

	t.Run("unsupported extension removes the upload", func(t *testing.T) {
		f := setupSQLiteImport(t)
		path := f.upload(t, "notes.txt", "Voucher code\nX\n")

		_, err := f.svc.ImportFile(ctx, path, "notes.txt")
		assert.Equal(t, CodeUnsupportedFileFormat, ErrorCode(err))
		_, statErr := os.Stat(path)
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("header only file has no valid data", func(t *testing.T) {
		f := setupSQLiteImport(t)
		path := f.upload(t, "empty.csv", "Voucher code,Alias\n")

		_, err := f.svc.ImportFile(ctx, path, "empty.csv")
		assert.Equal(t, CodeNoValidDataFound, ErrorCode(err))
		assert.NoFileExists(t, path)
	})
}
