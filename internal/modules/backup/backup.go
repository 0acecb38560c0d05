package backup

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	appcfg "github.com/lingokit/core/internal/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultBackupDir = "./backups"

// tableNames lists the tables included in backups. Redis state is ephemeral
// and intentionally excluded.
var tableNames = []string{
	"users", "concepts", "concept_edges", "concept_masteries",
	"learner_profiles", "exercises",
}

// Service dumps every table as BSON into a zip archive, keeps the archives
// in a local directory, and optionally mirrors them to S3.
type Service struct {
	db     *gorm.DB
	cfg    appcfg.BackupConfig
	logger *zap.Logger
}

func NewService(db *gorm.DB, cfg appcfg.BackupConfig, logger *zap.Logger) *Service {
	return &Service{db: db, cfg: cfg, logger: logger}
}

func (s *Service) dir() string {
	if strings.TrimSpace(s.cfg.Dir) != "" {
		return s.cfg.Dir
	}
	return defaultBackupDir
}

// Create writes a new backup archive and returns its filename. When S3 is
// enabled the archive is also uploaded; upload failure does not fail the
// local backup.
func (s *Service) Create(ctx context.Context) (string, error) {
	buf, err := s.archive(ctx)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.dir(), 0o755); err != nil {
		return "", err
	}

	filename := fmt.Sprintf("backup-%s.zip", time.Now().Format("2006-01-02T15-04-05"))
	path := filepath.Join(s.dir(), filename)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", err
	}

	if s.cfg.S3.Enable {
		if err := s.uploadToS3(ctx, filename, buf.Bytes()); err != nil {
			s.logger.Warn("backup s3 upload failed", zap.String("filename", filename), zap.Error(err))
		}
	}
	return filename, nil
}

// archive serializes each table's rows as one BSON document stream per file.
func (s *Service) archive(ctx context.Context) (*bytes.Buffer, error) {
	buf := &bytes.Buffer{}
	w := zip.NewWriter(buf)

	for _, table := range tableNames {
		var rows []map[string]interface{}
		if err := s.db.WithContext(ctx).Table(table).Find(&rows).Error; err != nil {
			s.logger.Warn("table skipped in backup", zap.String("table", table), zap.Error(err))
			continue
		}
		f, err := w.Create(table + ".bson")
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			doc, err := bson.Marshal(row)
			if err != nil {
				return nil, err
			}
			if _, err := f.Write(doc); err != nil {
				return nil, err
			}
		}
	}

	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf, nil
}

// Restore replaces table contents from a backup archive.
func (s *Service) Restore(ctx context.Context, zr *zip.Reader) error {
	allowed := make(map[string]bool, len(tableNames))
	for _, t := range tableNames {
		allowed[t] = true
	}

	for _, f := range zr.File {
		name := filepath.Base(f.Name)
		if !strings.HasSuffix(name, ".bson") {
			continue
		}
		table := strings.TrimSuffix(name, ".bson")
		if !allowed[table] {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			continue
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			continue
		}

		rows, err := decodeBSONStream(data)
		if err != nil {
			s.logger.Warn("table skipped in restore", zap.String("table", table), zap.Error(err))
			continue
		}
		if len(rows) == 0 {
			continue
		}

		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec("DELETE FROM " + table).Error; err != nil {
				return err
			}
			for _, row := range rows {
				if err := tx.Table(table).Create(row).Error; err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("restore %s: %w", table, err)
		}
	}
	return nil
}

// decodeBSONStream splits a concatenation of BSON documents. Each document
// carries its own little-endian length prefix.
func decodeBSONStream(data []byte) ([]map[string]interface{}, error) {
	var rows []map[string]interface{}
	for len(data) >= 4 {
		size := int(uint32(data[0]) | uint32(data[1])<<8 | uint32(data[2])<<16 | uint32(data[3])<<24)
		if size < 5 || size > len(data) {
			return nil, fmt.Errorf("truncated BSON document")
		}
		var row map[string]interface{}
		if err := bson.Unmarshal(data[:size], &row); err != nil {
			return nil, err
		}
		rows = append(rows, row)
		data = data[size:]
	}
	if len(data) != 0 {
		return nil, fmt.Errorf("trailing bytes after BSON stream")
	}
	return rows, nil
}

// List returns the archives on disk, newest name last.
func (s *Service) List() ([]Item, error) {
	if err := os.MkdirAll(s.dir(), 0o755); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.dir())
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".zip") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		items = append(items, Item{Filename: e.Name(), Size: formatSize(info.Size())})
	}
	return items, nil
}

// Read returns one archive's bytes, or (nil, nil) when absent.
func (s *Service) Read(filename string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.dir(), filepath.Base(filename)))
	if os.IsNotExist(err) {
		return nil, nil
	}
	return data, err
}

// Delete removes archives by name. Unknown names are ignored.
func (s *Service) Delete(filenames []string) {
	for _, name := range filenames {
		name = strings.TrimSpace(filepath.Base(name))
		if name == "" || !strings.HasSuffix(name, ".zip") {
			continue
		}
		_ = os.Remove(filepath.Join(s.dir(), name))
	}
}

type Item struct {
	Filename string `json:"filename"`
	Size     string `json:"size"`
}

func formatSize(size int64) string {
	switch {
	case size >= 1<<20:
		return fmt.Sprintf("%.2f MB", float64(size)/(1<<20))
	case size >= 1<<10:
		return fmt.Sprintf("%.2f KB", float64(size)/(1<<10))
	default:
		return fmt.Sprintf("%d B", size)
	}
}
