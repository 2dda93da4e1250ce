package toml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bnema/job-launcher/internal/domain"
	"github.com/bnema/job-launcher/internal/ports"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"
)

const (
	reportFileMode  = 0o644
	reportDirMode   = 0o755
	tempFilePattern = ".report-*.toml.tmp"
)

// Writer persists the summary of a finished session as a TOML document.
type Writer struct {
	fs   afero.Fs
	path string
}

var _ ports.ReportWriter = (*Writer)(nil)

func NewWriter(fs afero.Fs, path string) (*Writer, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("report path is empty")
	}

	return &Writer{fs: fs, path: filepath.Clean(path)}, nil
}

func (w *Writer) Path() string {
	return w.path
}

func (w *Writer) Write(ctx context.Context, summary domain.SessionSummary) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	report := toSchema(summary)
	report.applyDefaults()

	data, err := toml.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode session report: %w", err)
	}

	if err := w.fs.MkdirAll(filepath.Dir(w.path), reportDirMode); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}

	tempFile, err := afero.TempFile(w.fs, filepath.Dir(w.path), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp report file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = w.fs.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp report file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp report file: %w", err)
	}

	if err := w.fs.Rename(tempName, w.path); err != nil {
		return fmt.Errorf("replace report file: %w", err)
	}

	cleanup = false

	if err := w.fs.Chmod(w.path, reportFileMode); err != nil {
		return fmt.Errorf("chmod report file: %w", err)
	}

	return nil
}

func (w *Writer) Read(ctx context.Context) (domain.SessionSummary, error) {
	if err := ctx.Err(); err != nil {
		return domain.SessionSummary{}, err
	}

	data, err := afero.ReadFile(w.fs, w.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.SessionSummary{}, fmt.Errorf("session report %q not found: %w", w.path, err)
		}
		return domain.SessionSummary{}, fmt.Errorf("read session report: %w", err)
	}

	var report reportSchema
	if err := toml.Unmarshal(data, &report); err != nil {
		return domain.SessionSummary{}, fmt.Errorf("decode session report: %w", err)
	}
	if err := report.validateVersion(); err != nil {
		return domain.SessionSummary{}, err
	}

	return fromSchema(report), nil
}
