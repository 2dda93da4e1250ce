package hostfile

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/bnema/job-launcher/internal/domain"
	"github.com/bnema/job-launcher/internal/ports"
	"github.com/spf13/afero"
)

// Loader reads a host list: one hostname per line, blank lines skipped.
type Loader struct {
	fs afero.Fs
}

var _ ports.HostSource = (*Loader)(nil)

func NewLoader(fs afero.Fs) *Loader {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Loader{fs: fs}
}

func (l *Loader) Load(ctx context.Context, path string) ([]domain.HostRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: host file path is empty", domain.ErrLoad)
	}

	f, err := l.fs.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: host file %q not found: %w", domain.ErrLoad, path, err)
		}
		return nil, fmt.Errorf("%w: open host file %q: %w", domain.ErrLoad, path, err)
	}
	defer f.Close()

	var hosts []domain.HostRecord
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		hostname := strings.TrimSpace(scanner.Text())
		if hostname == "" {
			continue
		}
		hosts = append(hosts, domain.HostRecord{Hostname: hostname})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: read host file %q: %w", domain.ErrLoad, path, err)
	}

	return hosts, nil
}
