package loader

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/school-intel/internal/fetcher"
	"github.com/sells-group/school-intel/internal/model"
)

// ErrSourceUnavailable marks a feed that could not be read at all. The
// loader treats it as an empty feed.
var ErrSourceUnavailable = eris.New("loader: source unavailable")

// Source supplies the raw rows of the directory (contact) feed and the
// financial benchmarking feed.
type Source interface {
	// Provenance is the tag recorded on every school built from this source.
	Provenance() string
	ContactRows(ctx context.Context) ([]fetcher.Row, error)
	FinancialRows(ctx context.Context) ([]fetcher.Row, error)
}

// FileSource reads both feeds from local files. The format follows the file
// extension: .xlsx files are read as spreadsheets, anything else as CSV.
type FileSource struct {
	ContactPath   string
	FinancialPath string
}

// Provenance implements Source.
func (s *FileSource) Provenance() string { return model.ProvenanceCSV }

// ContactRows implements Source.
func (s *FileSource) ContactRows(ctx context.Context) ([]fetcher.Row, error) {
	return readFeedFile(ctx, s.ContactPath)
}

// FinancialRows implements Source.
func (s *FileSource) FinancialRows(ctx context.Context) ([]fetcher.Row, error) {
	return readFeedFile(ctx, s.FinancialPath)
}

func readFeedFile(ctx context.Context, path string) ([]fetcher.Row, error) {
	if path == "" {
		return nil, eris.Wrap(ErrSourceUnavailable, "loader: no path configured")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, eris.Wrapf(ErrSourceUnavailable, "loader: %s: %v", path, err)
	}

	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		rows, err := fetcher.ReadXLSXRows(path, fetcher.XLSXOptions{})
		if err != nil {
			return nil, eris.Wrapf(err, "loader: read %s", path)
		}
		return rows, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(ErrSourceUnavailable, "loader: open %s: %v", path, err)
	}
	defer f.Close() //nolint:errcheck

	rows, err := fetcher.ReadCSVRows(ctx, f)
	if err != nil {
		return nil, eris.Wrapf(err, "loader: read %s", path)
	}
	return rows, nil
}
