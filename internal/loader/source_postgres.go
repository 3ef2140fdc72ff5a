package loader

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/school-intel/internal/db"
	"github.com/sells-group/school-intel/internal/fetcher"
	"github.com/sells-group/school-intel/internal/model"
)

// PostgresSource reads both feeds from database tables whose columns carry
// the same names as the file feeds.
type PostgresSource struct {
	pool           db.Pool
	contactTable   string
	financialTable string
}

// NewPostgresSource creates a source over the given tables.
func NewPostgresSource(pool db.Pool, contactTable, financialTable string) *PostgresSource {
	return &PostgresSource{pool: pool, contactTable: contactTable, financialTable: financialTable}
}

// Provenance implements Source.
func (s *PostgresSource) Provenance() string { return model.ProvenancePostgres }

// ContactRows implements Source.
func (s *PostgresSource) ContactRows(ctx context.Context) ([]fetcher.Row, error) {
	return s.read(ctx, s.contactTable)
}

// FinancialRows implements Source.
func (s *PostgresSource) FinancialRows(ctx context.Context) ([]fetcher.Row, error) {
	return s.read(ctx, s.financialTable)
}

func (s *PostgresSource) read(ctx context.Context, table string) ([]fetcher.Row, error) {
	if table == "" {
		return nil, eris.Wrap(ErrSourceUnavailable, "loader: no table configured")
	}
	records, err := db.SelectTable(ctx, s.pool, table)
	if err != nil {
		return nil, eris.Wrapf(ErrSourceUnavailable, "loader: table %s: %v", table, err)
	}
	rows := make([]fetcher.Row, len(records))
	for i, r := range records {
		rows[i] = fetcher.Row(r)
	}
	return rows, nil
}
