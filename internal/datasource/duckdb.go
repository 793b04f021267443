package datasource

import (
	"context"
	"database/sql"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/quantforge/ruleback/internal/logger"
	"github.com/quantforge/ruleback/internal/types"
	"github.com/quantforge/ruleback/pkg/errors"
)

// DuckDBSource stores and serves bar history from a DuckDB database. The
// schema is a single bars table keyed (exchange, code, date).
type DuckDBSource struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// NewDuckDBSource opens (or creates) the database at path and ensures the
// bars table exists. Pass ":memory:" for an ephemeral store.
func NewDuckDBSource(path string, log *logger.Logger) (*DuckDBSource, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeSourceUnavailable, "failed to open duckdb", err)
	}

	source := &DuckDBSource{
		db:     db,
		logger: log,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}

	if err := source.ensureSchema(); err != nil {
		db.Close()

		return nil, err
	}

	return source, nil
}

func (d *DuckDBSource) ensureSchema() error {
	_, err := d.db.Exec(`
		CREATE TABLE IF NOT EXISTS bars (
			code TEXT NOT NULL,
			exchange TEXT NOT NULL,
			date DATE NOT NULL,
			open DOUBLE,
			high DOUBLE,
			low DOUBLE,
			close DOUBLE,
			volume BIGINT,
			PRIMARY KEY (exchange, code, date)
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeSourceUnavailable, "failed to create bars table", err)
	}

	return nil
}

// InsertBars stores a batch of bars inside one transaction.
func (d *DuckDBSource) InsertBars(ctx context.Context, bars []types.Bar) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to begin transaction", err)
	}

	for _, bar := range bars {
		insert := d.sq.
			Insert("bars").
			Columns("code", "exchange", "date", "open", "high", "low", "close", "volume").
			Values(bar.Code, bar.Exchange, types.Day(bar.Date), bar.Open, bar.High, bar.Low, bar.Close, bar.Volume).
			RunWith(tx)

		if _, err := insert.ExecContext(ctx); err != nil {
			tx.Rollback()

			return errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to insert bar %s@%s", bar.Code, bar.Date.Format("2006-01-02"))
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to commit bars", err)
	}

	d.logger.Debug("bars inserted", zap.Int("count", len(bars)))

	return nil
}

// FetchBars implements BarSource.
func (d *DuckDBSource) FetchBars(ctx context.Context, code, exchange string, start, end time.Time) ([]types.Bar, error) {
	query := d.sq.
		Select("code", "exchange", "date", "open", "high", "low", "close", "volume").
		From("bars").
		Where(squirrel.Eq{"code": code, "exchange": exchange}).
		OrderBy("date ASC")

	if !start.IsZero() {
		query = query.Where(squirrel.GtOrEq{"date": types.Day(start)})
	}

	if !end.IsZero() {
		query = query.Where(squirrel.LtOrEq{"date": types.Day(end)})
	}

	rows, err := query.RunWith(d.db).QueryContext(ctx)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to query bars for %s", code)
	}
	defer rows.Close()

	var bars []types.Bar

	for rows.Next() {
		var bar types.Bar
		if err := rows.Scan(&bar.Code, &bar.Exchange, &bar.Date, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan bar", err)
		}

		bars = append(bars, bar)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating bars", err)
	}

	return bars, nil
}

// ListSymbols implements BarSource.
func (d *DuckDBSource) ListSymbols(ctx context.Context, exchange string) ([]string, error) {
	query := d.sq.
		Select("DISTINCT code").
		From("bars").
		Where(squirrel.Eq{"exchange": exchange}).
		OrderBy("code").
		RunWith(d.db)

	rows, err := query.QueryContext(ctx)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to list symbols for %s", exchange)
	}
	defer rows.Close()

	var codes []string

	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan symbol", err)
		}

		codes = append(codes, code)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating symbols", err)
	}

	return codes, nil
}

// Close implements BarSource.
func (d *DuckDBSource) Close() error {
	return d.db.Close()
}
