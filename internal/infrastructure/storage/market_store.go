package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"

	"MarketDigest/internal/domain"
	"MarketDigest/internal/ports"
)

// marketSchemas enumerates the fixed per-table schemas of the market store.
// Tables are keyed loosely by the date column; one run owns one date.
var marketSchemas = map[string]string{
	"lof_funds": `CREATE TABLE IF NOT EXISTS lof_funds (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		fund_id TEXT, fund_name TEXT, price REAL, premium_rate REAL,
		amount REAL, volume REAL, fund_type TEXT, apply_status TEXT,
		date TEXT, timestamp DATETIME)`,
	"bond_issuance": `CREATE TABLE IF NOT EXISTS bond_issuance (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		bond_code TEXT, bond_name TEXT, subscription_date TEXT,
		listing_date TEXT, details TEXT,
		date TEXT, timestamp DATETIME)`,
	"stock_arbitrage": `CREATE TABLE IF NOT EXISTS stock_arbitrage (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		stock_id TEXT, stock_name TEXT, price REAL, choose_price REAL,
		type_cd TEXT, descr TEXT,
		date TEXT, timestamp DATETIME)`,
	"forex_rates": `CREATE TABLE IF NOT EXISTS forex_rates (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		currency TEXT, bank TEXT, spot_buy REAL, cash_buy REAL,
		spot_sell REAL, cash_sell REAL,
		date TEXT, timestamp DATETIME)`,
	"market_indices": `CREATE TABLE IF NOT EXISTS market_indices (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT, name TEXT, price REAL, change REAL, change_pct REAL,
		prev_close REAL,
		date TEXT, timestamp DATETIME)`,
	"commodities": `CREATE TABLE IF NOT EXISTS commodities (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT, name TEXT, price REAL, change REAL, change_pct REAL,
		date TEXT, timestamp DATETIME)`,
	"spac_arbitrage": `CREATE TABLE IF NOT EXISTS spac_arbitrage (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT, name TEXT, ipo_date TEXT, price REAL, nav REAL,
		yield REAL, remaining_days INTEGER,
		date TEXT, timestamp DATETIME)`,
	"cef_arbitrage": `CREATE TABLE IF NOT EXISTS cef_arbitrage (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ticker TEXT, name TEXT, category TEXT, sponsor TEXT, price REAL,
		nav REAL, discount REAL, discount_52wk_avg REAL, z_score REAL,
		avg_daily_volume REAL, dist_status TEXT,
		date TEXT, timestamp DATETIME)`,
	"qdii_arbitrage": `CREATE TABLE IF NOT EXISTS qdii_arbitrage (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		fund_id TEXT, fund_name TEXT, price REAL, premium_rate REAL,
		estimate_value REAL, realtime_premium_rate REAL,
		realtime_estimate_value REAL, volume REAL, amount REAL,
		index_name TEXT, apply_status TEXT, market_type TEXT,
		date TEXT, timestamp DATETIME)`,
	"cbond_double_low": `CREATE TABLE IF NOT EXISTS cbond_double_low (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		bond_id TEXT, bond_name TEXT, price REAL, premium_rate REAL,
		dblow REAL, year_left REAL, type TEXT,
		date TEXT, timestamp DATETIME)`,
	"cbond_putback": `CREATE TABLE IF NOT EXISTS cbond_putback (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		bond_id TEXT, bond_name TEXT, price REAL, premium_rate REAL,
		dblow REAL, put_dt TEXT, year_left REAL, type TEXT,
		date TEXT, timestamp DATETIME)`,
}

// MarketStore persists one day of rows per strategy table into sqlite.
// Saving a table twice within the same calendar day replaces that day's
// rows; other days are never touched.
type MarketStore struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

var _ ports.MarketRepository = (*MarketStore)(nil)

// OpenMarketStore opens (creating if needed) the sqlite file and ensures
// every strategy table exists.
func OpenMarketStore(path string, logger *slog.Logger) (*MarketStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open market db: %w", err)
	}

	store := &MarketStore{db: db, logger: logger, now: time.Now}
	if err := store.ensureSchemas(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close releases the underlying connection.
func (s *MarketStore) Close() error {
	return s.db.Close()
}

func (s *MarketStore) ensureSchemas(ctx context.Context) error {
	for table, schema := range marketSchemas {
		if _, err := s.db.ExecContext(ctx, schema); err != nil {
			return fmt.Errorf("create table %s: %w", table, err)
		}
	}
	return nil
}

// Save replaces today's rows in table with the given batch. Every row must
// carry an identical key set; date and timestamp stamps are added here. The
// bulk insert runs in one transaction; the preceding delete intentionally
// does not share it (a crash between the two leaves today empty until the
// next successful run).
func (s *MarketStore) Save(ctx context.Context, table string, rows []domain.Row) error {
	if len(rows) == 0 {
		return nil
	}

	schema, ok := marketSchemas[table]
	if !ok {
		return fmt.Errorf("unknown market table %s", table)
	}
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure table %s: %w", table, err)
	}

	now := s.now()
	today := now.Format("2006-01-02")
	stamp := now.Format(time.RFC3339)

	delSQL, delArgs, err := sq.Delete(table).Where(sq.Eq{"date": today}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete for %s: %w", table, err)
	}
	res, err := s.db.ExecContext(ctx, delSQL, delArgs...)
	if err != nil {
		return fmt.Errorf("clear today from %s: %w", table, err)
	}
	if deleted, _ := res.RowsAffected(); deleted > 0 {
		s.debug("cleared prior rows", "table", table, "date", today, "count", deleted)
	}

	columns := columnSet(rows[0])
	columns = append(columns, "date", "timestamp")

	builder := sq.Insert(table).Columns(columns...)
	for i, row := range rows {
		if len(row) != len(columns)-2 {
			return fmt.Errorf("row %d of %s: key set differs from first row", i, table)
		}
		values := make([]any, 0, len(columns))
		for _, col := range columns[:len(columns)-2] {
			v, ok := row[col]
			if !ok {
				return fmt.Errorf("row %d of %s: missing column %s", i, table, col)
			}
			values = append(values, v)
		}
		values = append(values, today, stamp)
		builder = builder.Values(values...)
	}

	insSQL, insArgs, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("build insert for %s: %w", table, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert tx for %s: %w", table, err)
	}
	if _, err := tx.ExecContext(ctx, insSQL, insArgs...); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert into %s: %w", table, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert into %s: %w", table, err)
	}

	s.debug("saved rows", "table", table, "date", today, "count", len(rows))
	return nil
}

// FetchDay returns all rows of table for the given date string, in insertion
// order. The stamped date/timestamp columns are included; id is not.
func (s *MarketStore) FetchDay(ctx context.Context, table, date string) ([]domain.Row, error) {
	if _, ok := marketSchemas[table]; !ok {
		return nil, fmt.Errorf("unknown market table %s", table)
	}

	query, args, err := sq.Select("*").From(table).Where(sq.Eq{"date": date}).OrderBy("id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select for %s: %w", table, err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns of %s: %w", table, err)
	}

	var out []domain.Row
	for rows.Next() {
		values := make([]any, len(cols))
		scans := make([]any, len(cols))
		for i := range values {
			scans[i] = &values[i]
		}
		if err := rows.Scan(scans...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		row := domain.Row{}
		for i, col := range cols {
			if col == "id" {
				continue
			}
			row[col] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", table, err)
	}
	return out, nil
}

// columnSet returns the row's keys in deterministic order.
func columnSet(row domain.Row) []string {
	cols := make([]string, 0, len(row))
	for k := range row {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

func (s *MarketStore) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
