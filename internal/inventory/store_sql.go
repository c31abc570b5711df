package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const (
	pingTimeout  = 1 * time.Second
	queryTimeout = 3 * time.Second
	pgUniqueCode = "23505"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// SQLStore keeps products and categories in Postgres or SQLite. Queries are
// written with '?' placeholders and rebound for the driver in use.
type SQLStore struct {
	db *sqlx.DB
	// collate makes ORDER BY compare raw bytes, like the memory store.
	collate string
}

func NewSQLStore(db *sqlx.DB) *SQLStore {
	s := &SQLStore{db: db}
	if db.DriverName() == "pgx" {
		s.collate = ` COLLATE "C"`
	}
	return s
}

// OpenSQLStore connects to the database and creates the schema if it is missing.
// driver is DriverPostgres or DriverSQLite.
func OpenSQLStore(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	var (
		sqlDriver string
		schema    []string
	)
	switch driver {
	case DriverPostgres:
		sqlDriver, schema = "pgx", postgresSchema
	case DriverSQLite:
		sqlDriver, schema = "sqlite", sqliteSchema
	default:
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}

	db, err := sqlx.Open(sqlDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// one connection keeps :memory: databases and pragmas shared
		db.SetMaxOpenConns(1)
	}

	s := NewSQLStore(db)
	if err := s.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	if err := s.ensureSchema(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return s, nil
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS categories (
		name TEXT PRIMARY KEY
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id              TEXT PRIMARY KEY,
		name            TEXT NOT NULL,
		name_key        TEXT NOT NULL,
		category_name   TEXT NOT NULL REFERENCES categories(name),
		unit_price      NUMERIC NOT NULL CHECK (unit_price > 0),
		expiration_date TEXT,
		stock_quantity  INTEGER NOT NULL CHECK (stock_quantity >= 0),
		created_at      TIMESTAMPTZ NOT NULL,
		updated_at      TIMESTAMPTZ NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_products_name_key ON products (name_key)`,
	`CREATE INDEX IF NOT EXISTS idx_products_category ON products (category_name)`,
}

var sqliteSchema = []string{
	`PRAGMA foreign_keys = ON`,
	`CREATE TABLE IF NOT EXISTS categories (
		name TEXT PRIMARY KEY
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id              TEXT PRIMARY KEY,
		name            TEXT NOT NULL,
		name_key        TEXT NOT NULL,
		category_name   TEXT NOT NULL REFERENCES categories(name),
		unit_price      TEXT NOT NULL,
		expiration_date TEXT,
		stock_quantity  INTEGER NOT NULL CHECK (stock_quantity >= 0),
		created_at      DATETIME NOT NULL,
		updated_at      DATETIME NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_products_name_key ON products (name_key)`,
	`CREATE INDEX IF NOT EXISTS idx_products_category ON products (category_name)`,
}

func (s *SQLStore) ensureSchema(ctx context.Context, stmts []string) error {
	return withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		for _, stmt := range stmts {
			if _, err := s.db.ExecContext(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return withTimeout(ctx, pingTimeout, func(ctx context.Context) error {
		return s.db.PingContext(ctx)
	})
}

func (s *SQLStore) Close() error { return s.db.Close() }

type productRow struct {
	ID             string         `db:"id"`
	Name           string         `db:"name"`
	CategoryName   string         `db:"category_name"`
	UnitPrice      string         `db:"unit_price"`
	ExpirationDate sql.NullString `db:"expiration_date"`
	StockQuantity  int            `db:"stock_quantity"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

func (r productRow) product() (Product, error) {
	price, err := ParseMoney(r.UnitPrice)
	if err != nil {
		return Product{}, fmt.Errorf("product %s: unit price %q: %w", r.ID, r.UnitPrice, err)
	}
	p := Product{
		ID:            r.ID,
		Name:          r.Name,
		Category:      Category{Name: r.CategoryName},
		UnitPrice:     price,
		StockQuantity: r.StockQuantity,
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
	if r.ExpirationDate.Valid && r.ExpirationDate.String != "" {
		d, err := ParseDate(r.ExpirationDate.String)
		if err != nil {
			return Product{}, fmt.Errorf("product %s: expiration date: %w", r.ID, err)
		}
		p.ExpirationDate = &d
	}
	return p, nil
}

func expirationValue(d *Date) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

const selectProducts = `
	SELECT id, name, category_name, CAST(unit_price AS TEXT) AS unit_price,
	       expiration_date, stock_quantity, created_at, updated_at
	FROM products`

func (s *SQLStore) InsertProduct(ctx context.Context, p Product) error {
	return withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, s.db.Rebind(`
			INSERT INTO products (id, name, name_key, category_name, unit_price, expiration_date, stock_quantity, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`), p.ID, p.Name, foldName(p.Name), p.Category.Name, p.UnitPrice.String(), expirationValue(p.ExpirationDate),
			p.StockQuantity, p.CreatedAt.UTC(), p.UpdatedAt.UTC())

		if isUniqueViolation(err) {
			return alreadyExists("product with name %s already exists", p.Name)
		}
		return err
	})
}

func (s *SQLStore) UpdateProduct(ctx context.Context, p Product) error {
	return withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		res, err := s.db.ExecContext(ctx, s.db.Rebind(`
			UPDATE products
			SET name = ?, name_key = ?, category_name = ?, unit_price = ?, expiration_date = ?, stock_quantity = ?, updated_at = ?
			WHERE id = ?
		`), p.Name, foldName(p.Name), p.Category.Name, p.UnitPrice.String(), expirationValue(p.ExpirationDate),
			p.StockQuantity, p.UpdatedAt.UTC(), p.ID)

		if isUniqueViolation(err) {
			return alreadyExists("product with name %s already exists", p.Name)
		}
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return notFound("product not found with id %s", p.ID)
		}
		return nil
	})
}

func (s *SQLStore) FindProductByID(ctx context.Context, id string) (Product, bool, error) {
	return s.findProduct(ctx, selectProducts+` WHERE id = ?`, id)
}

func (s *SQLStore) FindProductByName(ctx context.Context, name string) (Product, bool, error) {
	return s.findProduct(ctx, selectProducts+` WHERE name_key = ?`, foldName(name))
}

func (s *SQLStore) findProduct(ctx context.Context, query string, arg any) (Product, bool, error) {
	var row productRow
	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		return s.db.GetContext(ctx, &row, s.db.Rebind(query), arg)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return Product{}, false, nil
	}
	if err != nil {
		return Product{}, false, err
	}

	p, err := row.product()
	if err != nil {
		return Product{}, false, err
	}
	return p, true, nil
}

func (s *SQLStore) ListProducts(ctx context.Context) ([]Product, error) {
	return s.FilterProducts(ctx, Criteria{})
}

func (s *SQLStore) FilterProducts(ctx context.Context, c Criteria) ([]Product, error) {
	query, args, err := filterQuery(c, s.collate)
	if err != nil {
		return nil, err
	}

	var rows []productRow
	err = withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		return s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...)
	})
	if err != nil {
		return nil, err
	}

	out := make([]Product, 0, len(rows))
	for _, r := range rows {
		p, err := r.product()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// filterQuery renders c as a WHERE clause with '?' placeholders. collate is
// applied to the ORDER BY columns.
func filterQuery(c Criteria, collate string) (string, []any, error) {
	var (
		where []string
		args  []any
	)

	// name_key is folded in Go; SQL LOWER() only folds ASCII in SQLite
	if name := foldName(c.Name); name != "" {
		where = append(where, `name_key LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(name)+"%")
	}
	if len(c.Categories) > 0 {
		clause, inArgs, err := sqlx.In(`category_name IN (?)`, c.Categories)
		if err != nil {
			return "", nil, err
		}
		where = append(where, clause)
		args = append(args, inArgs...)
	}
	if c.InStock != nil {
		if *c.InStock {
			where = append(where, `stock_quantity > 0`)
		} else {
			where = append(where, `stock_quantity = 0`)
		}
	}

	query := selectProducts
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	return query + " ORDER BY name" + collate + " ASC, id" + collate + " ASC", args, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }

func (s *SQLStore) DeleteProduct(ctx context.Context, id string) (bool, error) {
	var n int64
	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM products WHERE id = ?`), id)
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	return n > 0, err
}

func (s *SQLStore) SetStockQuantity(ctx context.Context, id string, qty int, at time.Time) (bool, error) {
	var n int64
	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		res, err := s.db.ExecContext(ctx, s.db.Rebind(`
			UPDATE products SET stock_quantity = ?, updated_at = ? WHERE id = ?
		`), qty, at.UTC(), id)
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	return n > 0, err
}

func (s *SQLStore) InsertCategory(ctx context.Context, c Category) error {
	return withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, s.db.Rebind(`INSERT INTO categories (name) VALUES (?)`), c.Name)
		if isUniqueViolation(err) {
			return alreadyExists("category already exists: %s", c.Name)
		}
		return err
	})
}

func (s *SQLStore) FindCategory(ctx context.Context, name string) (Category, bool, error) {
	var c Category
	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		return s.db.QueryRowxContext(ctx, s.db.Rebind(`SELECT name FROM categories WHERE name = ?`), name).
			Scan(&c.Name)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return Category{}, false, nil
	}
	if err != nil {
		return Category{}, false, err
	}
	return c, true, nil
}

func (s *SQLStore) CategoryExists(ctx context.Context, name string) (bool, error) {
	_, ok, err := s.FindCategory(ctx, name)
	return ok, err
}

func (s *SQLStore) ListCategories(ctx context.Context) ([]Category, error) {
	var names []string
	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		return s.db.SelectContext(ctx, &names, `SELECT name FROM categories ORDER BY name`+s.collate+` ASC`)
	})
	if err != nil {
		return nil, err
	}

	out := make([]Category, 0, len(names))
	for _, n := range names {
		out = append(out, Category{Name: n})
	}
	return out, nil
}

func withTimeout(parent context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, d)
	defer cancel()
	return fn(ctx)
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueCode
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		if code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY {
			return true
		}
		// primary result code only, when extended codes are off
		return code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(liteErr.Error(), "UNIQUE constraint failed")
	}
	return false
}
