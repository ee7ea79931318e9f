package catalogue

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"xia2pipe/internal/config"
	"xia2pipe/internal/logging"
	"xia2pipe/internal/services"
)

// Gateway is the query interface the passes depend on.
type Gateway interface {
	Select(ctx context.Context, columns []string, table string, conds ...Condition) ([]Row, error)
	Insert(ctx context.Context, table string, cols []Column) error
	Table(name string) string
}

// Option customizes a DB.
type Option func(*DB)

// WithLogger sets the logger used for statement tracing at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(d *DB) {
		d.logger = logging.NewComponentLogger(logger, "catalogue")
	}
}

// WithTrace copies every executed insert statement to w, one per line.
func WithTrace(w io.Writer) Option {
	return func(d *DB) {
		d.trace = w
	}
}

// DB implements Gateway over database/sql.
type DB struct {
	db        *sql.DB
	driver    string
	namespace string
	logger    *slog.Logger
	trace     io.Writer
	closePool func()
}

// Open connects to the configured catalogue backend.
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (*DB, error) {
	var (
		db        *sql.DB
		closePool func()
		err       error
	)
	switch cfg.Catalogue.Driver {
	case config.DriverSQLite:
		db, err = openSQLite(cfg.Catalogue.DSN)
	case config.DriverPostgres:
		db, closePool, err = openPostgres(ctx, cfg.Catalogue.DSN)
	default:
		return nil, services.Wrap(services.ErrConfiguration, "catalogue", "open", fmt.Sprintf("unsupported driver %q", cfg.Catalogue.Driver), nil)
	}
	if err != nil {
		return nil, err
	}

	d := &DB{
		db:        db,
		driver:    cfg.Catalogue.Driver,
		namespace: cfg.Catalogue.Namespace,
		logger:    logging.NewNop(),
		closePool: closePool,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Close closes the underlying connection pool.
func (d *DB) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	err := d.db.Close()
	if d.closePool != nil {
		d.closePool()
	}
	return err
}

// Ping verifies the catalogue is reachable.
func (d *DB) Ping(ctx context.Context) error {
	if err := d.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping %s catalogue: %w", d.driver, err)
	}
	return nil
}

// Driver returns the backend name.
func (d *DB) Driver() string { return d.driver }

// Table qualifies name with the configured namespace.
func (d *DB) Table(name string) string {
	return QualifyTable(d.namespace, name)
}

// QualifyTable prefixes name with namespace when one is set.
func QualifyTable(namespace, name string) string {
	if namespace = strings.TrimSpace(namespace); namespace == "" {
		return name
	}
	return namespace + "." + name
}

// Select runs a rendered SELECT and returns rows in store order.
func (d *DB) Select(ctx context.Context, columns []string, table string, conds ...Condition) ([]Row, error) {
	query, err := RenderSelect(columns, table, conds)
	if err != nil {
		return nil, err
	}
	d.logger.Debug("catalogue select", logging.String("sql", query))

	var rows []Row
	err = d.withRetry(ctx, func() error {
		result, qerr := d.db.QueryContext(ctx, query)
		if qerr != nil {
			return qerr
		}
		defer result.Close()
		rows, qerr = scanRows(result)
		return qerr
	})
	if err != nil {
		return nil, fmt.Errorf("select from %s: %w", table, err)
	}
	return rows, nil
}

// Insert renders and executes a single-row INSERT.
func (d *DB) Insert(ctx context.Context, table string, cols []Column) error {
	statement, err := RenderInsert(table, cols)
	if err != nil {
		return err
	}
	d.logger.Debug("catalogue insert", logging.String("sql", statement))
	if err := d.withRetry(ctx, func() error {
		_, execErr := d.db.ExecContext(ctx, statement)
		return execErr
	}); err != nil {
		return fmt.Errorf("insert into %s: %w", table, err)
	}
	if d.trace != nil {
		if _, err := fmt.Fprintln(d.trace, statement+";"); err != nil {
			return fmt.Errorf("trace insert: %w", err)
		}
	}
	return nil
}

func (d *DB) withRetry(ctx context.Context, op func() error) error {
	if d.driver == config.DriverSQLite {
		return retryOnBusy(ctx, op)
	}
	return op()
}

func scanRows(rows *sql.Rows) ([]Row, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []Row
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, err
		}
		row := make(Row, len(columns))
		for i, column := range columns {
			row[strings.ToLower(column)] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// StatementWriter is a Gateway-shaped sink that renders inserts to w instead
// of executing them. Selects are delegated to the wrapped gateway so existence
// checks still see the real store.
type StatementWriter struct {
	Gateway
	w io.Writer
}

// NewStatementWriter wraps g so Insert writes statements to w.
func NewStatementWriter(g Gateway, w io.Writer) *StatementWriter {
	return &StatementWriter{Gateway: g, w: w}
}

// Insert renders the statement and writes it followed by ";\n".
func (s *StatementWriter) Insert(_ context.Context, table string, cols []Column) error {
	statement, err := RenderInsert(table, cols)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintln(s.w, statement+";"); err != nil {
		return fmt.Errorf("write statement: %w", err)
	}
	return nil
}
