// Package sqlite provides a SQLite-backed executor for veil operations.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/jacentio/veil"
	"github.com/jacentio/veil/internal/sqlgen"
)

// Table maps a logical entity to its SQL table.
type Table struct {
	// Entity is the logical entity name (e.g. "order").
	Entity string

	// Name is the SQL table name (e.g. "orders").
	Name string

	// Key is the primary key column. Default: "id"
	Key string
}

// Executor runs veil operations against a SQLite database. It supports the
// full post-rewrite action vocabulary, plus the direct lookup and physical
// delete paths used by skip-listed entities.
type Executor struct {
	db       *sql.DB
	tables   map[string]Table
	registry *veil.Registry
}

// NewExecutor creates an Executor over an open database handle.
func NewExecutor(db *sql.DB, tables ...Table) *Executor {
	e := &Executor{
		db:     db,
		tables: make(map[string]Table, len(tables)),
	}
	for _, t := range tables {
		if t.Key == "" {
			t.Key = "id"
		}
		e.tables[t.Entity] = t
	}
	return e
}

// Open opens a SQLite database file and returns an Executor over it.
func Open(path string, tables ...Table) (*Executor, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	return NewExecutor(db, tables...), nil
}

// SetRegistry sets the relationship registry used to resolve Include.
func (e *Executor) SetRegistry(registry *veil.Registry) {
	e.registry = registry
}

// DB returns the underlying database handle.
func (e *Executor) DB() *sql.DB {
	return e.db
}

// Close closes the underlying database handle.
func (e *Executor) Close() error {
	if e == nil || e.db == nil {
		return nil
	}
	return e.db.Close()
}

// Exec runs one operation and returns its rows or affected-row count.
func (e *Executor) Exec(ctx context.Context, op *veil.Operation) (*veil.Result, error) {
	t, ok := e.tables[op.Entity]
	if !ok {
		return nil, fmt.Errorf("%w: %s", veil.ErrUnknownEntity, op.Entity)
	}

	switch op.Action {
	case veil.ActionCreate:
		return e.create(ctx, t, op)
	case veil.ActionFindUnique, veil.ActionFindFirst:
		return e.findOne(ctx, t, op)
	case veil.ActionFindMany:
		return e.findMany(ctx, t, op)
	case veil.ActionUpdate, veil.ActionUpdateMany:
		return e.update(ctx, t, op)
	case veil.ActionDelete, veil.ActionDeleteMany:
		return e.delete(ctx, t, op)
	}
	return nil, fmt.Errorf("%w: %s", veil.ErrUnsupported, op.Action)
}

// create inserts one record, generating the key if absent.
func (e *Executor) create(ctx context.Context, t Table, op *veil.Operation) (*veil.Result, error) {
	data := make(map[string]any, len(op.Args.Data)+1)
	for k, v := range op.Args.Data {
		data[k] = v
	}
	if _, ok := data[t.Key]; !ok {
		data[t.Key] = uuid.New().String()
	}

	columns, placeholders, args := sqlgen.BuildInsert(data)
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		sqlgen.QuoteIdent(t.Name), columns, placeholders)

	if _, err := e.db.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("insert %s: %w", op.Entity, err)
	}

	return &veil.Result{Records: []veil.Record{veil.Record(data)}, Count: 1}, nil
}

// findOne returns the first matching record, or ErrNotFound.
func (e *Executor) findOne(ctx context.Context, t Table, op *veil.Operation) (*veil.Result, error) {
	records, err := e.query(ctx, t, op.Args.Where, op.Args.OrderBy, 1)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s", veil.ErrNotFound, op.Entity)
	}
	if err := e.loadRelations(ctx, op.Entity, records, op.Args.Include); err != nil {
		return nil, err
	}
	return &veil.Result{Records: records, Count: int64(len(records))}, nil
}

// findMany returns all matching records.
func (e *Executor) findMany(ctx context.Context, t Table, op *veil.Operation) (*veil.Result, error) {
	records, err := e.query(ctx, t, op.Args.Where, op.Args.OrderBy, op.Args.Limit)
	if err != nil {
		return nil, err
	}
	if err := e.loadRelations(ctx, op.Entity, records, op.Args.Include); err != nil {
		return nil, err
	}
	return &veil.Result{Records: records, Count: int64(len(records))}, nil
}

// update applies field assignments to all matching records.
func (e *Executor) update(ctx context.Context, t Table, op *veil.Operation) (*veil.Result, error) {
	set, setArgs := sqlgen.BuildSet(op.Args.Data)
	if set == "" {
		return nil, fmt.Errorf("update %s: no data", op.Entity)
	}

	where, whereArgs := sqlgen.BuildWhere(normalizeWhere(op.Args.Where))
	query := fmt.Sprintf("UPDATE %s SET %s", sqlgen.QuoteIdent(t.Name), set)
	if where != "" {
		query += " WHERE " + where
	}

	res, err := e.db.ExecContext(ctx, query, append(setArgs, whereArgs...)...)
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", op.Entity, err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	return &veil.Result{Count: count}, nil
}

// delete physically removes matching records. Only skip-listed entities
// reach this path; everything else is rewritten to an update upstream.
func (e *Executor) delete(ctx context.Context, t Table, op *veil.Operation) (*veil.Result, error) {
	where, whereArgs := sqlgen.BuildWhere(normalizeWhere(op.Args.Where))
	query := "DELETE FROM " + sqlgen.QuoteIdent(t.Name)
	if where != "" {
		query += " WHERE " + where
	}

	res, err := e.db.ExecContext(ctx, query, whereArgs...)
	if err != nil {
		return nil, fmt.Errorf("delete %s: %w", op.Entity, err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	return &veil.Result{Count: count}, nil
}

// query selects records by equality predicate.
func (e *Executor) query(ctx context.Context, t Table, where veil.Where, orderBy string, limit int) ([]veil.Record, error) {
	clause, args := sqlgen.BuildWhere(normalizeWhere(where))
	query := "SELECT * FROM " + sqlgen.QuoteIdent(t.Name)
	if clause != "" {
		query += " WHERE " + clause
	}
	if orderBy != "" {
		query += " ORDER BY " + sqlgen.QuoteIdent(orderBy)
	}
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", t.Name, err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// loadRelations eagerly attaches included relations to each record. The
// inclusion descriptor's own Where is applied as-is; nothing is filtered
// beyond what the descriptor asks for.
func (e *Executor) loadRelations(ctx context.Context, entity string, records []veil.Record, include veil.Include) error {
	if len(include) == 0 || len(records) == 0 {
		return nil
	}
	if e.registry == nil {
		return fmt.Errorf("%w: no registry configured", veil.ErrUnknownRelation)
	}

	names := make([]string, 0, len(include))
	for name := range include {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		rel, ok := e.registry.Relation(entity, name)
		if !ok {
			return fmt.Errorf("%w: %s.%s", veil.ErrUnknownRelation, entity, name)
		}
		child, ok := e.tables[rel.ChildEntity]
		if !ok {
			return fmt.Errorf("%w: %s", veil.ErrUnknownEntity, rel.ChildEntity)
		}

		desc := include[name]
		parent := e.tables[entity]

		for _, record := range records {
			where := veil.Where{rel.ForeignKeyField: record[parent.Key]}
			if desc != nil {
				for k, v := range desc.Where {
					where[k] = v
				}
			}

			childRecords, err := e.query(ctx, child, where, "", 0)
			if err != nil {
				return err
			}
			if desc != nil && len(desc.Include) > 0 {
				if err := e.loadRelations(ctx, rel.ChildEntity, childRecords, desc.Include); err != nil {
					return err
				}
			}
			record[name] = childRecords
		}
	}
	return nil
}

// normalizeWhere hoists composite-key groups so skip-listed unique lookups
// (which bypass the rewrite chain) still bind cleanly.
func normalizeWhere(where veil.Where) map[string]any {
	if where == nil {
		return nil
	}
	flat := make(map[string]any, len(where))
	for key, value := range where {
		switch group := value.(type) {
		case veil.Where:
			for k, v := range group {
				flat[k] = v
			}
		case map[string]any:
			for k, v := range group {
				flat[k] = v
			}
		default:
			flat[key] = value
		}
	}
	return flat
}

// scanRecords reads all rows into generic records.
func scanRecords(rows *sql.Rows) ([]veil.Record, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var records []veil.Record
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, err
		}

		record := make(veil.Record, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				record[col] = string(b)
			} else {
				record[col] = values[i]
			}
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
