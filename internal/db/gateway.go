package db

import (
	"database/sql"
	"fmt"
	"regexp"
	"sort"
	"strings"

	apperrors "github.com/facturo/backend/internal/errors"
	"github.com/facturo/backend/internal/uuid"
)

// identPattern is the allow-list for caller-supplied table and column names.
// The gateway keeps the "arbitrary table" contract, so identifiers cannot be
// bound as parameters; they are pattern-checked and quoted instead.
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Gateway exposes generic parameterized access to the local store.
// It is the sole mutation producer feeding the sync queue.
type Gateway struct {
	db *DB
}

// NewGateway creates a Gateway over the shared store handle.
func NewGateway(db *DB) *Gateway {
	return &Gateway{db: db}
}

func quoteIdent(name string) (string, error) {
	if !identPattern.MatchString(name) {
		return "", apperrors.New(apperrors.ErrBadIdent, fmt.Sprintf("invalid identifier %q", name))
	}
	return `"` + name + `"`, nil
}

// Query runs a parameterized SELECT and returns all rows as column maps.
func (g *Gateway) Query(query string, args []interface{}) ([]map[string]interface{}, error) {
	g.db.Lock()
	defer g.db.Unlock()

	rows, err := g.db.DB.Query(query, args...)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStore, "query failed", err)
	}
	defer rows.Close()

	return scanRows(rows)
}

// QueryOne runs a parameterized SELECT and returns the first row, or nil when
// the result set is empty.
func (g *Gateway) QueryOne(query string, args []interface{}) (map[string]interface{}, error) {
	results, err := g.Query(query, args)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

// Exec runs a parameterized statement and returns the affected row count.
func (g *Gateway) Exec(query string, args []interface{}) (int64, error) {
	g.db.Lock()
	defer g.db.Unlock()

	res, err := g.db.DB.Exec(query, args...)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrStore, "exec failed", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrStore, "failed to get rows affected", err)
	}
	return affected, nil
}

// Insert writes one record into table. A uuid v4 id is generated when the
// payload has none. Returns the record id.
func (g *Gateway) Insert(table string, data map[string]interface{}) (string, error) {
	qt, err := quoteIdent(table)
	if err != nil {
		return "", err
	}

	id, ok := data["id"].(string)
	if !ok || id == "" {
		id = uuid.New()
		data["id"] = id
	}

	// Sorted for a deterministic statement shape
	columns := make([]string, 0, len(data))
	for col := range data {
		columns = append(columns, col)
	}
	sort.Strings(columns)

	quoted := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	values := make([]interface{}, len(columns))
	for i, col := range columns {
		qc, err := quoteIdent(col)
		if err != nil {
			return "", err
		}
		quoted[i] = qc
		placeholders[i] = "?"
		values[i] = data[col]
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		qt, strings.Join(quoted, ", "), strings.Join(placeholders, ", "))

	g.db.Lock()
	defer g.db.Unlock()

	if _, err := g.db.DB.Exec(query, values...); err != nil {
		return "", apperrors.Wrap(apperrors.ErrStore, "insert failed", err)
	}
	return id, nil
}

// Update replaces the given columns of one record identified by id.
func (g *Gateway) Update(table, id string, data map[string]interface{}) error {
	qt, err := quoteIdent(table)
	if err != nil {
		return err
	}

	columns := make([]string, 0, len(data))
	for col := range data {
		columns = append(columns, col)
	}
	sort.Strings(columns)

	setClauses := make([]string, len(columns))
	values := make([]interface{}, 0, len(columns)+1)
	for i, col := range columns {
		qc, err := quoteIdent(col)
		if err != nil {
			return err
		}
		setClauses[i] = qc + " = ?"
		values = append(values, data[col])
	}
	values = append(values, id)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", qt, strings.Join(setClauses, ", "))

	g.db.Lock()
	defer g.db.Unlock()

	if _, err := g.db.DB.Exec(query, values...); err != nil {
		return apperrors.Wrap(apperrors.ErrStore, "update failed", err)
	}
	return nil
}

// Delete removes one record identified by id.
func (g *Gateway) Delete(table, id string) error {
	qt, err := quoteIdent(table)
	if err != nil {
		return err
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE id = ?", qt)

	g.db.Lock()
	defer g.db.Unlock()

	if _, err := g.db.DB.Exec(query, id); err != nil {
		return apperrors.Wrap(apperrors.ErrStore, "delete failed", err)
	}
	return nil
}

// scanRows converts a result set into column-name maps, with []byte values
// decoded to strings so they JSON-encode as text.
func scanRows(rows *sql.Rows) ([]map[string]interface{}, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStore, "failed to read columns", err)
	}

	var results []map[string]interface{}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		pointers := make([]interface{}, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}

		if err := rows.Scan(pointers...); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrStore, "row scan failed", err)
		}

		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			v := values[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			row[col] = v
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStore, "row iteration failed", err)
	}
	return results, nil
}
