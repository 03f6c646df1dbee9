package docstore

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"net"

	"github.com/lib/pq"
)

// PostgresStore keeps every collection in one JSONB table, see
// repository.CreateTableIfNotExists.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const selectColumns = "id, version, data, created_at, updated_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner, collection string) (Document, error) {
	var (
		doc Document
		raw []byte
	)
	if err := row.Scan(&doc.ID, &doc.Version, &raw, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		return Document{}, err
	}
	doc.Collection = collection
	doc.Data = map[string]any{}
	if err := json.Unmarshal(raw, &doc.Data); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	doc.CreatedAt = doc.CreatedAt.UTC()
	doc.UpdatedAt = doc.UpdatedAt.UTC()
	return doc, nil
}

func (p *PostgresStore) Get(ctx context.Context, collection, id string) (Document, error) {
	if err := checkCollection(collection); err != nil {
		return Document{}, err
	}
	row := p.db.QueryRowContext(ctx,
		"SELECT "+selectColumns+" FROM documents WHERE collection = $1 AND id = $2",
		collection, id)
	doc, err := scanDocument(row, collection)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, wrapErr("get", err)
	}
	return doc, nil
}

func (p *PostgresStore) Query(ctx context.Context, collection string, filters ...Filter) ([]Document, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}
	if err := checkFilters(filters); err != nil {
		return nil, err
	}
	// equality predicates become one containment check: data @> {"f": v, ...}
	predicate := make(map[string]any, len(filters))
	for _, f := range filters {
		predicate[f.Field] = f.Value
	}
	rawPredicate, err := json.Marshal(predicate)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	rows, err := p.db.QueryContext(ctx,
		"SELECT "+selectColumns+" FROM documents WHERE collection = $1 AND data @> $2::jsonb ORDER BY created_at, id",
		collection, string(rawPredicate))
	if err != nil {
		return nil, wrapErr("query", err)
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		doc, err := scanDocument(rows, collection)
		if err != nil {
			return nil, wrapErr("scan", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("query", err)
	}
	return docs, nil
}

func (p *PostgresStore) Create(ctx context.Context, collection, id string, data map[string]any) (Document, error) {
	if err := checkCollection(collection); err != nil {
		return Document{}, err
	}
	clean, err := normalize(data)
	if err != nil {
		return Document{}, err
	}
	clean = merge(nil, clean)
	if id == "" {
		id = newID()
	}
	raw, err := json.Marshal(clean)
	if err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	row := p.db.QueryRowContext(ctx,
		"INSERT INTO documents (collection, id, version, data) VALUES ($1, $2, 1, $3::jsonb) RETURNING "+selectColumns,
		collection, id, string(raw))
	doc, err := scanDocument(row, collection)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return Document{}, ErrAlreadyExists
		}
		return Document{}, wrapErr("create", err)
	}
	return doc, nil
}

func (p *PostgresStore) Update(ctx context.Context, collection, id string, fields map[string]any, expectedVersion int64) (Document, error) {
	if err := checkCollection(collection); err != nil {
		return Document{}, err
	}
	clean, err := normalize(fields)
	if err != nil {
		return Document{}, err
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return Document{}, wrapErr("begin", err)
	}
	defer tx.Rollback()

	current, err := scanDocument(tx.QueryRowContext(ctx,
		"SELECT "+selectColumns+" FROM documents WHERE collection = $1 AND id = $2 FOR UPDATE",
		collection, id), collection)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, wrapErr("update", err)
	}
	if expectedVersion > 0 && current.Version != expectedVersion {
		return Document{}, ErrVersionConflict
	}

	raw, err := json.Marshal(merge(current.Data, clean))
	if err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	updated, err := scanDocument(tx.QueryRowContext(ctx,
		`UPDATE documents SET data = $3::jsonb, version = version + 1, updated_at = now()
		WHERE collection = $1 AND id = $2 RETURNING `+selectColumns,
		collection, id, string(raw)), collection)
	if err != nil {
		return Document{}, wrapErr("update", err)
	}
	if err := tx.Commit(); err != nil {
		return Document{}, wrapErr("commit", err)
	}
	return updated, nil
}

func (p *PostgresStore) Delete(ctx context.Context, collection, id string) error {
	if err := checkCollection(collection); err != nil {
		return err
	}
	res, err := p.db.ExecContext(ctx, "DELETE FROM documents WHERE collection = $1 AND id = $2", collection, id)
	if err != nil {
		return wrapErr("delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapErr("delete", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresStore) Close() error {
	return p.db.Close()
}

// wrapErr turns connectivity failures into ErrUnavailable and keeps every
// other driver error as is.
func wrapErr(op string, err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, driver.ErrBadConn),
		errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr):
		return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
	}
	return fmt.Errorf("docstore %s: %w", op, err)
}
