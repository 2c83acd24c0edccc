package storage

import (
	"context"
)

type GetEntryRow struct {
	Key   string
	Value string
}

const getEntry = `-- name: GetEntry :one
SELECT key, value FROM kv_entries WHERE key = ?
`

func (q *Queries) GetEntry(ctx context.Context, key string) (GetEntryRow, error) {
	row := q.db.QueryRowContext(ctx, getEntry, key)
	var i GetEntryRow
	err := row.Scan(&i.Key, &i.Value)
	return i, err
}

const upsertEntry = `-- name: UpsertEntry :exec
INSERT INTO kv_entries (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
`

type UpsertEntryParams struct {
	Key   string
	Value string
}

func (q *Queries) UpsertEntry(ctx context.Context, arg UpsertEntryParams) error {
	_, err := q.db.ExecContext(ctx, upsertEntry, arg.Key, arg.Value)
	return err
}

const deleteEntry = `-- name: DeleteEntry :exec
DELETE FROM kv_entries WHERE key = ?
`

func (q *Queries) DeleteEntry(ctx context.Context, key string) error {
	_, err := q.db.ExecContext(ctx, deleteEntry, key)
	return err
}

const listKeys = `-- name: ListKeys :many
SELECT key FROM kv_entries ORDER BY key
`

func (q *Queries) ListKeys(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listKeys)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		items = append(items, key)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
