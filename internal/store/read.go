package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/cueline/internal/rundown"
	"github.com/roach88/cueline/internal/runtime"
)

// RundownInfo summarises a stored rundown without decoding it.
type RundownInfo struct {
	ID       string
	Title    string
	Revision int64
	Hash     string
}

// GetRundown reads the rundown id. Returns an error wrapping ErrNotFound
// when it does not exist.
func (s *Store) GetRundown(ctx context.Context, id string) (rundown.Rundown, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM rundowns WHERE id = ?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return rundown.Rundown{}, fmt.Errorf("get rundown %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return rundown.Rundown{}, fmt.Errorf("get rundown %s: %w", id, err)
	}
	r, err := unmarshalRundown(doc)
	if err != nil {
		return rundown.Rundown{}, fmt.Errorf("get rundown %s: %w", id, err)
	}
	return r, nil
}

// ListRundowns returns every stored rundown ordered by id.
func (s *Store) ListRundowns(ctx context.Context) ([]RundownInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, revision, hash
		FROM rundowns
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list rundowns: %w", err)
	}
	defer rows.Close()

	var out []RundownInfo
	for rows.Next() {
		var info RundownInfo
		if err := rows.Scan(&info.ID, &info.Title, &info.Revision, &info.Hash); err != nil {
			return nil, fmt.Errorf("list rundowns: %w", err)
		}
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list rundowns: %w", err)
	}
	return out, nil
}

// GetCustomFields reads all custom field definitions. An empty table yields
// an empty, non-nil map.
func (s *Store) GetCustomFields(ctx context.Context) (rundown.CustomFields, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, label, type, colour
		FROM custom_fields
		ORDER BY key COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("get custom fields: %w", err)
	}
	defer rows.Close()

	defs := rundown.CustomFields{}
	for rows.Next() {
		var key, kind string
		var def rundown.CustomField
		if err := rows.Scan(&key, &def.Label, &kind, &def.Colour); err != nil {
			return nil, fmt.Errorf("get custom fields: %w", err)
		}
		def.Type = rundown.CustomFieldType(kind)
		defs[key] = def
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get custom fields: %w", err)
	}
	return defs, nil
}

// GetRestorePoint reads the saved playback state. ok is false when none
// was ever written.
func (s *Store) GetRestorePoint(ctx context.Context) (p runtime.RestorePoint, ok bool, err error) {
	var doc string
	err = s.db.QueryRowContext(ctx, `SELECT doc FROM restore_point WHERE id = 1`).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return runtime.RestorePoint{}, false, nil
	}
	if err != nil {
		return runtime.RestorePoint{}, false, fmt.Errorf("get restore point: %w", err)
	}
	p, err = unmarshalRestorePoint(doc)
	if err != nil {
		return runtime.RestorePoint{}, false, err
	}
	return p, true, nil
}

// GetSetting reads a string setting. ok is false when it is unset.
func (s *Store) GetSetting(ctx context.Context, key string) (value string, ok bool, err error) {
	err = s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting %s: %w", key, err)
	}
	return value, true, nil
}
