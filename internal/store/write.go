package store

import (
	"context"
	"fmt"
	"slices"

	"github.com/roach88/cueline/internal/rundown"
	"github.com/roach88/cueline/internal/runtime"
)

// SetRundown writes r under id, replacing any previous version.
// The document is serialized to canonical JSON and stored with its hash.
func (s *Store) SetRundown(ctx context.Context, id string, r rundown.Rundown) error {
	doc, hash, err := marshalRundown(r)
	if err != nil {
		return fmt.Errorf("set rundown %s: %w", id, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO rundowns (id, title, revision, hash, doc)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			revision = excluded.revision,
			hash = excluded.hash,
			doc = excluded.doc
	`, id, r.Title, r.Revision, hash, doc)
	if err != nil {
		return fmt.Errorf("set rundown %s: %w", id, err)
	}
	return nil
}

// DeleteRundown removes the rundown id. Deleting a missing rundown is not
// an error.
func (s *Store) DeleteRundown(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM rundowns WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete rundown %s: %w", id, err)
	}
	return nil
}

// SetCustomFields replaces all custom field definitions in one transaction.
func (s *Store) SetCustomFields(ctx context.Context, defs rundown.CustomFields) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("set custom fields: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM custom_fields`); err != nil {
		return fmt.Errorf("set custom fields: %w", err)
	}
	keys := make([]string, 0, len(defs))
	for k := range defs {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, key := range keys {
		def := defs[key]
		_, err := tx.ExecContext(ctx, `
			INSERT INTO custom_fields (key, label, type, colour)
			VALUES (?, ?, ?, ?)
		`, key, def.Label, string(def.Type), def.Colour)
		if err != nil {
			return fmt.Errorf("set custom field %s: %w", key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("set custom fields: %w", err)
	}
	return nil
}

// SetRestorePoint records the playback state to resume after a restart.
func (s *Store) SetRestorePoint(ctx context.Context, p runtime.RestorePoint) error {
	doc, err := marshalRestorePoint(p)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO restore_point (id, doc) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET doc = excluded.doc
	`, doc)
	if err != nil {
		return fmt.Errorf("set restore point: %w", err)
	}
	return nil
}

// SetSetting stores a string setting, such as the id of the last loaded
// rundown.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}
