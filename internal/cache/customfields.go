package cache

import (
	"fmt"

	"github.com/roach88/cueline/internal/rundown"
)

// CreateCustomField adds a definition keyed by its label and returns the key.
func (c *Cache) CreateCustomField(field rundown.CustomField) (string, error) {
	key, err := rundown.FieldKey(field.Label)
	if err != nil {
		return "", fmt.Errorf("create custom field: %w", err)
	}
	if err := checkFieldType(field.Type); err != nil {
		return "", fmt.Errorf("create custom field %s: %w", key, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.defs[key]; exists {
		return "", fmt.Errorf("create custom field %s: %w", key, ErrFieldExists)
	}
	defs := c.defs.Clone()
	defs[key] = field
	c.defs = defs
	c.persist.enqueueCustomFields(defs.Clone())
	c.markStale()
	c.logger.Info("custom field created", "key", key)
	return key, nil
}

// RenameCustomField relabels the field key and returns its new key. When the
// key changes, the rename is recorded in the changelog and every cached
// rundown is re-processed so entry values move to the new key.
func (c *Cache) RenameCustomField(key, label string) (string, error) {
	newKey, err := rundown.FieldKey(label)
	if err != nil {
		return "", fmt.Errorf("rename custom field %s: %w", key, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	field, ok := c.defs[key]
	if !ok {
		return "", fmt.Errorf("rename custom field %s: %w", key, ErrFieldNotFound)
	}
	if _, taken := c.defs[newKey]; taken && newKey != key {
		return "", fmt.Errorf("rename custom field %s to %s: %w", key, newKey, ErrFieldExists)
	}

	defs := c.defs.Clone()
	delete(defs, key)
	field.Label = label
	defs[newKey] = field
	c.defs = defs
	c.persist.enqueueCustomFields(defs.Clone())

	if newKey != key {
		c.changelog.Record(key, newKey)
		c.recommitAll()
	}
	c.logger.Info("custom field renamed", "key", key, "new_key", newKey)
	return newKey, nil
}

// DeleteCustomField removes the definition key and its values from every
// cached rundown.
func (c *Cache) DeleteCustomField(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.defs[key]; !ok {
		return fmt.Errorf("delete custom field %s: %w", key, ErrFieldNotFound)
	}

	defs := c.defs.Clone()
	delete(defs, key)
	c.defs = defs
	c.persist.enqueueCustomFields(defs.Clone())

	for from := range c.changelog {
		if to, _ := c.changelog.Resolve(from); to == key {
			delete(c.changelog, from)
		}
	}
	for _, s := range c.slots {
		for _, e := range s.rundown.Entries {
			values := rundown.CustomOf(e)
			if _, has := values[key]; !has {
				continue
			}
			kept := make(map[string]string, len(values))
			for k, v := range values {
				if k != key {
					kept[k] = v
				}
			}
			rundown.SetCustom(e, kept)
		}
	}
	c.recommitAll()
	c.logger.Info("custom field deleted", "key", key)
	return nil
}

// recommitAll re-processes every cached rundown as a new revision and
// schedules the writes. Callers hold c.mu.
func (c *Cache) recommitAll() {
	for _, s := range c.slots {
		rev := s.rundown.Revision
		c.process(s, s.rundown)
		s.rundown.Revision = rev + 1
		c.persist.enqueueRundown(s.rundown.Clone())
	}
}

// markStale flags every cached rundown for a rebuild on the next read.
func (c *Cache) markStale() {
	for _, s := range c.slots {
		s.state = StateStale
	}
}

func checkFieldType(t rundown.CustomFieldType) error {
	switch t {
	case rundown.FieldText, rundown.FieldImage:
		return nil
	default:
		return fmt.Errorf("unknown field type %q", t)
	}
}
