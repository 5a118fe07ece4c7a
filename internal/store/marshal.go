package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/cueline/internal/rundown"
	"github.com/roach88/cueline/internal/runtime"
)

// marshalRundown converts a rundown to canonical JSON TEXT and its content
// hash. Canonical form keeps the stored text byte-stable across writes.
func marshalRundown(r rundown.Rundown) (doc, hash string, err error) {
	data, err := rundown.MarshalCanonical(r)
	if err != nil {
		return "", "", fmt.Errorf("marshal rundown: %w", err)
	}
	hash, err = rundown.Hash(r)
	if err != nil {
		return "", "", fmt.Errorf("marshal rundown: %w", err)
	}
	return string(data), hash, nil
}

// unmarshalRundown parses a stored document. Stored documents were written
// by marshalRundown, so decoding is strict.
func unmarshalRundown(doc string) (rundown.Rundown, error) {
	var r rundown.Rundown
	if err := json.Unmarshal([]byte(doc), &r); err != nil {
		return rundown.Rundown{}, fmt.Errorf("unmarshal rundown: %w", err)
	}
	return r, nil
}

// marshalRestorePoint converts a restore point to JSON TEXT.
// Uses json.Encoder with HTML escaping disabled to match canonical output.
func marshalRestorePoint(p runtime.RestorePoint) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(p); err != nil {
		return "", fmt.Errorf("marshal restore point: %w", err)
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}

func unmarshalRestorePoint(doc string) (runtime.RestorePoint, error) {
	var p runtime.RestorePoint
	if err := json.Unmarshal([]byte(doc), &p); err != nil {
		return runtime.RestorePoint{}, fmt.Errorf("unmarshal restore point: %w", err)
	}
	return p, nil
}
