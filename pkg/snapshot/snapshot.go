// Package snapshot persists the last known task collection so it can be
// read back when the remote service is unreachable.
package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/harrisonrobin/taskbox/pkg/model"
)

// Store is a whole-collection key-value persistence surface. Read returns
// an empty collection when nothing has been written yet. Write replaces
// the stored collection.
type Store interface {
	Read(ctx context.Context) ([]model.Task, error)
	Write(ctx context.Context, tasks []model.Task) error
	Close() error
}

// Encode renders tasks as one JSON array.
func Encode(tasks []model.Task) ([]byte, error) {
	if tasks == nil {
		tasks = []model.Task{}
	}
	b, err := json.MarshalIndent(tasks, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return b, nil
}

// Decode parses a JSON array of tasks. Blank input decodes to an empty
// collection.
func Decode(b []byte) ([]model.Task, error) {
	tasks := []model.Task{}
	if len(bytes.TrimSpace(b)) == 0 {
		return tasks, nil
	}
	if err := json.Unmarshal(b, &tasks); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	return tasks, nil
}
