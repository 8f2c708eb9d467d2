// Package index remembers which remote id a service assigned to each local
// task id, so a backend can address a task without scanning its list.
package index

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const (
	fileName      = "remote_ids.json"
	formatVersion = 1
)

type document struct {
	Version   int               `json:"version"`
	RemoteIDs map[string]string `json:"remote_ids"`
}

// Index maps local task ids to remote ids. Changes stay in memory until
// Flush.
type Index struct {
	path string

	mu      sync.RWMutex
	ids     map[string]string
	changed bool
}

// Open reads the index kept in dir. A missing file yields an empty index.
func Open(dir string) (*Index, error) {
	idx := &Index{path: filepath.Join(dir, fileName), ids: make(map[string]string)}

	data, err := os.ReadFile(idx.path)
	if errors.Is(err, os.ErrNotExist) {
		return idx, nil
	}
	if err != nil {
		return nil, err
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("corrupt remote id index %s: %w", idx.path, err)
	}
	if doc.Version != formatVersion {
		return nil, fmt.Errorf("remote id index %s has unsupported version %d", idx.path, doc.Version)
	}
	for local, remote := range doc.RemoteIDs {
		if local != "" && remote != "" {
			idx.ids[local] = remote
		}
	}
	return idx, nil
}

// Path is the file the index is flushed to.
func (idx *Index) Path() string { return idx.path }

func (idx *Index) Lookup(localID string) (string, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	remote, ok := idx.ids[localID]
	return remote, ok
}

func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.ids)
}

// Record maps localID to remoteID. Empty ids are ignored.
func (idx *Index) Record(localID, remoteID string) {
	if localID == "" || remoteID == "" {
		return
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.ids[localID] != remoteID {
		idx.ids[localID] = remoteID
		idx.changed = true
	}
}

func (idx *Index) Forget(localID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if _, ok := idx.ids[localID]; ok {
		delete(idx.ids, localID)
		idx.changed = true
	}
}

// Replace makes live the complete mapping, as read from a full remote
// listing. It returns how many entries were dropped because their task is
// no longer listed.
func (idx *Index) Replace(live map[string]string) int {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	dropped := 0
	for local := range idx.ids {
		if _, ok := live[local]; !ok {
			dropped++
		}
	}
	next := make(map[string]string, len(live))
	for local, remote := range live {
		if local == "" || remote == "" {
			continue
		}
		next[local] = remote
		if idx.ids[local] != remote {
			idx.changed = true
		}
	}
	if dropped > 0 {
		idx.changed = true
	}
	idx.ids = next
	return dropped
}

// Flush writes the index when it changed since the last Flush. The file is
// replaced atomically.
func (idx *Index) Flush() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if !idx.changed {
		return nil
	}

	data, err := json.MarshalIndent(document{Version: formatVersion, RemoteIDs: idx.ids}, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(idx.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, fileName+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), idx.path); err != nil {
		return err
	}
	idx.changed = false
	return nil
}
