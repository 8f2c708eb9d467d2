package snapshot

import (
	"context"
	"os"
	"path/filepath"

	"github.com/harrisonrobin/taskbox/pkg/model"
)

const snapshotFile = "tasks.json"

// FileStore keeps the snapshot in a JSON file.
type FileStore struct {
	Path string
}

// NewFileStore returns a FileStore writing tasks.json inside dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{Path: filepath.Join(dir, snapshotFile)}
}

func (s *FileStore) Read(_ context.Context) ([]model.Task, error) {
	b, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return []model.Task{}, nil
		}
		return nil, err
	}
	return Decode(b)
}

// Write replaces the file through a temporary file and a rename so a
// reader never sees a partial collection.
func (s *FileStore) Write(_ context.Context, tasks []model.Task) error {
	b, err := Encode(tasks)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	f, err := os.CreateTemp(dir, snapshotFile+".*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(b); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Chmod(tmp, 0600); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, s.Path)
}

func (s *FileStore) Close() error {
	return nil
}
