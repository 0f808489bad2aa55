package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"tracker-project/tracker-service/models"
)

// TaskRepository is the persistence collaborator: one serialized task
// collection, loaded once at startup and rewritten after every mutation.
// Load returns (nil, nil) when no prior state exists.
type TaskRepository interface {
	Load(ctx context.Context) ([]*models.Task, error)
	Save(ctx context.Context, tasks []*models.Task) error
}

// FileTaskRepository stores the collection as a single JSON document on
// disk, the file-backed equivalent of the browser storage blob.
type FileTaskRepository struct {
	path string
}

func NewFileTaskRepository(path string) *FileTaskRepository {
	return &FileTaskRepository{path: path}
}

func (r *FileTaskRepository) Load(ctx context.Context) ([]*models.Task, error) {
	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage error reading %s: %w", r.path, err)
	}

	var tasks []*models.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, fmt.Errorf("corrupt JSON in %s: %w", r.path, err)
	}
	return tasks, nil
}

// Save writes atomically: temp file in the same directory, then rename.
func (r *FileTaskRepository) Save(ctx context.Context, tasks []*models.Task) error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o700); err != nil {
		return fmt.Errorf("storage error creating directories: %w", err)
	}

	data, err := json.MarshalIndent(tasks, "", "  ")
	if err != nil {
		return fmt.Errorf("storage error marshalling JSON: %w", err)
	}

	tmpPath := r.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("storage error writing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, r.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("storage error renaming temp file: %w", err)
	}
	return nil
}
