package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

const stateFileName = "session.json"

// FileStorage persists session state as a small JSON document under the
// configured data folder. It is the durable-storage analog of browser
// local storage.
type FileStorage struct {
	mu   sync.Mutex
	path string
}

var _ Storage = (*FileStorage)(nil)

// NewFileStorage creates the data folder if needed and returns a
// FileStorage rooted in it.
func NewFileStorage(dataFolder string) (*FileStorage, error) {
	if dataFolder == "" {
		return nil, errors.New("[NewFileStorage] data folder is required")
	}
	if err := os.MkdirAll(dataFolder, 0o700); err != nil {
		return nil, errors.Wrap(err, "[NewFileStorage] create data folder")
	}
	return &FileStorage{path: filepath.Join(dataFolder, stateFileName)}, nil
}

func (fs *FileStorage) Get(key string) (string, bool, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	state, err := fs.load()
	if err != nil {
		return "", false, err
	}
	value, ok := state[key]
	return value, ok, nil
}

func (fs *FileStorage) Set(key, value string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	state, err := fs.load()
	if err != nil {
		return err
	}
	state[key] = value
	return fs.save(state)
}

func (fs *FileStorage) Delete(key string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	state, err := fs.load()
	if err != nil {
		return err
	}
	if _, ok := state[key]; !ok {
		return nil
	}
	delete(state, key)
	return fs.save(state)
}

func (fs *FileStorage) load() (map[string]string, error) {
	raw, err := os.ReadFile(fs.path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read session state")
	}
	state := map[string]string{}
	if err := json.Unmarshal(raw, &state); err != nil {
		// An unreadable state file is treated as empty; the next write
		// replaces it.
		return map[string]string{}, nil
	}
	return state, nil
}

func (fs *FileStorage) save(state map[string]string) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return errors.Wrap(err, "marshal session state")
	}
	if err := os.WriteFile(fs.path, raw, 0o600); err != nil {
		return errors.Wrap(err, "write session state")
	}
	return nil
}
