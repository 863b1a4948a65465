package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/annel0/voxel-world/internal/vec"
)

// FileStore хранит каждую запись чанка в отдельном файле
type FileStore struct {
	basePath string
	mu       sync.RWMutex
	closed   bool
}

// NewFileStore создает файловое хранилище в указанной директории
func NewFileStore(basePath string) (*FileStore, error) {
	// Создаем директорию, если она не существует
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию для хранения: %w", err)
	}
	return &FileStore{basePath: basePath}, nil
}

// Load читает запись чанка. Отсутствие файла - ErrNotFound.
func (fs *FileStore) Load(coords vec.Vec2) ([]byte, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	if fs.closed {
		return nil, ErrClosed
	}

	data, err := os.ReadFile(fs.chunkFilename(coords))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка чтения файла чанка %v: %w", coords, err)
	}
	return data, nil
}

// Save атомарно записывает файл чанка: сначала во временный файл, затем rename
func (fs *FileStore) Save(coords vec.Vec2, data []byte) error {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	if fs.closed {
		return ErrClosed
	}

	filename := fs.chunkFilename(coords)
	tmp, err := os.CreateTemp(fs.basePath, filepath.Base(filename)+".*.tmp")
	if err != nil {
		return fmt.Errorf("не удалось создать временный файл: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("ошибка записи файла чанка %v: %w", coords, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("ошибка синхронизации файла чанка %v: %w", coords, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("ошибка закрытия файла чанка %v: %w", coords, err)
	}
	if err := os.Rename(tmpName, filename); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("ошибка переименования файла чанка %v: %w", coords, err)
	}
	return nil
}

// Close закрывает хранилище
func (fs *FileStore) Close() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.closed = true
	return nil
}

// chunkFilename возвращает имя файла для чанка
func (fs *FileStore) chunkFilename(coords vec.Vec2) string {
	return filepath.Join(fs.basePath, fmt.Sprintf("chunk_%d_%d.bin", coords.X, coords.Y))
}
