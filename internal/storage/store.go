package storage

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/annel0/voxel-world/internal/vec"
)

// ErrNotFound возвращается, если для чанка нет сохранённой записи
var ErrNotFound = errors.New("запись чанка не найдена")

// ErrClosed возвращается после закрытия хранилища
var ErrClosed = errors.New("хранилище закрыто")

// ChunkStore хранит закодированные записи чанков по координатам.
// Реализации безопасны для одновременного использования воркерами.
type ChunkStore interface {
	Load(coords vec.Vec2) ([]byte, error)
	Save(coords vec.Vec2, data []byte) error
	Close() error
}

// Типы хранилищ
const (
	BackendFile   = "file"
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// Алгоритмы сжатия записей
const (
	CompressionNone = "none"
	CompressionZstd = "zstd"
)

// Options описывает выбор хранилища
type Options struct {
	Backend     string
	Path        string
	Compression string
}

// Open открывает хранилище чанков по настройкам
func Open(opts Options) (ChunkStore, error) {
	var (
		store ChunkStore
		err   error
	)
	switch opts.Backend {
	case "", BackendFile:
		store, err = NewFileStore(filepath.Join(opts.Path, "chunks"))
	case BackendBadger:
		store, err = NewBadgerStore(filepath.Join(opts.Path, "db"))
	case BackendMemory:
		store = NewMemoryStore()
	default:
		return nil, fmt.Errorf("неизвестный тип хранилища %q", opts.Backend)
	}
	if err != nil {
		return nil, err
	}

	switch opts.Compression {
	case "", CompressionNone:
		return store, nil
	case CompressionZstd:
		compressed, err := NewCompressedStore(store)
		if err != nil {
			store.Close()
			return nil, err
		}
		return compressed, nil
	default:
		store.Close()
		return nil, fmt.Errorf("неизвестный алгоритм сжатия %q", opts.Compression)
	}
}

func chunkKey(coords vec.Vec2) []byte {
	return []byte(fmt.Sprintf("chunk:%d:%d", coords.X, coords.Y))
}
