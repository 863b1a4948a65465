package storage

import (
	"fmt"

	"github.com/annel0/voxel-world/internal/vec"
	"github.com/klauspost/compress/zstd"
)

// CompressedStore сжимает записи zstd перед передачей во вложенное хранилище.
// Кодек о сжатии не знает.
type CompressedStore struct {
	inner ChunkStore
	enc   *zstd.Encoder
	dec   *zstd.Decoder
}

// NewCompressedStore оборачивает хранилище
func NewCompressedStore(inner ChunkStore) (*CompressedStore, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("не удалось создать zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("не удалось создать zstd decoder: %w", err)
	}
	return &CompressedStore{inner: inner, enc: enc, dec: dec}, nil
}

// Load читает и распаковывает запись. Повреждённый поток сообщается как DecodeError.
func (cs *CompressedStore) Load(coords vec.Vec2) ([]byte, error) {
	data, err := cs.inner.Load(coords)
	if err != nil {
		return nil, err
	}
	out, err := cs.dec.DecodeAll(data, nil)
	if err != nil {
		return nil, &DecodeError{Kind: DecodeCorrupt, Detail: fmt.Sprintf("zstd: %v", err)}
	}
	return out, nil
}

// Save сжимает и записывает запись
func (cs *CompressedStore) Save(coords vec.Vec2, data []byte) error {
	return cs.inner.Save(coords, cs.enc.EncodeAll(data, nil))
}

// Close закрывает вложенное хранилище и освобождает кодеры
func (cs *CompressedStore) Close() error {
	cs.dec.Close()
	if err := cs.enc.Close(); err != nil {
		cs.inner.Close()
		return err
	}
	return cs.inner.Close()
}
