package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/annel0/voxel-world/internal/world"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// LevelFileName - имя файла метаданных уровня
const LevelFileName = "level.yaml"

// ErrLevelMismatch возвращается, если сохранённый уровень создан с другими размерами чанка
var ErrLevelMismatch = errors.New("уровень создан с другими размерами чанка")

// LevelInfo описывает сохранённый мир
type LevelInfo struct {
	WorldID       string    `yaml:"world_id" json:"world_id"`
	Seed          int64     `yaml:"seed" json:"seed"`
	ChunkWidth    int       `yaml:"chunk_width" json:"chunk_width"`
	ChunkHeight   int       `yaml:"chunk_height" json:"chunk_height"`
	FormatVersion uint32    `yaml:"format_version" json:"format_version"`
	CreatedAt     time.Time `yaml:"created_at" json:"created_at"`
}

// Dims возвращает размеры чанка уровня
func (l *LevelInfo) Dims() world.Dimensions {
	return world.Dimensions{Width: l.ChunkWidth, Height: l.ChunkHeight}
}

// OpenLevel читает level.yaml из dir или создаёт новый уровень.
// Для существующего уровня сид берётся из файла. Возвращает true, если уровень создан.
func OpenLevel(dir string, seed int64, dims world.Dimensions) (*LevelInfo, bool, error) {
	path := filepath.Join(dir, LevelFileName)

	data, err := os.ReadFile(path)
	if err == nil {
		var info LevelInfo
		if err := yaml.Unmarshal(data, &info); err != nil {
			return nil, false, fmt.Errorf("ошибка разбора %s: %w", path, err)
		}
		if info.Dims() != dims {
			return nil, false, fmt.Errorf("%w: %dx%d, в конфигурации %dx%d", ErrLevelMismatch,
				info.ChunkWidth, info.ChunkHeight, dims.Width, dims.Height)
		}
		return &info, false, nil
	}
	if !os.IsNotExist(err) {
		return nil, false, fmt.Errorf("ошибка чтения %s: %w", path, err)
	}

	info := &LevelInfo{
		WorldID:       uuid.New().String(),
		Seed:          seed,
		ChunkWidth:    dims.Width,
		ChunkHeight:   dims.Height,
		FormatVersion: FormatVersion,
		CreatedAt:     time.Now().UTC(),
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, false, fmt.Errorf("не удалось создать директорию уровня: %w", err)
	}
	out, err := yaml.Marshal(info)
	if err != nil {
		return nil, false, fmt.Errorf("ошибка сериализации уровня: %w", err)
	}
	if err := os.WriteFile(path, out, 0644); err != nil {
		return nil, false, fmt.Errorf("ошибка записи %s: %w", path, err)
	}
	return info, true, nil
}
