package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"runtime"
	"strconv"

	"github.com/annel0/voxel-world/internal/logging"
	"github.com/annel0/voxel-world/internal/storage"
	"github.com/annel0/voxel-world/internal/stream"
	"github.com/annel0/voxel-world/internal/util"
	"github.com/annel0/voxel-world/internal/world"
	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации симуляции мира
type Config struct {
	ChunkWidth                int   `yaml:"chunk_width"`
	ChunkHeight               int   `yaml:"chunk_height"`
	ActivationRadius          int   `yaml:"activation_radius"`
	DeactivationRadius        int   `yaml:"deactivation_radius"`
	MaxJobsIntegratedPerFrame int   `yaml:"max_jobs_integrated_per_frame"`
	MaxLightingStepsPerFrame  int   `yaml:"max_lighting_steps_per_frame"`
	WorldSeed                 int64 `yaml:"world_seed"`
	Workers                   int   `yaml:"workers"`
	JobQueueSize              int   `yaml:"job_queue_size"`

	Storage StorageConfig `yaml:"storage"`
	Terrain TerrainConfig `yaml:"terrain"`
	Status  StatusConfig  `yaml:"status"`
	Log     LogConfig     `yaml:"log"`
}

type StorageConfig struct {
	Backend     string `yaml:"backend"`
	Path        string `yaml:"path"`
	Compression string `yaml:"compression"`
	Writers     int    `yaml:"writers"`
	QueueSize   int    `yaml:"queue_size"`
}

type TerrainConfig struct {
	Noise      string  `yaml:"noise"`
	Scale      float64 `yaml:"scale"`
	BaseHeight int     `yaml:"base_height"`
	Amplitude  int     `yaml:"amplitude"`
	SeaLevel   int     `yaml:"sea_level"`
	LampChance float64 `yaml:"lamp_chance"`
}

type StatusConfig struct {
	// Адрес HTTP-сервера статуса; пустая строка отключает сервер
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"`
}

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	terrain := world.DefaultTerrainSettings()
	return &Config{
		ChunkWidth:                world.DefaultDimensions.Width,
		ChunkHeight:               world.DefaultDimensions.Height,
		ActivationRadius:          4,
		DeactivationRadius:        6,
		MaxJobsIntegratedPerFrame: 4,
		MaxLightingStepsPerFrame:  20000,
		WorldSeed:                 1337,
		Workers:                   runtime.NumCPU(),
		JobQueueSize:              256,
		Storage: StorageConfig{
			Backend:     storage.BackendFile,
			Path:        "data",
			Compression: storage.CompressionZstd,
			Writers:     2,
			QueueSize:   64,
		},
		Terrain: TerrainConfig{
			Noise:      util.NoisePerlin,
			Scale:      terrain.NoiseScale,
			BaseHeight: terrain.BaseHeight,
			Amplitude:  terrain.Amplitude,
			SeaLevel:   terrain.SeaLevel,
			LampChance: terrain.LampChance,
		},
		Status: StatusConfig{Addr: ":8088"},
		Log:    LogConfig{Level: "INFO", Dir: "logs"},
	}
}

// Load читает YAML файл конфигурации поверх значений по умолчанию.
// Если path == "", пытается прочитать путь из ENV VOXEL_CONFIG; если и он
// не задан, используются значения по умолчанию.
// Переменные окружения применяются после файла.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv("VOXEL_CONFIG")
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("разбор %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv переопределяет отдельные значения из переменных окружения
func (c *Config) applyEnv() {
	c.ActivationRadius = getIntWithEnvFallback(c.ActivationRadius, "VOXEL_ACTIVATION_RADIUS")
	c.DeactivationRadius = getIntWithEnvFallback(c.DeactivationRadius, "VOXEL_DEACTIVATION_RADIUS")
	c.Workers = getIntWithEnvFallback(c.Workers, "VOXEL_WORKERS")
	if v := os.Getenv("VOXEL_WORLD_SEED"); v != "" {
		if seed, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.WorldSeed = seed
		}
	}
	c.Storage.Backend = getStringWithEnvFallback(c.Storage.Backend, "VOXEL_STORAGE_BACKEND")
	c.Storage.Path = getStringWithEnvFallback(c.Storage.Path, "VOXEL_STORAGE_PATH")
	c.Status.Addr = getStringWithEnvFallback(c.Status.Addr, "VOXEL_STATUS_ADDR")
	c.Log.Level = getStringWithEnvFallback(c.Log.Level, "VOXEL_LOG_LEVEL")
}

// getIntWithEnvFallback возвращает значение из окружения, если оно задано и корректно
func getIntWithEnvFallback(value int, envVar string) int {
	if envVal := os.Getenv(envVar); envVal != "" {
		if v, err := strconv.Atoi(envVal); err == nil {
			return v
		}
	}
	return value
}

func getStringWithEnvFallback(value, envVar string) string {
	if envVal := os.Getenv(envVar); envVal != "" {
		return envVal
	}
	return value
}

// Validate проверяет согласованность параметров
func (c *Config) Validate() error {
	var errs []error
	if err := c.Dimensions().Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.ChunkWidth > math.MaxUint16 || c.ChunkHeight > math.MaxUint16 {
		errs = append(errs, fmt.Errorf("размер чанка %dx%d не помещается в запись", c.ChunkWidth, c.ChunkHeight))
	}
	if err := c.ManagerConfig().Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Workers <= 0 {
		errs = append(errs, fmt.Errorf("число воркеров должно быть положительным: %d", c.Workers))
	}
	if c.JobQueueSize <= 0 {
		errs = append(errs, fmt.Errorf("размер очереди заданий должен быть положительным: %d", c.JobQueueSize))
	}

	switch c.Storage.Backend {
	case storage.BackendFile, storage.BackendBadger, storage.BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("неизвестный тип хранилища %q", c.Storage.Backend))
	}
	switch c.Storage.Compression {
	case "", storage.CompressionNone, storage.CompressionZstd:
	default:
		errs = append(errs, fmt.Errorf("неизвестный алгоритм сжатия %q", c.Storage.Compression))
	}
	if c.Storage.Backend != storage.BackendMemory && c.Storage.Path == "" {
		errs = append(errs, errors.New("не задан путь хранилища"))
	}
	if c.Storage.Writers <= 0 || c.Storage.QueueSize <= 0 {
		errs = append(errs, fmt.Errorf("некорректные параметры записи: writers=%d queue_size=%d",
			c.Storage.Writers, c.Storage.QueueSize))
	}

	switch c.Terrain.Noise {
	case util.NoisePerlin, util.NoiseSimplex:
	default:
		errs = append(errs, fmt.Errorf("неизвестный тип шума %q", c.Terrain.Noise))
	}
	if c.Terrain.Scale <= 0 {
		errs = append(errs, fmt.Errorf("масштаб шума должен быть положительным: %v", c.Terrain.Scale))
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Dimensions возвращает размер чанка
func (c *Config) Dimensions() world.Dimensions {
	return world.Dimensions{Width: c.ChunkWidth, Height: c.ChunkHeight}
}

func (c *Config) ManagerConfig() stream.ManagerConfig {
	return stream.ManagerConfig{
		ActivationRadius:          c.ActivationRadius,
		DeactivationRadius:        c.DeactivationRadius,
		MaxJobsIntegratedPerFrame: c.MaxJobsIntegratedPerFrame,
		MaxLightingStepsPerFrame:  c.MaxLightingStepsPerFrame,
	}
}

func (c *Config) PipelineConfig() stream.PipelineConfig {
	return stream.PipelineConfig{Workers: c.Workers, QueueSize: c.JobQueueSize}
}

func (c *Config) StorageOptions() storage.Options {
	return storage.Options{
		Backend:     c.Storage.Backend,
		Path:        c.Storage.Path,
		Compression: c.Storage.Compression,
	}
}

func (c *Config) TerrainSettings() world.TerrainSettings {
	return world.TerrainSettings{
		NoiseScale: c.Terrain.Scale,
		BaseHeight: c.Terrain.BaseHeight,
		Amplitude:  c.Terrain.Amplitude,
		SeaLevel:   c.Terrain.SeaLevel,
		LampChance: c.Terrain.LampChance,
	}
}

// LogLevel возвращает уровень логирования; некорректное значение отсекается Validate
func (c *Config) LogLevel() logging.LogLevel {
	level, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		return logging.INFO
	}
	return level
}
