package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/annel0/voxel-world/internal/api"
	"github.com/annel0/voxel-world/internal/config"
	"github.com/annel0/voxel-world/internal/logging"
	"github.com/annel0/voxel-world/internal/metrics"
	"github.com/annel0/voxel-world/internal/storage"
	"github.com/annel0/voxel-world/internal/stream"
	"github.com/annel0/voxel-world/internal/util"
	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	var (
		configPath = flag.String("config", "", "путь к YAML конфигурации (по умолчанию $VOXEL_CONFIG)")
		frames     = flag.Uint64("frames", 0, "число кадров; 0 - до сигнала завершения")
		tick       = flag.Duration("tick", 50*time.Millisecond, "длительность кадра")
		pathKind   = flag.String("path", "circle", "траектория игрока: line, circle, static")
		speed      = flag.Float64("speed", 0.5, "скорость игрока, блоков за кадр")
		radius     = flag.Float64("radius", 200, "радиус круговой траектории в блоках")
		statsEvery = flag.Duration("stats", 5*time.Second, "период вывода статистики")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}

	logging.SetLogDir(cfg.Log.Dir)
	if err := logging.InitDefaultLogger("worldsim"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.Default().Close()
	logging.Default().SetLevel(cfg.LogLevel(), logging.TRACE)
	logging.GetLoggerManager().SetConsoleLevel(cfg.LogLevel())
	defer logging.GetLoggerManager().CloseAll()

	if err := run(cfg, *frames, *tick, *pathKind, *speed, *radius, *statsEvery); err != nil {
		logging.Error("❌ %v", err)
		logging.Default().Close()
		os.Exit(1)
	}
	logging.Info("👋 Симуляция остановлена")
}

func run(cfg *config.Config, frames uint64, tick time.Duration, pathKind string, speed, radius float64, statsEvery time.Duration) error {
	dims := cfg.Dimensions()
	seed := cfg.WorldSeed

	path, err := newPath(pathKind, vec.Vec3{Z: dims.Height - 1}, speed, radius)
	if err != nil {
		return err
	}

	// === УРОВЕНЬ ===
	var level *storage.LevelInfo
	if cfg.Storage.Backend != storage.BackendMemory {
		info, created, err := storage.OpenLevel(cfg.Storage.Path, seed, dims)
		if err != nil {
			return err
		}
		if created {
			logging.Info("🌍 Создан новый уровень %s (seed=%d)", info.WorldID, info.Seed)
		} else {
			logging.Info("🌍 Открыт уровень %s (seed=%d, создан %s)", info.WorldID, info.Seed,
				info.CreatedAt.Format(time.RFC3339))
			if info.Seed != seed {
				logging.Warn("Seed уровня %d отличается от конфигурации %d, используется seed уровня", info.Seed, seed)
			}
		}
		level = info
		seed = info.Seed
	}

	store, err := storage.Open(cfg.StorageOptions())
	if err != nil {
		return err
	}
	storageLogger := logging.GetStorageLogger()
	storageLogger.Info("Хранилище %s (%s, сжатие %s)", cfg.Storage.Backend, cfg.Storage.Path, cfg.Storage.Compression)

	// === МИР ===
	noise, err := util.NewNoise(cfg.Terrain.Noise, seed)
	if err != nil {
		store.Close()
		return err
	}
	generator := world.NewWorldGenerator(seed, noise, cfg.TerrainSettings())

	w, err := world.New(dims)
	if err != nil {
		store.Close()
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	streamMetrics := metrics.NewStreamMetrics(reg)
	streamLogger := logging.GetStreamLogger()

	pipeline, err := stream.NewPipeline(cfg.PipelineConfig(), w, generator, store, streamLogger, streamMetrics)
	if err != nil {
		store.Close()
		return err
	}
	saver, err := stream.NewSaver(store, cfg.Storage.Writers, cfg.Storage.QueueSize)
	if err != nil {
		pipeline.Close()
		store.Close()
		return err
	}
	manager, err := stream.NewManager(cfg.ManagerConfig(), w, pipeline, saver, store, streamLogger, streamMetrics)
	if err != nil {
		pipeline.Close()
		saver.Close()
		store.Close()
		return err
	}

	// === СЕРВЕР СТАТУСА ===
	var server *api.RestServer
	if cfg.Status.Addr != "" {
		server = api.NewRestServer(api.Config{
			Addr:     cfg.Status.Addr,
			Source:   manager,
			Level:    level,
			Registry: reg,
			Logger:   logging.GetAPILogger(),
		})
		if err := server.Start(); err != nil {
			logging.Error("❌ Ошибка запуска сервера статуса: %v", err)
			server = nil
		}
	}

	logging.Info("✅ Симуляция запущена: чанк %dx%d, радиусы %d/%d, воркеров %d",
		dims.Width, dims.Height, cfg.ActivationRadius, cfg.DeactivationRadius, cfg.Workers)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loopErr := frameLoop(ctx, manager, path, frames, tick, statsEvery)

	// === GRACEFUL SHUTDOWN ===
	logging.Debug("Остановка сервисов...")
	var errs []error
	if loopErr != nil {
		errs = append(errs, loopErr)
	}
	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := server.Stop(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		cancel()
	}
	if err := manager.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := store.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// frameLoop выполняет кадры до отмены ctx или исчерпания frames
func frameLoop(ctx context.Context, m *stream.Manager, path Path, frames uint64, tick time.Duration, statsEvery time.Duration) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok && errors.Is(e, stream.ErrRetireWhilePending) {
				err = e
				return
			}
			panic(r)
		}
	}()

	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	lastStats := time.Now()

	for frame := uint64(0); frames == 0 || frame < frames; frame++ {
		select {
		case <-ctx.Done():
			logging.Info("📡 Получен сигнал завершения")
			return nil
		case <-ticker.C:
		}

		pos := path.Position(frame)
		stats := m.Update(pos)
		logging.Trace("Кадр %d: %+v", frame, stats)

		if time.Since(lastStats) >= statsEvery {
			lastStats = time.Now()
			st := m.Status()
			logging.Info("📊 Кадр %d, игрок %v (чанк %v): активно %d, выгружается %d, заданий %d, записей %d, очередь света %d",
				st.Frame, pos, st.PlayerChunk, st.Active, st.Deactivating, st.PendingJobs, st.PendingSaves, st.LightingQueue)
		}
	}
	return nil
}
