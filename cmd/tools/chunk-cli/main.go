package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/annel0/voxel-world/internal/config"
	"github.com/annel0/voxel-world/internal/logging"
	"github.com/annel0/voxel-world/internal/storage"
	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world/block"
)

func main() {
	var (
		configPath = flag.String("config", "", "путь к YAML конфигурации (по умолчанию $VOXEL_CONFIG)")
		command    = flag.String("cmd", "inspect", "Команда: inspect, hex, level")
		chunks     = flag.String("chunks", "0,0", "Координаты чанков через ';' (например, 0,0;1,-2)")
		hexBytes   = flag.Int("bytes", 64, "Сколько байт записи показать в hex")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}

	if *command == "level" {
		if err := showLevel(cfg); err != nil {
			log.Fatalf("❌ Level failed: %v", err)
		}
		return
	}

	coords, err := parseCoordsList(*chunks)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	store, err := storage.Open(cfg.StorageOptions())
	if err != nil {
		log.Fatalf("❌ Не удалось открыть хранилище: %v", err)
	}
	defer store.Close()

	failed := false
	for _, c := range coords {
		switch *command {
		case "inspect":
			err = inspectChunk(store, cfg, c)
		case "hex":
			err = hexChunk(store, c, *hexBytes)
		default:
			log.Fatalf("❌ Неизвестная команда %q", *command)
		}
		if err != nil {
			fmt.Printf("❌ Чанк %d,%d: %v\n", c.X, c.Y, err)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

func showLevel(cfg *config.Config) error {
	path := cfg.Storage.Path + string(os.PathSeparator) + storage.LevelFileName
	if _, err := os.Stat(path); err != nil {
		return err
	}
	info, _, err := storage.OpenLevel(cfg.Storage.Path, cfg.WorldSeed, cfg.Dimensions())
	if err != nil {
		return err
	}
	fmt.Printf("🌍 Уровень %s\n", info.WorldID)
	fmt.Printf("   seed:    %d\n", info.Seed)
	fmt.Printf("   чанк:    %dx%d\n", info.ChunkWidth, info.ChunkHeight)
	fmt.Printf("   формат:  v%d\n", info.FormatVersion)
	fmt.Printf("   создан:  %s\n", info.CreatedAt)
	return nil
}

func inspectChunk(store storage.ChunkStore, cfg *config.Config, c vec.Vec2) error {
	data, err := store.Load(c)
	if errors.Is(err, storage.ErrNotFound) {
		fmt.Printf("⚪ Чанк %d,%d: записи нет, будет сгенерирован\n", c.X, c.Y)
		return nil
	}
	if err != nil {
		return err
	}

	blocks, err := storage.DecodeChunk(data, c, cfg.Dimensions())
	if err != nil {
		var de *storage.DecodeError
		if errors.As(err, &de) {
			return fmt.Errorf("запись отклонена (%s): %w", de.Kind, err)
		}
		return err
	}

	counts := make(map[block.BlockID]int)
	lit := 0
	for _, b := range blocks {
		counts[b.ID]++
		if b.Indoor > 0 {
			lit++
		}
	}
	ids := make([]block.BlockID, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return counts[ids[i]] > counts[ids[j]] })

	fmt.Printf("🟢 Чанк %d,%d: %d байт, %d блоков, освещено источниками %d\n", c.X, c.Y, len(data), len(blocks), lit)
	for _, id := range ids {
		fmt.Printf("   %-10s %6d\n", block.Name(id), counts[id])
	}
	return nil
}

func hexChunk(store storage.ChunkStore, c vec.Vec2, n int) error {
	data, err := store.Load(c)
	if err != nil {
		return err
	}
	if n > 0 && n < len(data) {
		data = data[:n]
	}
	fmt.Printf("Чанк %d,%d:\n%s\n", c.X, c.Y, logging.HexDump(data))
	return nil
}

// parseCoordsList разбирает список вида "0,0;1,-2"
func parseCoordsList(s string) ([]vec.Vec2, error) {
	var out []vec.Vec2
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		var c vec.Vec2
		if _, err := fmt.Sscanf(part, "%d,%d", &c.X, &c.Y); err != nil {
			return nil, fmt.Errorf("некорректные координаты %q: %w", part, err)
		}
		out = append(out, c)
	}
	if len(out) == 0 {
		return nil, errors.New("не заданы координаты чанков")
	}
	return out, nil
}
