package block

import "fmt"

// BlockID представляет идентификатор материала блока
type BlockID uint16

// Константы ID блоков
const (
	// Базовые типы блоков
	AirBlockID   BlockID = iota // 0
	StoneBlockID                // 1
	GrassBlockID                // 2
	WaterBlockID                // 3
	SandBlockID                 // 4
	DirtBlockID                 // 5
	GlassBlockID                // 6 - твёрдый, но пропускает свет
	BedrockBlockID              // 7

	// Источники света (начиная с 100)
	LampBlockID  BlockID = 100 // Лампа, излучает 15
	TorchBlockID BlockID = 101 // Факел, излучает 13, не твёрдый

	// VoidBlockID возвращается вместо блока за пределами мира
	VoidBlockID BlockID = 0xFFFF
)

// MaxLight - максимальный уровень освещённости в любом канале
const MaxLight = 15

// Properties описывает материал блока. Поведение материала целиком
// определяется этими данными, без виртуальных методов.
type Properties struct {
	Name     string
	Solid    bool  // останавливает луч и считается препятствием
	Opaque   bool  // не пропускает свет и закрывает столб от неба
	Emission uint8 // уровень собственного света (0..15), канал indoor
}

var registry = make(map[BlockID]Properties)

// Register добавляет материал в регистр
func Register(id BlockID, props Properties) {
	if props.Emission > MaxLight {
		panic(fmt.Sprintf("block %d (%s): emission %d exceeds %d", id, props.Name, props.Emission, MaxLight))
	}
	registry[id] = props
}

// Get возвращает свойства для указанного ID
func Get(id BlockID) (Properties, bool) {
	props, exists := registry[id]
	return props, exists
}

// IsValidBlockID проверяет, является ли ID допустимым идентификатором блока
func IsValidBlockID(id BlockID) bool {
	_, exists := registry[id]
	return exists
}

// IsSolid сообщает, является ли материал твёрдым. Неизвестные ID считаются твёрдыми.
func IsSolid(id BlockID) bool {
	props, ok := registry[id]
	return !ok || props.Solid
}

// IsOpaque сообщает, блокирует ли материал свет. Неизвестные ID непрозрачны.
func IsOpaque(id BlockID) bool {
	props, ok := registry[id]
	return !ok || props.Opaque
}

// Emission возвращает уровень излучения материала
func Emission(id BlockID) uint8 {
	return registry[id].Emission
}

// Name возвращает имя материала
func Name(id BlockID) string {
	if props, ok := registry[id]; ok {
		return props.Name
	}
	return fmt.Sprintf("unknown(%d)", id)
}
