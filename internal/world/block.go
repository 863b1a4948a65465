package world

import (
	"github.com/annel0/voxel-world/internal/world/block"
)

// Channel выбирает один из двух независимых каналов освещения
type Channel uint8

const (
	ChannelIndoor  Channel = iota // свет от излучающих блоков
	ChannelOutdoor                // свет неба
)

// Block представляет собой блок в игровом мире
type Block struct {
	ID      block.BlockID // Идентификатор материала
	Indoor  uint8         // Освещённость от источников (0..15)
	Outdoor uint8         // Освещённость от неба (0..15)
}

// NoBlock возвращается для позиций за пределами мира или незагруженных чанков
var NoBlock = Block{ID: block.VoidBlockID}

// NewBlock создаёт неосвещённый блок с указанным ID
func NewBlock(id block.BlockID) Block {
	return Block{ID: id}
}

// IsSolid возвращает true, если блок останавливает луч
func (b Block) IsSolid() bool {
	return block.IsSolid(b.ID)
}

// IsOpaque возвращает true, если блок не пропускает свет
func (b Block) IsOpaque() bool {
	return block.IsOpaque(b.ID)
}

// Light возвращает уровень освещения в канале
func (b Block) Light(ch Channel) uint8 {
	if ch == ChannelIndoor {
		return b.Indoor
	}
	return b.Outdoor
}

// PackLight упаковывает оба канала в один байт: indoor в старшей тетраде
func (b Block) PackLight() byte {
	return (b.Indoor&0x0F)<<4 | (b.Outdoor & 0x0F)
}

// UnpackLight восстанавливает каналы из байта, записанного PackLight
func (b *Block) UnpackLight(v byte) {
	b.Indoor = v >> 4
	b.Outdoor = v & 0x0F
}
