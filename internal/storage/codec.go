package storage

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world"
	"github.com/annel0/voxel-world/internal/world/block"
	"github.com/cespare/xxhash/v2"
)

// FormatVersion - текущая версия формата записи чанка
const FormatVersion uint32 = 1

const (
	headerSize   = 4 + 4 + 4 + 2 + 2 // version, cx, cy, width, height
	blockSize    = 2 + 1             // material id, light byte
	checksumSize = 8
)

// DecodeErrorKind различает причины отказа декодирования
type DecodeErrorKind uint8

const (
	DecodeVersionMismatch DecodeErrorKind = iota + 1 // запись другой версии формата
	DecodeCorrupt                                    // повреждённые данные или неверная контрольная сумма
	DecodeShapeMismatch                              // размеры чанка не совпадают с текущими
)

// String возвращает название причины
func (k DecodeErrorKind) String() string {
	switch k {
	case DecodeVersionMismatch:
		return "version mismatch"
	case DecodeCorrupt:
		return "corrupt"
	case DecodeShapeMismatch:
		return "shape mismatch"
	default:
		return "unknown"
	}
}

// DecodeError сообщает, что запись чанка нельзя использовать.
// Вызывающий код должен сгенерировать чанк заново.
type DecodeError struct {
	Kind   DecodeErrorKind
	Detail string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("декодирование чанка: %s: %s", e.Kind, e.Detail)
}

func decodeErr(kind DecodeErrorKind, format string, args ...interface{}) error {
	return &DecodeError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// Record - содержимое записи чанка
type Record struct {
	Version uint32
	Coords  vec.Vec2
	Dims    world.Dimensions
	Blocks  []world.Block
}

// EncodedSize возвращает размер записи для чанка указанных размеров
func EncodedSize(dims world.Dimensions) int {
	return headerSize + dims.Volume()*blockSize + checksumSize
}

// Encode сериализует массив блоков чанка в запись:
//
//	u32 version | i32 cx | i32 cy | u16 width | u16 height |
//	W*W*H * (u16 id, u8 light) | u64 xxhash64
//
// Все числа в little-endian, блоки в порядке x + y*W + z*W*W.
func Encode(coords vec.Vec2, dims world.Dimensions, blocks []world.Block) ([]byte, error) {
	if err := dims.Validate(); err != nil {
		return nil, err
	}
	if dims.Width > math.MaxUint16 || dims.Height > math.MaxUint16 {
		return nil, fmt.Errorf("размер чанка %dx%d не помещается в запись", dims.Width, dims.Height)
	}
	if len(blocks) != dims.Volume() {
		return nil, fmt.Errorf("чанк %v: ожидается %d блоков, получено %d", coords, dims.Volume(), len(blocks))
	}
	if coords.X < math.MinInt32 || coords.X > math.MaxInt32 || coords.Y < math.MinInt32 || coords.Y > math.MaxInt32 {
		return nil, fmt.Errorf("координаты чанка %v вне диапазона int32", coords)
	}

	buf := make([]byte, 0, EncodedSize(dims))
	buf = binary.LittleEndian.AppendUint32(buf, FormatVersion)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(int32(coords.X)))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(int32(coords.Y)))
	buf = binary.LittleEndian.AppendUint16(buf, uint16(dims.Width))
	buf = binary.LittleEndian.AppendUint16(buf, uint16(dims.Height))
	for _, b := range blocks {
		buf = binary.LittleEndian.AppendUint16(buf, uint16(b.ID))
		buf = append(buf, b.PackLight())
	}
	buf = binary.LittleEndian.AppendUint64(buf, xxhash.Sum64(buf))
	return buf, nil
}

// Decode разбирает запись чанка и проверяет её против ожидаемых размеров.
// Любой отказ возвращается как *DecodeError.
func Decode(data []byte, dims world.Dimensions) (Record, error) {
	if len(data) < headerSize+checksumSize {
		return Record{}, decodeErr(DecodeCorrupt, "запись слишком короткая: %d байт", len(data))
	}

	version := binary.LittleEndian.Uint32(data[0:4])
	if version != FormatVersion {
		return Record{}, decodeErr(DecodeVersionMismatch, "версия %d, ожидается %d", version, FormatVersion)
	}

	body := data[:len(data)-checksumSize]
	want := binary.LittleEndian.Uint64(data[len(data)-checksumSize:])
	if got := xxhash.Sum64(body); got != want {
		return Record{}, decodeErr(DecodeCorrupt, "контрольная сумма %016x, ожидается %016x", got, want)
	}

	rec := Record{
		Version: version,
		Coords: vec.Vec2{
			X: int(int32(binary.LittleEndian.Uint32(data[4:8]))),
			Y: int(int32(binary.LittleEndian.Uint32(data[8:12]))),
		},
		Dims: world.Dimensions{
			Width:  int(binary.LittleEndian.Uint16(data[12:14])),
			Height: int(binary.LittleEndian.Uint16(data[14:16])),
		},
	}
	if rec.Dims != dims {
		return Record{}, decodeErr(DecodeShapeMismatch, "размер %dx%d, ожидается %dx%d",
			rec.Dims.Width, rec.Dims.Height, dims.Width, dims.Height)
	}
	if len(data) != EncodedSize(dims) {
		return Record{}, decodeErr(DecodeCorrupt, "длина %d, ожидается %d", len(data), EncodedSize(dims))
	}

	rec.Blocks = make([]world.Block, dims.Volume())
	off := headerSize
	for i := range rec.Blocks {
		b := world.Block{ID: block.BlockID(binary.LittleEndian.Uint16(data[off : off+2]))}
		b.UnpackLight(data[off+2])
		rec.Blocks[i] = b
		off += blockSize
	}
	return rec, nil
}

// DecodeChunk декодирует запись и проверяет, что она принадлежит чанку coords
func DecodeChunk(data []byte, coords vec.Vec2, dims world.Dimensions) ([]world.Block, error) {
	rec, err := Decode(data, dims)
	if err != nil {
		return nil, err
	}
	if rec.Coords != coords {
		return nil, decodeErr(DecodeCorrupt, "запись чанка %v прочитана для %v", rec.Coords, coords)
	}
	return rec.Blocks, nil
}
