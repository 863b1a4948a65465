package world

import (
	"fmt"

	"github.com/annel0/voxel-world/internal/vec"
)

// Dimensions описывает размер чанка: Width x Width по горизонтали и Height по вертикали
type Dimensions struct {
	Width  int
	Height int
}

// DefaultDimensions - размер чанка по умолчанию
var DefaultDimensions = Dimensions{Width: 16, Height: 128}

// Validate проверяет корректность размеров
func (d Dimensions) Validate() error {
	if d.Width <= 0 || d.Height <= 0 {
		return fmt.Errorf("некорректный размер чанка %dx%d", d.Width, d.Height)
	}
	return nil
}

// Volume возвращает количество блоков в чанке
func (d Dimensions) Volume() int {
	return d.Width * d.Width * d.Height
}

// Layer возвращает количество блоков в одном горизонтальном слое
func (d Dimensions) Layer() int {
	return d.Width * d.Width
}

// Index возвращает локальный индекс блока: x + y*W + z*W*W
func (d Dimensions) Index(x, y, z int) int {
	return x + y*d.Width + z*d.Width*d.Width
}

// Local раскладывает локальный индекс обратно на координаты
func (d Dimensions) Local(index int) (x, y, z int) {
	layer := d.Width * d.Width
	z = index / layer
	rem := index - z*layer
	y = rem / d.Width
	x = rem - y*d.Width
	return x, y, z
}

// InHeight проверяет, что z лежит в пределах высоты мира
func (d Dimensions) InHeight(z int) bool {
	return z >= 0 && z < d.Height
}

// ChunkOf возвращает координаты чанка, содержащего мировую позицию
func (d Dimensions) ChunkOf(pos vec.Vec3) vec.Vec2 {
	return pos.ToChunkCoords(d.Width)
}

// Origin возвращает мировую позицию блока (0,0,0) чанка
func (d Dimensions) Origin(coords vec.Vec2) vec.Vec3 {
	return vec.Vec3{X: coords.X * d.Width, Y: coords.Y * d.Width}
}
