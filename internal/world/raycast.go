package world

import (
	"math"

	"github.com/annel0/voxel-world/internal/vec"
	"github.com/go-gl/mathgl/mgl64"
)

// RaycastResult описывает результат трассировки луча по сетке блоков
type RaycastResult struct {
	Hit      bool
	Position mgl64.Vec3 // точка входа луча в блок
	Distance float64    // расстояние от начала луча до точки входа
	Normal   vec.Vec3   // нормаль грани, через которую вошёл луч
	Block    vec.Vec3   // мировая позиция блока
	Ref      BlockRef
}

// axisDirections[axis][0] - шаг в минус, [1] - в плюс
var axisDirections = [3][2]Direction{
	{West, East},
	{South, North},
	{Down, Up},
}

// RaycastBlocks ведёт луч из origin вдоль direction методом DDA и возвращает
// первый твёрдый блок не дальше maxDistance. Блок, в котором находится
// origin, не проверяется. Выход в незагруженный чанк или за пределы высоты
// завершает трассировку без попадания.
func (w *World) RaycastBlocks(origin, direction mgl64.Vec3, maxDistance float64) RaycastResult {
	length := direction.Len()
	if length == 0 || maxDistance <= 0 {
		return RaycastResult{}
	}
	dir := direction.Mul(1 / length)

	cell := vec.Vec3{
		X: int(math.Floor(origin.X())),
		Y: int(math.Floor(origin.Y())),
		Z: int(math.Floor(origin.Z())),
	}
	ref, err := w.Ref(cell)
	if err != nil {
		return RaycastResult{}
	}

	cellComp := [3]int{cell.X, cell.Y, cell.Z}
	var (
		positive [3]bool
		tMax     [3]float64
		tDelta   [3]float64
	)
	for axis := 0; axis < 3; axis++ {
		d := dir[axis]
		o := origin[axis]
		c := float64(cellComp[axis])
		switch {
		case d > 0:
			positive[axis] = true
			tDelta[axis] = 1 / d
			tMax[axis] = (c + 1 - o) / d
		case d < 0:
			tDelta[axis] = -1 / d
			tMax[axis] = (o - c) / -d
		default:
			tDelta[axis] = math.Inf(1)
			tMax[axis] = math.Inf(1)
		}
	}

	for {
		// при равенстве выигрывает ось с меньшим номером: X, затем Y, затем Z
		axis := 0
		if tMax[1] < tMax[axis] {
			axis = 1
		}
		if tMax[2] < tMax[axis] {
			axis = 2
		}

		t := tMax[axis]
		if t > maxDistance {
			return RaycastResult{}
		}

		var step Direction
		if positive[axis] {
			step = axisDirections[axis][1]
		} else {
			step = axisDirections[axis][0]
		}

		next, ok := ref.Step(step)
		if !ok {
			return RaycastResult{}
		}
		ref = next
		tMax[axis] += tDelta[axis]

		if ref.Block().IsSolid() {
			return RaycastResult{
				Hit:      true,
				Position: origin.Add(dir.Mul(t)),
				Distance: t,
				Normal:   step.Opposite().Offset(),
				Block:    ref.Position(),
				Ref:      ref,
			}
		}
	}
}
