package vec

import "math"

// Vec2 представляет 2D координаты (координаты чанка в сетке мира)
type Vec2 struct {
	X, Y int
}

// Add складывает два вектора
func (v Vec2) Add(other Vec2) Vec2 {
	return Vec2{X: v.X + other.X, Y: v.Y + other.Y}
}

// DistanceSq возвращает квадрат евклидова расстояния до другой точки
func (v Vec2) DistanceSq(other Vec2) int {
	dx := v.X - other.X
	dy := v.Y - other.Y
	return dx*dx + dy*dy
}

// DistanceTo вычисляет расстояние до другой точки
func (v Vec2) DistanceTo(other Vec2) float64 {
	return math.Sqrt(float64(v.DistanceSq(other)))
}

// WithinRadius сообщает, лежит ли точка в круге радиуса r вокруг center
func (v Vec2) WithinRadius(center Vec2, r int) bool {
	return v.DistanceSq(center) <= r*r
}

// Neighbors4 возвращает четырёх соседей по осям X и Y
func (v Vec2) Neighbors4() [4]Vec2 {
	return [4]Vec2{
		{X: v.X + 1, Y: v.Y},
		{X: v.X - 1, Y: v.Y},
		{X: v.X, Y: v.Y + 1},
		{X: v.X, Y: v.Y - 1},
	}
}

// FloorDiv делит с округлением вниз (в отличие от оператора / для отрицательных чисел)
func FloorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// FloorMod возвращает неотрицательный остаток от деления на b
func FloorMod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
