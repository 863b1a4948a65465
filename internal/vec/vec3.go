package vec

// Vec3 представляет трехмерный вектор с целочисленными координатами.
// X и Y горизонтальные, Z вертикальная ось.
type Vec3 struct {
	X int
	Y int
	Z int
}

// ToVec2 преобразует Vec3 в Vec2, игнорируя координату Z
func (v Vec3) ToVec2() Vec2 {
	return Vec2{
		X: v.X,
		Y: v.Y,
	}
}

// ToChunkCoords возвращает координаты чанка шириной width, содержащего точку
func (v Vec3) ToChunkCoords(width int) Vec2 {
	return Vec2{X: FloorDiv(v.X, width), Y: FloorDiv(v.Y, width)}
}

// LocalInChunk возвращает локальные координаты внутри чанка шириной width
func (v Vec3) LocalInChunk(width int) Vec3 {
	return Vec3{X: FloorMod(v.X, width), Y: FloorMod(v.Y, width), Z: v.Z}
}

// DistanceSq возвращает квадрат расстояния до другого вектора
func (v Vec3) DistanceSq(other Vec3) int {
	dx := v.X - other.X
	dy := v.Y - other.Y
	dz := v.Z - other.Z
	return dx*dx + dy*dy + dz*dz
}

// Equals проверяет равенство векторов
func (v Vec3) Equals(other Vec3) bool {
	return v.X == other.X && v.Y == other.Y && v.Z == other.Z
}

// Add складывает два вектора
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{
		X: v.X + other.X,
		Y: v.Y + other.Y,
		Z: v.Z + other.Z,
	}
}

// Sub вычитает вектор
func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{
		X: v.X - other.X,
		Y: v.Y - other.Y,
		Z: v.Z - other.Z,
	}
}
