package main

import (
	"fmt"
	"math"

	"github.com/annel0/voxel-world/internal/vec"
)

// Path описывает движение виртуального игрока по кадрам
type Path interface {
	Position(frame uint64) vec.Vec3
}

// linePath - движение по прямой вдоль оси X
type linePath struct {
	start vec.Vec3
	speed float64 // блоков за кадр
}

func (p linePath) Position(frame uint64) vec.Vec3 {
	return vec.Vec3{X: p.start.X + int(p.speed*float64(frame)), Y: p.start.Y, Z: p.start.Z}
}

// circlePath - движение по окружности вокруг center
type circlePath struct {
	center vec.Vec3
	radius float64
	speed  float64
}

func (p circlePath) Position(frame uint64) vec.Vec3 {
	if p.radius <= 0 {
		return p.center
	}
	angle := p.speed * float64(frame) / p.radius
	return vec.Vec3{
		X: p.center.X + int(math.Round(p.radius*math.Cos(angle))),
		Y: p.center.Y + int(math.Round(p.radius*math.Sin(angle))),
		Z: p.center.Z,
	}
}

// staticPath - игрок стоит на месте
type staticPath struct{ pos vec.Vec3 }

func (p staticPath) Position(uint64) vec.Vec3 { return p.pos }

// newPath создаёт траекторию по имени
func newPath(kind string, start vec.Vec3, speed, radius float64) (Path, error) {
	switch kind {
	case "line":
		return linePath{start: start, speed: speed}, nil
	case "circle":
		return circlePath{center: start, radius: radius, speed: speed}, nil
	case "static":
		return staticPath{pos: start}, nil
	default:
		return nil, fmt.Errorf("неизвестная траектория %q (line, circle, static)", kind)
	}
}
