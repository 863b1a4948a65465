package main

import (
	"testing"

	"github.com/annel0/voxel-world/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPath(t *testing.T) {
	start := vec.Vec3{X: 10, Y: 20, Z: 64}

	line, err := newPath("line", start, 0.5, 0)
	require.NoError(t, err)
	assert.Equal(t, start, line.Position(0))
	assert.Equal(t, vec.Vec3{X: 15, Y: 20, Z: 64}, line.Position(10))

	circle, err := newPath("circle", start, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, vec.Vec3{X: 110, Y: 20, Z: 64}, circle.Position(0))
	p := circle.Position(1000)
	dx, dy := float64(p.X-start.X), float64(p.Y-start.Y)
	assert.InDelta(t, 100*100, dx*dx+dy*dy, 300)

	static, err := newPath("static", start, 3, 0)
	require.NoError(t, err)
	assert.Equal(t, start, static.Position(500))

	_, err = newPath("spiral", start, 1, 1)
	assert.Error(t, err)
}
