package storage

import (
	"errors"
	"testing"

	"github.com/annel0/voxel-world/internal/world"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenLevel_CreateAndReopen(t *testing.T) {
	dir := t.TempDir()

	info, created, err := OpenLevel(dir, 42, testDims)
	require.NoError(t, err)
	assert.True(t, created)
	_, err = uuid.Parse(info.WorldID)
	assert.NoError(t, err)
	assert.Equal(t, FormatVersion, info.FormatVersion)

	again, created, err := OpenLevel(dir, 7, testDims)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, info.WorldID, again.WorldID)
	assert.Equal(t, int64(42), again.Seed, "сид берётся из файла уровня")
}

func TestOpenLevel_DimensionMismatch(t *testing.T) {
	dir := t.TempDir()
	_, _, err := OpenLevel(dir, 1, testDims)
	require.NoError(t, err)

	_, _, err = OpenLevel(dir, 1, world.Dimensions{Width: 32, Height: 64})
	assert.True(t, errors.Is(err, ErrLevelMismatch))
}
