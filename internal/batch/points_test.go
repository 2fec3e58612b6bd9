package batch

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejusbharadwaj/wateruse/internal/models"
)

func writePoints(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "points.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadPoints(t *testing.T) {
	path := writePoints(t, `
points:
  - J36/0016-M1
  - " L35/0001-M1 "
  - J36/0016-M1
  - ""
`)

	points, err := LoadPoints(path)
	require.NoError(t, err)
	assert.Equal(t, []models.MonitoredPoint{"J36/0016-M1", "L35/0001-M1"}, points)
}

func TestLoadPointsErrors(t *testing.T) {
	_, err := LoadPoints(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, errors.Is(err, os.ErrNotExist))

	_, err = LoadPoints(writePoints(t, "points: [unterminated"))
	assert.Error(t, err)

	_, err = LoadPoints(writePoints(t, "points: []"))
	assert.Error(t, err)
}
