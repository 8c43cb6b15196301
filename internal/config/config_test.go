package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/born-ml/invphys/internal/physics"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 2, cfg.Channels())
	h, w := cfg.Plane()
	assert.Equal(t, 16, h)
	assert.Equal(t, 16, w)
}

func TestParseOverlay(t *testing.T) {
	cfg, err := Parse(`
img_size = [3, 32, 48]
batch_size = 4
seed = 99
generator = " mri,acceleration=8 "
`)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 32, 48}, cfg.ImgSize)
	assert.Equal(t, 4, cfg.BatchSize)
	assert.Equal(t, uint64(99), cfg.Seed)
	assert.Equal(t, "mri,acceleration=8", cfg.Generator)
	assert.Equal(t, 3, cfg.Channels())
	h, w := cfg.Plane()
	assert.Equal(t, 32, h)
	assert.Equal(t, 48, w)

	// Untouched keys keep their defaults.
	def := Default()
	assert.Equal(t, def.Batches, cfg.Batches)
	assert.Equal(t, def.Workers, cfg.Workers)
	assert.Equal(t, def.Operator, cfg.Operator)
	assert.Equal(t, "", cfg.Store)
}

func TestParseErrors(t *testing.T) {
	for name, data := range map[string]string{
		"syntax":        `img_size = [`,
		"unknown key":   `acceleration = 4`,
		"rank":          `img_size = [1, 2, 3, 4]`,
		"zero dim":      `img_size = [0, 16]`,
		"batch size":    `batch_size = 0`,
		"batches":       `batches = -1`,
		"workers":       `workers = 0`,
		"negative seed": `seed = -5`,
		"empty op":      `operator = "  "`,
		"empty gen":     `generator = ""`,
	} {
		_, err := Parse(data)
		assert.True(t, errors.Is(err, physics.ErrConfig), "%s: %v", name, err)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
batches = 3
workers = 2
operator = "haze,beta=0.3"
store = "samples.db"
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Batches)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, "haze,beta=0.3", cfg.Operator)
	assert.Equal(t, "samples.db", cfg.Store)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.True(t, errors.Is(err, physics.ErrConfig), "%v", err)
}
