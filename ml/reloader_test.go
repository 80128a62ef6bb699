package ml

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeArtifacts(t *testing.T, dir string, seed int64) ArtifactConfig {
	t.Helper()
	result, err := Train(syntheticRows(200, seed), TrainingConfig{MaxTreeDepth: 3, Seed: seed})
	require.NoError(t, err)

	cfg := ArtifactConfig{
		ModelType:       ModelTypeDecisionTree,
		ModelPath:       filepath.Join(dir, "model.json"),
		TransformerPath: filepath.Join(dir, "preprocessor.json"),
	}
	require.NoError(t, result.Model.Save(cfg.ModelPath))
	require.NoError(t, result.Transformer.Save(cfg.TransformerPath))
	return cfg
}

func TestLoadPredictor(t *testing.T) {
	cfg := writeArtifacts(t, t.TempDir(), 51)

	p, err := LoadPredictor(cfg)
	require.NoError(t, err)
	pred, err := p.Predict(context.Background(), exampleRaw())
	require.NoError(t, err)
	assert.Contains(t, []Label{Stay, Leave}, pred.Label)

	cfg.TransformerPath = filepath.Join(t.TempDir(), "missing.json")
	_, err = LoadPredictor(cfg)
	var lerr *ArtifactLoadError
	assert.ErrorAs(t, err, &lerr)
}

func TestReloaderKeepsPreviousOnFailure(t *testing.T) {
	dir := t.TempDir()
	cfg := writeArtifacts(t, dir, 52)

	r, err := NewReloader(cfg, zap.NewNop())
	require.NoError(t, err)
	before := r.Current()
	require.NotNil(t, before)

	require.NoError(t, os.WriteFile(cfg.TransformerPath, []byte("{"), 0o600))
	assert.Error(t, r.Reload())
	assert.Same(t, before, r.Current())

	writeArtifacts(t, dir, 53)
	require.NoError(t, r.Reload())
	assert.NotSame(t, before, r.Current())

	_, err = r.Predict(context.Background(), exampleRaw())
	assert.NoError(t, err)
}

func TestReloaderWatch(t *testing.T) {
	dir := t.TempDir()
	cfg := writeArtifacts(t, dir, 54)

	r, err := NewReloader(cfg, zap.NewNop())
	require.NoError(t, err)
	before := r.Current()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Watch(ctx, 20*time.Millisecond) }()
	// Give the watcher time to register before touching the files.
	time.Sleep(100 * time.Millisecond)

	writeArtifacts(t, dir, 55)
	assert.Eventually(t, func() bool { return r.Current() != before }, 5*time.Second, 20*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestNewReloaderFailsWithoutArtifacts(t *testing.T) {
	_, err := NewReloader(ArtifactConfig{
		ModelPath:       filepath.Join(t.TempDir(), "model.json"),
		TransformerPath: filepath.Join(t.TempDir(), "preprocessor.json"),
	}, nil)
	assert.Error(t, err)
}
