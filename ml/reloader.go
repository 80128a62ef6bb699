package ml

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"churnpredict/pipeline"
)

// ArtifactConfig locates the persisted transformer and model.
type ArtifactConfig struct {
	ModelType       string
	ModelPath       string
	TransformerPath string
}

// LoadPredictor loads both artifacts and checks they agree on the feature width.
func LoadPredictor(cfg ArtifactConfig, opts ...Option) (*Predictor, error) {
	transformer, err := LoadTransformer(cfg.TransformerPath)
	if err != nil {
		return nil, err
	}
	model, err := LoadModel(cfg.ModelType, cfg.ModelPath)
	if err != nil {
		return nil, err
	}
	return NewPredictor(transformer, model, opts...)
}

// Reloader serves predictions from the current Predictor and replaces it as a
// whole when the artifact files change. A failed reload keeps the old one.
type Reloader struct {
	cfg     ArtifactConfig
	opts    []Option
	logger  *zap.Logger
	current atomic.Pointer[Predictor]
	loaded  atomic.Int64
	hook    func()
}

func NewReloader(cfg ArtifactConfig, logger *zap.Logger, opts ...Option) (*Reloader, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Reloader{cfg: cfg, opts: opts, logger: logger}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Reloader) Current() *Predictor {
	return r.current.Load()
}

// LoadedAt is when the current artifacts were loaded.
func (r *Reloader) LoadedAt() time.Time {
	return time.Unix(0, r.loaded.Load())
}

func (r *Reloader) Predict(ctx context.Context, raw pipeline.RawCustomer) (Prediction, error) {
	return r.Current().Predict(ctx, raw)
}

// OnReload registers fn to run after every successful reload. Call it before Watch.
func (r *Reloader) OnReload(fn func()) {
	r.hook = fn
}

func (r *Reloader) Reload() error {
	p, err := LoadPredictor(r.cfg, r.opts...)
	if err != nil {
		return err
	}
	r.current.Store(p)
	r.loaded.Store(time.Now().UnixNano())
	r.logger.Info("artifacts loaded",
		zap.String("model", r.cfg.ModelPath),
		zap.String("transformer", r.cfg.TransformerPath),
		zap.Float64("credit_score_threshold", p.Transformer().Threshold()),
	)
	if r.hook != nil {
		r.hook()
	}
	return nil
}

// Watch reloads after writes to either artifact until ctx is done.
func (r *Reloader) Watch(ctx context.Context, debounce time.Duration) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	targets := map[string]bool{
		filepath.Clean(r.cfg.ModelPath):       true,
		filepath.Clean(r.cfg.TransformerPath): true,
	}
	dirs := map[string]bool{}
	for path := range targets {
		dirs[filepath.Dir(path)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !targets[filepath.Clean(event.Name)] {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.logger.Error("artifact watcher error", zap.Error(err))
		case <-timer.C:
			if err := r.Reload(); err != nil {
				r.logger.Error("artifact reload failed, keeping previous artifacts", zap.Error(err))
			}
		}
	}
}
