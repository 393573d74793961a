package services

import (
	"context"
	"log"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// ArtifactWatcher はモデル・データセットのディレクトリを監視し、
// ファイルが更新・削除されたときに該当するキャッシュを破棄します。
type ArtifactWatcher struct {
	watcher   *fsnotify.Watcher
	artifacts *ArtifactService
	models    *ModelService
	datasets  *DatasetService
}

// NewArtifactWatcher creates a watcher over the artifact and dataset directories.
func NewArtifactWatcher(artifacts *ArtifactService, models *ModelService, datasets *DatasetService) (*ArtifactWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &ArtifactWatcher{
		watcher:   w,
		artifacts: artifacts,
		models:    models,
		datasets:  datasets,
	}, nil
}

// Start begins watching. A missing models directory is skipped.
func (w *ArtifactWatcher) Start(ctx context.Context) error {
	for _, dir := range []string{w.artifacts.ModelsDir(), w.artifacts.DatasetDir()} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			log.Printf("⚠️ [監視] ディレクトリが存在しないため監視をスキップ: %s", dir)
			continue
		}
		if err := w.watcher.Add(dir); err != nil {
			return err
		}
		log.Printf("👀 [監視] 監視開始: %s", dir)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Remove) &&
					!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Create) {
					continue
				}
				if w.invalidate(event.Name) {
					log.Printf("🔄 [監視] キャッシュを破棄しました: %s (%s)", event.Name, event.Op)
				}
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				log.Printf("❌ [監視] %v", err)
			}
		}
	}()
	return nil
}

// Stop stops the watcher.
func (w *ArtifactWatcher) Stop() error {
	return w.watcher.Close()
}

// invalidate drops the cache entry matching a changed file.
func (w *ArtifactWatcher) invalidate(name string) bool {
	base := filepath.Base(name)
	switch {
	case isModelFile(base):
		return w.models.Invalidate(filepath.Join(w.artifacts.ModelsDir(), base))
	case filepath.Ext(base) == datasetExt:
		return w.datasets.Invalidate(filepath.Join(w.artifacts.DatasetDir(), base))
	}
	return false
}
