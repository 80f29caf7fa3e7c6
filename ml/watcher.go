// Package ml 的artifact热重载：监控模型与编码器文件变更
package ml

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"churnsight/logging"
)

// ArtifactWatcher reloads the artifact store when either artifact file
// changes on disk. A failed reload keeps the previous pair installed.
type ArtifactWatcher struct {
	store    *ArtifactStore
	watcher  *fsnotify.Watcher
	onReload func()
	done     chan struct{}
}

// WatchArtifacts starts watching the store's artifact files. onReload,
// if non-nil, runs after every successful reload (cache invalidation).
func WatchArtifacts(store *ArtifactStore, onReload func()) (*ArtifactWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	modelPath, encoderPath := store.Paths()
	// 监控目录而不是文件：编辑器和原子替换会先删除再创建文件
	dirs := map[string]struct{}{
		filepath.Dir(modelPath):   {},
		filepath.Dir(encoderPath): {},
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return nil, err
		}
	}

	w := &ArtifactWatcher{
		store:    store,
		watcher:  watcher,
		onReload: onReload,
		done:     make(chan struct{}),
	}
	go w.run(modelPath, encoderPath)
	return w, nil
}

func (w *ArtifactWatcher) run(modelPath, encoderPath string) {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !samePath(event.Name, modelPath) && !samePath(event.Name, encoderPath) {
				continue
			}
			if err := w.store.Load(); err != nil {
				logging.L().Warnw("artifact reload failed, keeping previous", "file", event.Name, "error", err)
				continue
			}
			if w.onReload != nil {
				w.onReload()
			}
			logging.L().Infow("artifacts reloaded", "file", event.Name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.L().Warnw("artifact watcher error", "error", err)

		case <-w.done:
			return
		}
	}
}

// Stop ends the watch loop.
func (w *ArtifactWatcher) Stop() {
	close(w.done)
	w.watcher.Close()
}

func samePath(a, b string) bool {
	ca, err := filepath.Abs(a)
	if err != nil {
		return a == b
	}
	cb, err := filepath.Abs(b)
	if err != nil {
		return a == b
	}
	return ca == cb
}
