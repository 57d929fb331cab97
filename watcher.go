package npanimation

import (
	"bytes"
	"path/filepath"
	"time"

	"github.com/cnf/structhash"
	"github.com/fsnotify/fsnotify"
	"github.com/go-stack/stack"

	"github.com/antonvh/np-animation/internal/kverr"
	"github.com/antonvh/np-animation/model"
)

// SceneDebounce is how long the watcher waits after the last change to a scene
// file before reading it, editors often write a file in several steps
const SceneDebounce = 100 * time.Millisecond

// WatchScene watches a scene file and sends every semantically different
// version of it on sceneC until quitC is closed. The directory holding the
// file is watched, rather than the file, so that editors replacing the file
// by a rename are followed. The scene as loaded when watching starts is the
// baseline and is not sent. Scenes that fail to load are reported on errorC.
func WatchScene(path string, debounce time.Duration, sceneC chan<- *model.Scene, errorC chan<- kverr.Error, quitC <-chan struct{}) (err kverr.Error) {
	if debounce <= 0 {
		debounce = SceneDebounce
	}
	path, errGo := filepath.Abs(path)
	if errGo != nil {
		return kverr.Wrap(errGo).With("path", path).With("stack", stack.Trace().TrimRuntime())
	}

	watcher, errGo := fsnotify.NewWatcher()
	if errGo != nil {
		return kverr.Wrap(errGo).With("path", path).With("stack", stack.Trace().TrimRuntime())
	}
	if errGo = watcher.Add(filepath.Dir(path)); errGo != nil {
		watcher.Close()
		return kverr.Wrap(errGo).With("path", path).With("stack", stack.Trace().TrimRuntime())
	}

	last := []byte{}
	if scene, errGo := model.LoadScene(path); errGo == nil {
		last = structhash.Md5(scene, 1)
	}

	go func() {
		defer watcher.Close()

		// Stopped until an event arrives
		settle := time.NewTimer(time.Hour)
		settle.Stop()
		defer settle.Stop()

		for {
			select {
			case <-quitC:
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != path {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				settle.Reset(debounce)

			case errGo, ok := <-watcher.Errors:
				if !ok {
					return
				}
				sendErr(errorC, kverr.Wrap(errGo).With("path", path).With("stack", stack.Trace().TrimRuntime()))

			case <-settle.C:
				scene, errGo := model.LoadScene(path)
				if errGo != nil {
					sendErr(errorC, kverr.Wrap(errGo).With("path", path).With("stack", stack.Trace().TrimRuntime()))
					continue
				}
				hash := structhash.Md5(scene, 1)
				if bytes.Equal(last, hash) {
					logger.Debug("scene unchanged", "path", path)
					continue
				}
				last = hash

				select {
				case sceneC <- scene:
				case <-quitC:
					return
				}
			}
		}
	}()
	return nil
}
