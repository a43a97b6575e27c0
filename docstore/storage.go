package docstore

import (
	"errors"
	"log"
	"os"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/fsnotify/fsnotify"
)

// ensureDirectoryExists idempotently makes sure path's parent directory is
// present.
func ensureDirectoryExists(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return newIOErr(err)
	}
	return nil
}

// ensureFileDoesntExist unlinks path if present; a missing file is not an
// error.
func ensureFileDoesntExist(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return newIOErr(err)
	}
	return nil
}

// ensureDatafileIntegrity reconciles the primary data file against its
// side file (`<name>~`) before every load, implementing the four crash
// cases the compaction protocol can leave behind.
func ensureDatafileIntegrity(path string) error {
	side := path + "~"
	primaryExists := fileExists(path)
	sideExists := fileExists(side)
	switch {
	case primaryExists && !sideExists:
		return nil
	case !primaryExists && sideExists:
		if err := os.Rename(side, path); err != nil {
			return newIOErr(err)
		}
		return nil
	case primaryExists && sideExists:
		return ensureFileDoesntExist(side)
	default:
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return newIOErr(err)
		}
		return newIOErrOrNil(f.Close())
	}
}

func newIOErrOrNil(err error) error {
	if err == nil {
		return nil
	}
	return newIOErr(err)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func readFile(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, newIOErr(err)
	}
	return b, nil
}

// appendLine durably appends one line (its own trailing newline added) to
// path: open-append-write-fsync-close.
func appendLine(path, line string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return newIOErr(err)
	}
	defer f.Close()
	if _, err := f.WriteString(line + "\n"); err != nil {
		return newIOErr(err)
	}
	if err := fsyncWithRetry(f); err != nil {
		return newIOErr(err)
	}
	return nil
}

// writeAndReplace implements the compaction protocol: write contents to
// the side file, fsync, then atomically rename it over path so a crash
// never leaves path empty or truncated.
func writeAndReplace(path string, contents []byte) error {
	side := path + "~"
	if err := ensureFileDoesntExist(side); err != nil {
		return err
	}
	f, err := os.OpenFile(side, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return newIOErr(err)
	}
	if _, err := f.Write(contents); err != nil {
		f.Close()
		return newIOErr(err)
	}
	if err := fsyncWithRetry(f); err != nil {
		f.Close()
		return newIOErr(err)
	}
	if err := f.Close(); err != nil {
		return newIOErr(err)
	}
	if err := os.Rename(side, path); err != nil {
		return newIOErr(err)
	}
	return nil
}

// fsyncWithRetry retries a transient EINTR/EAGAIN from fsync with a short
// bounded backoff before surfacing the failure; any other error is fatal
// immediately.
func fsyncWithRetry(f *os.File) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 2 * time.Millisecond
	bo.MaxElapsedTime = 500 * time.Millisecond
	return backoff.Retry(func() error {
		err := f.Sync()
		if err == nil {
			return nil
		}
		if errors.Is(err, syscall.EINTR) || errors.Is(err, syscall.EAGAIN) {
			return err
		}
		return backoff.Permanent(err)
	}, bo)
}

// changeWatcher is the optional diagnostic described in SPEC_FULL.md: when
// enabled, it logs a warning if the data file's directory changes in a way
// this process didn't just cause itself. The data file is exclusively
// owned by one Datastore (see the concurrency model), so this is a
// diagnostic only — never a merge or reload trigger.
type changeWatcher struct {
	w             *fsnotify.Watcher
	path          string
	logger        *log.Logger
	suppressUntil int64 // unix nanos; events before this are assumed self-caused
	done          chan struct{}
}

func newChangeWatcher(path string, logger *log.Logger) (*changeWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, newIOErr(err)
	}
	dir := filepath.Dir(path)
	if dir == "" {
		dir = "."
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, newIOErr(err)
	}
	cw := &changeWatcher{w: w, path: path, logger: logger, done: make(chan struct{})}
	go cw.run()
	return cw, nil
}

func (cw *changeWatcher) markSelfWrite() {
	atomic.StoreInt64(&cw.suppressUntil, time.Now().Add(2*time.Second).UnixNano())
}

func (cw *changeWatcher) run() {
	base := filepath.Base(cw.path)
	for {
		select {
		case ev, ok := <-cw.w.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != base {
				continue
			}
			if time.Now().UnixNano() < atomic.LoadInt64(&cw.suppressUntil) {
				continue
			}
			cw.logger.Printf("docstore: external write detected on %s (%s)", cw.path, ev.Op)
		case err, ok := <-cw.w.Errors:
			if !ok {
				return
			}
			cw.logger.Printf("docstore: watch error: %v", err)
		case <-cw.done:
			return
		}
	}
}

func (cw *changeWatcher) Close() error {
	select {
	case <-cw.done:
	default:
		close(cw.done)
	}
	return cw.w.Close()
}
