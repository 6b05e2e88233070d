package xconf

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce 默认防抖间隔。
const DefaultDebounce = 100 * time.Millisecond

// WatchCallback 每次重载后调用，err 非 nil 表示重载失败（旧配置仍然有效）。
type WatchCallback func(cfg *Config, err error)

// Watch 监视配置文件，变更时重载并回调，阻塞直到 ctx 结束。
//
// 监视的是文件所在目录，编辑器的"写临时文件再 rename"也能被感知。
// debounce 内的多次变更只触发一次重载，debounce <= 0 时使用 DefaultDebounce。
func (c *Config) Watch(ctx context.Context, debounce time.Duration, callback WatchCallback) error {
	if c.path == "" {
		return ErrNotReloadable
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("xconf: create watcher: %w", err)
	}
	defer func() { _ = w.Close() }()

	if err := w.Add(filepath.Dir(c.path)); err != nil {
		return fmt.Errorf("xconf: watch %s: %w", filepath.Dir(c.path), err)
	}

	name := filepath.Base(c.path)
	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				timer.Reset(debounce)
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			if callback != nil {
				callback(c, fmt.Errorf("xconf: watch error: %w", err))
			}

		case <-timer.C:
			err := c.Reload()
			if callback != nil {
				callback(c, err)
			}
		}
	}
}
