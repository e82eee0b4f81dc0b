package scandir

import (
	"context"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	debounceTick  = 250 * time.Millisecond
	debounceQuiet = 300 * time.Millisecond
)

// debouncer holds files until they have stopped changing for quiet, so
// half-copied images are not OCRed.
type debouncer struct {
	quiet   time.Duration
	pending map[string]time.Time
}

func newDebouncer(quiet time.Duration) *debouncer {
	return &debouncer{quiet: quiet, pending: map[string]time.Time{}}
}

func (d *debouncer) touch(name string, now time.Time) { d.pending[name] = now }

// ready returns and forgets the files that have been quiet long enough.
func (d *debouncer) ready(now time.Time) []string {
	var out []string
	for name, t := range d.pending {
		if now.Sub(t) > d.quiet {
			out = append(out, name)
			delete(d.pending, name)
		}
	}
	return out
}

// Watch processes new images appearing in Dir until ctx is cancelled.
func (s *Scanner) Watch(ctx context.Context) (Stats, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return Stats{}, err
	}
	defer w.Close()
	if err := w.Add(s.Dir); err != nil {
		return Stats{}, err
	}
	log.Printf("Watching %s (debounced) ...", s.Dir)

	fileCh := make(chan string, 256)
	go func() {
		defer close(fileCh)
		d := newDebouncer(debounceQuiet)
		ticker := time.NewTicker(debounceTick)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				// writes restart the quiet period of a file being copied in
				if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
					continue
				}
				name := filepath.Base(ev.Name)
				if IsSupportedExt(name) {
					d.touch(name, time.Now())
				}
			case now := <-ticker.C:
				for _, name := range d.ready(now) {
					select {
					case fileCh <- name:
					case <-ctx.Done():
						return
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Printf("watch error: %v", err)
			}
		}
	}()

	return s.consume(ctx, fileCh), nil
}
