package watcher

import (
	"context"
	"fmt"
	"os"
	"time"
)

type fileSnapshot struct {
	modTime time.Time
	size    int64
}

// poller detects document changes by comparing directory snapshots.
type poller struct {
	dir   string
	state map[string]fileSnapshot
}

func newPoller(dir string) (*poller, error) {
	p := &poller{dir: dir}
	state, err := p.snapshot()
	if err != nil {
		return nil, err
	}
	p.state = state
	return p, nil
}

// snapshot records modification time and size of every relevant document
// directly inside the directory.
func (p *poller) snapshot() (map[string]fileSnapshot, error) {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", p.dir, err)
	}

	state := make(map[string]fileSnapshot, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !relevant(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		state[entry.Name()] = fileSnapshot{modTime: info.ModTime(), size: info.Size()}
	}
	return state, nil
}

// diff rescans the directory and returns the changes since the last call.
func (p *poller) diff() ([]FileEvent, error) {
	current, err := p.snapshot()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var events []FileEvent
	for name, snap := range current {
		prev, ok := p.state[name]
		switch {
		case !ok:
			events = append(events, FileEvent{Path: name, Operation: OpCreate, Timestamp: now})
		case prev != snap:
			events = append(events, FileEvent{Path: name, Operation: OpModify, Timestamp: now})
		}
	}
	for name := range p.state {
		if _, ok := current[name]; !ok {
			events = append(events, FileEvent{Path: name, Operation: OpDelete, Timestamp: now})
		}
	}

	p.state = current
	return events, nil
}

// run polls every interval until ctx is done or stop is closed.
func (p *poller) run(ctx context.Context, interval time.Duration, stop <-chan struct{}, emit func(FileEvent), fail func(error)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		case <-ticker.C:
			events, err := p.diff()
			if err != nil {
				fail(err)
				continue
			}
			for _, e := range events {
				emit(e)
			}
		}
	}
}
