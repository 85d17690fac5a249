// Package hosts implements a HostsParser backed by an /etc/hosts-style
// file, watched for changes instead of polled.
package hosts

import (
	"bufio"
	"bytes"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/semihalev/zlog/v2"

	"github.com/semihalev/resolve/lookup"
	"github.com/semihalev/resolve/name"
	"github.com/semihalev/resolve/rr"
)

type hostMap struct {
	byNameV4 map[string][]net.IP
	byNameV6 map[string][]net.IP
}

func newHostMap() *hostMap {
	return &hostMap{byNameV4: make(map[string][]net.IP), byNameV6: make(map[string][]net.IP)}
}

// File is a HostsParser reading entries from a single file on disk. The
// zero value is not usable; construct with Load or Watch.
type File struct {
	mu   sync.RWMutex
	path string
	hmap *hostMap

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// Load parses path once and returns a File that never reloads.
func Load(path string) (*File, error) {
	h := &File{path: path}
	if err := h.reload(); err != nil {
		return nil, err
	}
	return h, nil
}

// Watch parses path and reparses it whenever the file is written or
// replaced, until Close is called.
func Watch(path string) (*File, error) {
	h, err := Load(path)
	if err != nil {
		return nil, err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("hosts: create watcher: %w", err)
	}
	if err := w.Add(path); err != nil {
		w.Close()
		return nil, fmt.Errorf("hosts: watch %s: %w", path, err)
	}
	h.watcher = w
	h.done = make(chan struct{})
	go h.run()
	return h, nil
}

func (h *File) run() {
	for {
		select {
		case ev, ok := <-h.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if err := h.reload(); err != nil {
				zlog.Warn("hosts: reload failed", "path", h.path, "error", err)
			}
		case err, ok := <-h.watcher.Errors:
			if !ok {
				return
			}
			zlog.Warn("hosts: watcher error", "path", h.path, "error", err)
		case <-h.done:
			return
		}
	}
}

func (h *File) reload() error {
	f, err := os.Open(h.path)
	if err != nil {
		return fmt.Errorf("hosts: open %s: %w", h.path, err)
	}
	defer f.Close()

	m, err := parse(f)
	if err != nil {
		return err
	}

	h.mu.Lock()
	h.hmap = m
	h.mu.Unlock()
	zlog.Debug("hosts: loaded", "path", h.path, "v4", len(m.byNameV4), "v6", len(m.byNameV6))
	return nil
}

func parse(r *os.File) (*hostMap, error) {
	m := newHostMap()
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Bytes()
		if i := bytes.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := bytes.Fields(line)
		if len(fields) < 2 {
			continue
		}
		addr := net.ParseIP(strings.SplitN(string(fields[0]), "%", 2)[0])
		if addr == nil {
			continue
		}
		v4 := addr.To4() != nil
		for _, hostField := range fields[1:] {
			n, err := name.Parse(string(hostField), name.Root)
			if err != nil {
				continue
			}
			key := n.String()
			if v4 {
				m.byNameV4[key] = append(m.byNameV4[key], addr)
			} else {
				m.byNameV6[key] = append(m.byNameV6[key], addr)
			}
		}
	}
	return m, scanner.Err()
}

// AddressForHost implements the lookup package's HostsParser interface.
func (h *File) AddressForHost(n name.Name, t rr.Type) (net.IP, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	key := n.String()
	switch t {
	case rr.TypeA:
		if addrs := h.hmap.byNameV4[key]; len(addrs) > 0 {
			return addrs[0], nil
		}
	case rr.TypeAAAA:
		if addrs := h.hmap.byNameV6[key]; len(addrs) > 0 {
			return addrs[0], nil
		}
	}
	return nil, lookup.ErrNotFound
}

// Close stops the file watcher, if one was started with Watch.
func (h *File) Close() error {
	if h.watcher == nil {
		return nil
	}
	close(h.done)
	return h.watcher.Close()
}
