package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/rotblauer/vtsproxy/catz"
	"github.com/rotblauer/vtsproxy/refframe"
	"github.com/rotblauer/vtsproxy/resource"
)

const resourceFileName = "resource.json"

// cachedResource pairs a parsed resource.Resource with the mtime it
// was parsed at, so a later pass over an unchanged file is free.
type cachedResource struct {
	modTime time.Time
	value   resource.Resource
}

// definitionCache is the read cache golang-lru/v2 backs in front of a
// backend's resource.json parses, keyed on path rather than
// resource.ID so a rename-in-place still invalidates.
type definitionCache = lru.Cache[string, cachedResource]

// FSBackend reads/writes the <root>/<rf>/<group>/<id>/resource.json
// tree directly off disk, grounded on catz.Flat's path-joining and
// app/cat.go's JSON-over-gzip read/write idiom -- plain JSON here
// since a catalogue entry is read far more selectively than an
// append-only track log is.
type FSBackend struct {
	root   *catz.Flat
	frames *refframe.Registry
	cache  *definitionCache
}

// NewFSBackend roots catalogue storage at dir, resolving each
// resource's reference frame by name against frames.
func NewFSBackend(dir string, frames *refframe.Registry) (*FSBackend, error) {
	cache, err := lru.New[string, cachedResource](1024)
	if err != nil {
		return nil, err
	}
	return &FSBackend{
		root:   catz.NewFlatWithRoot(dir),
		frames: frames,
		cache:  cache,
	}, nil
}

// LoadCatalogue walks <root>/*/*/*/resource.json, parsing each entry.
// The first malformed resource.json stops the walk and its error is
// returned with no partial catalogue; nothing is logged here (callers
// own logging).
func (b *FSBackend) LoadCatalogue(ctx context.Context) ([]resource.Resource, error) {
	root := b.root.Path()
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil, nil
	}

	var out []resource.Resource
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || d.Name() != resourceFileName {
			return nil
		}
		r, loadErr := b.loadOne(path)
		if loadErr != nil {
			return fmt.Errorf("loading %s: %w", path, loadErr)
		}
		out = append(out, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (b *FSBackend) loadOne(path string) (resource.Resource, error) {
	info, err := os.Stat(path)
	if err != nil {
		return resource.Resource{}, err
	}
	if cached, ok := b.cache.Get(path); ok && cached.modTime.Equal(info.ModTime()) {
		return cached.value, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return resource.Resource{}, err
	}
	r, err := unmarshalResource(raw, b.frames)
	if err != nil {
		return resource.Resource{}, err
	}
	b.cache.Add(path, cachedResource{modTime: info.ModTime(), value: r})
	return r, nil
}

// SaveResource persists r at its canonical path, invalidating any
// cached entry. The registry never calls it (it only ever reads a
// Backend), and no generator's Prepare calls it either.
func (b *FSBackend) SaveResource(r resource.Resource) error {
	path := b.pathFor(r.ID)
	if err := os.MkdirAll(filepath.Dir(path), 0770); err != nil {
		return err
	}
	raw, err := marshalResource(r)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, raw, 0660); err != nil {
		return err
	}
	b.cache.Remove(path)
	return nil
}

func (b *FSBackend) pathFor(id resource.ID) string {
	return filepath.Join(b.root.Path(), id.ReferenceFrame, id.Group, id.ID, resourceFileName)
}

// ReportPrepareError writes a sibling error.json next to the
// resource's entry, overwriting any previous report. It intentionally
// never touches resource.json itself: the last-known-good catalogue
// entry must survive a failed re-Prepare.
func (b *FSBackend) ReportPrepareError(ctx context.Context, id resource.ID, cause error) error {
	dir := filepath.Dir(b.pathFor(id))
	if err := os.MkdirAll(dir, 0770); err != nil {
		return err
	}
	report := struct {
		Time  time.Time `json:"time"`
		Error string    `json:"error"`
	}{Time: time.Now().UTC(), Error: cause.Error()}
	raw, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "error.json"), raw, 0660)
}
