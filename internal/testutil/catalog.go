package testutil

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/partscatalog/backend/internal/domain/projection"
)

// Push is one recorded WriteMetafields call
type Push struct {
	OwnerGID string
	Fields   []projection.Metafield
}

// FakeCatalog records metafield writes and serves canned products.
// It implements both projection.CatalogWriter and projection.CatalogReader.
type FakeCatalog struct {
	mu       sync.Mutex
	pushes   []Push
	writeErr map[string]error
	products map[string]*projection.ProductSummary
	readErr  map[string]error
}

// NewFakeCatalog creates an empty fake
func NewFakeCatalog() *FakeCatalog {
	return &FakeCatalog{
		writeErr: make(map[string]error),
		products: make(map[string]*projection.ProductSummary),
		readErr:  make(map[string]error),
	}
}

// WriteMetafields records the call and returns the configured error, if any
func (f *FakeCatalog) WriteMetafields(_ context.Context, ownerGID string, fields []projection.Metafield) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.writeErr[ownerGID]; ok {
		return err
	}
	if err, ok := f.writeErr["*"]; ok {
		return err
	}
	copied := make([]projection.Metafield, len(fields))
	copy(copied, fields)
	f.pushes = append(f.pushes, Push{OwnerGID: ownerGID, Fields: copied})
	return nil
}

// ReadProduct returns the stored summary, the configured error, or nil
func (f *FakeCatalog) ReadProduct(_ context.Context, gid string) (*projection.ProductSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.readErr[gid]; ok {
		return nil, err
	}
	if p, ok := f.products[gid]; ok {
		copied := *p
		return &copied, nil
	}
	return &projection.ProductSummary{GID: gid}, nil
}

// FailWrites makes writes for gid fail with err; "*" matches every gid
func (f *FakeCatalog) FailWrites(gid string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writeErr[gid] = err
}

// ClearFailures lets every write succeed again
func (f *FakeCatalog) ClearFailures() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writeErr = make(map[string]error)
}

// AddProduct stores a product summary
func (f *FakeCatalog) AddProduct(p projection.ProductSummary) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.products[p.GID] = &p
}

// FailReads makes ReadProduct fail for gid
func (f *FakeCatalog) FailReads(gid string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readErr[gid] = err
}

// Pushes returns every successful write so far
func (f *FakeCatalog) Pushes() []Push {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Push, len(f.pushes))
	copy(out, f.pushes)
	return out
}

// PushCount returns the number of successful writes
func (f *FakeCatalog) PushCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pushes)
}

// LastPush returns the latest successful write for gid
func (f *FakeCatalog) LastPush(gid string) (Push, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.pushes) - 1; i >= 0; i-- {
		if f.pushes[i].OwnerGID == gid {
			return f.pushes[i], true
		}
	}
	return Push{}, false
}

// CategorySlugs decodes the category slug metafield of a push
func (p Push) CategorySlugs() []string {
	var slugs []string
	for _, f := range p.Fields {
		if f.Namespace == projection.CategorySlugsNamespace && f.Key == projection.CategorySlugsKey {
			_ = json.Unmarshal([]byte(f.Value), &slugs)
		}
	}
	return slugs
}

// YMM decodes the fitment metafield of a push
func (p Push) YMM() []projection.YMMEntry {
	var rows []projection.YMMEntry
	for _, f := range p.Fields {
		if f.Namespace == projection.YMMNamespace && f.Key == projection.YMMKey {
			_ = json.Unmarshal([]byte(f.Value), &rows)
		}
	}
	return rows
}

var (
	_ projection.CatalogWriter = (*FakeCatalog)(nil)
	_ projection.CatalogReader = (*FakeCatalog)(nil)
)
