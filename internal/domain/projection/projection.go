// Package projection describes the denormalized per-product view pushed to
// the external catalog, and the ports used to push and read it.
package projection

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/partscatalog/backend/internal/domain/fitment"
)

// Metafield namespaces and keys written for every product
const (
	CategorySlugsNamespace = "taxonomy"
	CategorySlugsKey       = "category_slugs"
	YMMNamespace           = "fitment"
	YMMKey                 = "ymm"

	MetafieldTypeJSON = "json"
)

// Metafield is one external key/value pair owned by a product
type Metafield struct {
	Namespace string `json:"namespace"`
	Key       string `json:"key"`
	Type      string `json:"type"`
	Value     string `json:"value"`
}

// YMMEntry is one fitment row as pushed to the external catalog
type YMMEntry struct {
	YearFrom *int    `json:"yearFrom"`
	YearTo   *int    `json:"yearTo"`
	Make     string  `json:"make"`
	Model    string  `json:"model"`
	Trim     *string `json:"trim"`
	Chassis  *string `json:"chassis"`
}

// Projection is the full recomputed view of a product. It is always pushed
// as a whole and overwrites whatever the catalog held.
type Projection struct {
	ProductGID    string     `json:"product_gid"`
	CategorySlugs []string   `json:"category_slugs"`
	YMM           []YMMEntry `json:"ymm"`
}

// Build assembles a projection. Slugs are deduplicated and sorted, fitment
// rows are ordered by make, model and yearFrom so equal inputs encode to equal bytes.
func Build(productGID string, slugs []string, rows []fitment.ProductFitment) Projection {
	set := make(map[string]struct{}, len(slugs))
	outSlugs := make([]string, 0, len(slugs))
	for _, s := range slugs {
		if _, ok := set[s]; ok {
			continue
		}
		set[s] = struct{}{}
		outSlugs = append(outSlugs, s)
	}
	sort.Strings(outSlugs)

	sorted := append([]fitment.ProductFitment(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if c := strings.Compare(strings.ToLower(a.Make), strings.ToLower(b.Make)); c != 0 {
			return c < 0
		}
		if c := strings.Compare(strings.ToLower(a.Model), strings.ToLower(b.Model)); c != 0 {
			return c < 0
		}
		return yearKey(a.YearFrom) < yearKey(b.YearFrom)
	})

	ymm := make([]YMMEntry, 0, len(sorted))
	for _, r := range sorted {
		ymm = append(ymm, YMMEntry{
			YearFrom: r.YearFrom,
			YearTo:   r.YearTo,
			Make:     r.Make,
			Model:    r.Model,
			Trim:     r.Trim,
			Chassis:  r.Chassis,
		})
	}
	return Projection{ProductGID: productGID, CategorySlugs: outSlugs, YMM: ymm}
}

// Metafields encodes both fields. Empty lists encode as [] rather than null.
func (p Projection) Metafields() ([]Metafield, error) {
	slugs, err := json.Marshal(p.CategorySlugs)
	if err != nil {
		return nil, fmt.Errorf("encode category slugs: %w", err)
	}
	ymm, err := json.Marshal(p.YMM)
	if err != nil {
		return nil, fmt.Errorf("encode ymm: %w", err)
	}
	return []Metafield{
		{Namespace: CategorySlugsNamespace, Key: CategorySlugsKey, Type: MetafieldTypeJSON, Value: string(slugs)},
		{Namespace: YMMNamespace, Key: YMMKey, Type: MetafieldTypeJSON, Value: string(ymm)},
	}, nil
}

func yearKey(y *int) int {
	if y == nil {
		return -1
	}
	return *y
}
