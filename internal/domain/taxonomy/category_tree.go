package taxonomy

import (
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/partscatalog/backend/internal/domain/shared"
)

// CategoryNode is a category with its ordered children, for presentation layers
type CategoryNode struct {
	Category Category
	Children []CategoryNode
}

// CategoryIndex is an in-memory view over a set of category rows.
// It answers closure and structure questions without further I/O.
type CategoryIndex struct {
	byID     map[uuid.UUID]Category
	children map[uuid.UUID][]uuid.UUID
}

// NewCategoryIndex builds an index from flat rows
func NewCategoryIndex(rows []Category) *CategoryIndex {
	idx := &CategoryIndex{
		byID:     make(map[uuid.UUID]Category, len(rows)),
		children: make(map[uuid.UUID][]uuid.UUID),
	}
	for _, row := range rows {
		idx.byID[row.ID] = row
	}
	for _, row := range rows {
		if row.ParentID != nil {
			idx.children[*row.ParentID] = append(idx.children[*row.ParentID], row.ID)
		}
	}
	return idx
}

// Get returns the category with the given id
func (idx *CategoryIndex) Get(id uuid.UUID) (Category, bool) {
	c, ok := idx.byID[id]
	return c, ok
}

// Len returns the number of indexed categories
func (idx *CategoryIndex) Len() int {
	return len(idx.byID)
}

func (idx *CategoryIndex) parentOf(id uuid.UUID) (uuid.UUID, bool, bool) {
	c, ok := idx.byID[id]
	if !ok {
		return uuid.Nil, false, false
	}
	if c.ParentID == nil {
		return uuid.Nil, true, false
	}
	return *c.ParentID, true, true
}

// AncestorSlugs returns the slug of the category and of every ancestor up to the root.
// The result is deduplicated and sorted; order carries no meaning.
func (idx *CategoryIndex) AncestorSlugs(categoryID uuid.UUID) ([]string, error) {
	seen := make(map[string]struct{})
	err := walkToRoot("category", categoryID, idx.parentOf, func(id uuid.UUID) bool {
		seen[idx.byID[id].Slug] = struct{}{}
		return true
	})
	if err != nil {
		return nil, err
	}
	return sortedKeys(seen), nil
}

// ClosureSlugs returns the union of AncestorSlugs over several categories
func (idx *CategoryIndex) ClosureSlugs(categoryIDs []uuid.UUID) ([]string, error) {
	seen := make(map[string]struct{})
	for _, id := range categoryIDs {
		slugs, err := idx.AncestorSlugs(id)
		if err != nil {
			return nil, err
		}
		for _, s := range slugs {
			seen[s] = struct{}{}
		}
	}
	return sortedKeys(seen), nil
}

// ChildCount returns the number of direct children
func (idx *CategoryIndex) ChildCount(categoryID uuid.UUID) int {
	return len(idx.children[categoryID])
}

// CanDelete reports whether the category is childless
func (idx *CategoryIndex) CanDelete(categoryID uuid.UUID) error {
	if idx.ChildCount(categoryID) > 0 {
		return shared.NewDomainError(shared.CodeHasChildren, "Cannot delete category with children")
	}
	return nil
}

// CanReparent checks that moving id under newParentID keeps the graph acyclic.
// A nil newParentID (move to root) is always allowed.
func (idx *CategoryIndex) CanReparent(id uuid.UUID, newParentID *uuid.UUID) error {
	if newParentID == nil {
		return nil
	}
	if *newParentID == id {
		return shared.NewDomainError(shared.CodeSelfParent, "Category cannot be its own parent")
	}
	if _, ok := idx.byID[*newParentID]; !ok {
		return shared.NewDomainError(shared.CodeInvalidParent, "Parent category not found")
	}

	cycle := false
	err := walkToRoot("category", *newParentID, idx.parentOf, func(node uuid.UUID) bool {
		if node == id {
			cycle = true
			return false
		}
		return true
	})
	if err != nil {
		return err
	}
	if cycle {
		return shared.NewDomainError(shared.CodeCircularReference, "Cannot move category under its own descendant")
	}
	return nil
}

// Descendants returns the ids of every category below id (not including id)
func (idx *CategoryIndex) Descendants(id uuid.UUID) []uuid.UUID {
	var out []uuid.UUID
	visited := map[uuid.UUID]struct{}{id: {}}
	queue := append([]uuid.UUID(nil), idx.children[id]...)
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if _, ok := visited[next]; ok {
			continue
		}
		visited[next] = struct{}{}
		out = append(out, next)
		queue = append(queue, idx.children[next]...)
	}
	return out
}

// BuildForest groups rows by parent and orders siblings by title.
// Rows whose parent is not part of the input become roots.
func BuildForest(rows []Category) []CategoryNode {
	idx := NewCategoryIndex(rows)

	var roots []uuid.UUID
	for _, row := range rows {
		if row.ParentID == nil {
			roots = append(roots, row.ID)
			continue
		}
		if _, ok := idx.byID[*row.ParentID]; !ok {
			roots = append(roots, row.ID)
		}
	}
	visited := make(map[uuid.UUID]struct{}, len(rows))
	return idx.buildNodes(roots, visited)
}

func (idx *CategoryIndex) buildNodes(ids []uuid.UUID, visited map[uuid.UUID]struct{}) []CategoryNode {
	nodes := make([]CategoryNode, 0, len(ids))
	for _, id := range ids {
		if _, ok := visited[id]; ok {
			continue
		}
		visited[id] = struct{}{}
		nodes = append(nodes, CategoryNode{Category: idx.byID[id]})
	}
	sort.SliceStable(nodes, func(i, j int) bool {
		return lessByName(nodes[i].Category.Title, nodes[j].Category.Title, nodes[i].Category.ID, nodes[j].Category.ID)
	})
	for i := range nodes {
		nodes[i].Children = idx.buildNodes(idx.children[nodes[i].Category.ID], visited)
	}
	return nodes
}

func lessByName(a, b string, idA, idB uuid.UUID) bool {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	if la != lb {
		return la < lb
	}
	return idA.String() < idB.String()
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
