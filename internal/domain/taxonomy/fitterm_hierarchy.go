package taxonomy

import (
	"sort"

	"github.com/google/uuid"
	"github.com/partscatalog/backend/internal/domain/shared"
)

// FitTermNode is a fit-term with its ordered children
type FitTermNode struct {
	Term     FitTerm
	Children []FitTermNode
}

// FitTermIndex is an in-memory view over the fit-term rows
type FitTermIndex struct {
	byID     map[uuid.UUID]FitTerm
	children map[uuid.UUID][]uuid.UUID
	order    []uuid.UUID
}

// NewFitTermIndex builds an index from flat rows
func NewFitTermIndex(rows []FitTerm) *FitTermIndex {
	idx := &FitTermIndex{
		byID:     make(map[uuid.UUID]FitTerm, len(rows)),
		children: make(map[uuid.UUID][]uuid.UUID),
		order:    make([]uuid.UUID, 0, len(rows)),
	}
	for _, row := range rows {
		idx.byID[row.ID] = row
		idx.order = append(idx.order, row.ID)
	}
	for _, row := range rows {
		if row.ParentID != nil {
			idx.children[*row.ParentID] = append(idx.children[*row.ParentID], row.ID)
		}
	}
	return idx
}

// Get returns the term with the given id
func (idx *FitTermIndex) Get(id uuid.UUID) (FitTerm, bool) {
	t, ok := idx.byID[id]
	return t, ok
}

// ChildCount returns the number of direct children
func (idx *FitTermIndex) ChildCount(id uuid.UUID) int {
	return len(idx.children[id])
}

func (idx *FitTermIndex) parentOf(id uuid.UUID) (uuid.UUID, bool, bool) {
	t, ok := idx.byID[id]
	if !ok {
		return uuid.Nil, false, false
	}
	if t.ParentID == nil {
		return uuid.Nil, true, false
	}
	return *t.ParentID, true, true
}

// IsDescendantOf reports whether ancestorID is a strict ancestor of nodeID
func (idx *FitTermIndex) IsDescendantOf(nodeID, ancestorID uuid.UUID) (bool, error) {
	if nodeID == ancestorID {
		return false, nil
	}
	found := false
	err := walkToRoot("fit-term", nodeID, idx.parentOf, func(id uuid.UUID) bool {
		if id == ancestorID {
			found = true
			return false
		}
		return true
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

// Tree builds the fit-term forest. Without a type filter the roots are the
// parentless terms (and terms whose parent is missing), so MAKE roots and
// orphan CHASSIS roots sit side by side. With a filter every term of that
// type is a root and carries its full subtree.
func (idx *FitTermIndex) Tree(termType *FitTermType) []FitTermNode {
	var roots []uuid.UUID
	for _, id := range idx.order {
		term := idx.byID[id]
		if termType != nil {
			if term.Type == *termType {
				roots = append(roots, id)
			}
			continue
		}
		if term.ParentID == nil {
			roots = append(roots, id)
			continue
		}
		if _, ok := idx.byID[*term.ParentID]; !ok {
			roots = append(roots, id)
		}
	}
	return idx.buildNodes(roots, make(map[uuid.UUID]struct{}, len(idx.order)))
}

func (idx *FitTermIndex) buildNodes(ids []uuid.UUID, visited map[uuid.UUID]struct{}) []FitTermNode {
	nodes := make([]FitTermNode, 0, len(ids))
	for _, id := range ids {
		if _, ok := visited[id]; ok {
			continue
		}
		visited[id] = struct{}{}
		nodes = append(nodes, FitTermNode{Term: idx.byID[id]})
	}
	sort.SliceStable(nodes, func(i, j int) bool {
		a, b := nodes[i].Term, nodes[j].Term
		return lessByName(a.Name, b.Name, a.ID, b.ID)
	})
	for i := range nodes {
		nodes[i].Children = idx.buildNodes(idx.children[nodes[i].Term.ID], visited)
	}
	return nodes
}

// Selection is the vehicle picked in a YMM selector
type Selection struct {
	MakeID    *uuid.UUID `json:"make_id,omitempty"`
	ModelID   *uuid.UUID `json:"model_id,omitempty"`
	TrimID    *uuid.UUID `json:"trim_id,omitempty"`
	ChassisID *uuid.UUID `json:"chassis_id,omitempty"`
}

// ResetSelection switches the selection to newMakeID and clears every
// dependent pick that is not beneath the new make. Picks that no longer
// exist are cleared too.
func (idx *FitTermIndex) ResetSelection(sel Selection, newMakeID uuid.UUID) (Selection, error) {
	if t, ok := idx.byID[newMakeID]; !ok || t.Type != FitTermMake {
		return Selection{}, shared.NewDomainError(shared.CodeInvalidInput, "Selected make not found")
	}
	out := Selection{MakeID: &newMakeID}

	keep := func(id *uuid.UUID) (*uuid.UUID, error) {
		if id == nil {
			return nil, nil
		}
		if _, ok := idx.byID[*id]; !ok {
			return nil, nil
		}
		under, err := idx.IsDescendantOf(*id, newMakeID)
		if err != nil || !under {
			return nil, err
		}
		v := *id
		return &v, nil
	}

	var err error
	if out.ModelID, err = keep(sel.ModelID); err != nil {
		return Selection{}, err
	}
	if out.TrimID, err = keep(sel.TrimID); err != nil {
		return Selection{}, err
	}
	if out.ChassisID, err = keep(sel.ChassisID); err != nil {
		return Selection{}, err
	}
	return out, nil
}
