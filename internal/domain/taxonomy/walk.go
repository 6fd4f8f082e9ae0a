package taxonomy

import (
	"github.com/google/uuid"
	"github.com/partscatalog/backend/internal/domain/shared"
)

// MaxHierarchyDepth bounds every walk towards a root
const MaxHierarchyDepth = 64

// parentFunc returns the parent of id, whether id is known, and whether it has a parent
type parentFunc func(id uuid.UUID) (parent uuid.UUID, known bool, hasParent bool)

// walkToRoot visits start and each ancestor in order. visit returning false stops the walk early.
func walkToRoot(hierarchy string, start uuid.UUID, parentOf parentFunc, visit func(id uuid.UUID) bool) error {
	visited := make(map[uuid.UUID]struct{}, 8)
	current := start
	for depth := 0; ; depth++ {
		if depth > MaxHierarchyDepth {
			return &shared.CorruptHierarchyError{Hierarchy: hierarchy, StartID: start.String(), Depth: MaxHierarchyDepth}
		}
		if _, seen := visited[current]; seen {
			return &shared.CorruptHierarchyError{Hierarchy: hierarchy, StartID: start.String(), Depth: depth}
		}
		visited[current] = struct{}{}

		parent, known, hasParent := parentOf(current)
		if !known {
			if current == start {
				return shared.ErrNotFound
			}
			// dangling parent pointer
			return &shared.CorruptHierarchyError{Hierarchy: hierarchy, StartID: start.String(), Depth: depth}
		}
		if !visit(current) {
			return nil
		}
		if !hasParent {
			return nil
		}
		current = parent
	}
}
