// Package taxonomy contains the two self-referential hierarchies of the parts
// catalog: product categories and vehicle fit-terms (Make, Model, Trim,
// Chassis).
//
// Both hierarchies are stored as adjacency lists (parent pointers). Every walk
// towards a root is bounded by MaxHierarchyDepth and a visited set, so a
// corrupted parent graph surfaces as a *shared.CorruptHierarchyError instead
// of an endless loop.
package taxonomy
