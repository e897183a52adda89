// Package dag provides the dependency graph used during binding resolution:
// node and edge storage, cycle detection with path reporting, and a
// deterministic topological sort that preserves insertion order between
// unconstrained nodes.
package dag
