/*
Package ports defines the driven ports (interfaces) of the parley dialogue orchestrator.

These interfaces decouple the session controller and the variable bridge from the
narrative interpreter they drive and from the storage used to persist variables.

# Key Interfaces

  - Interpreter: The black-box narrative runtime (continue, choose, jump, globals).
  - NodeTable: The read-only knot/stitch table used to validate jump targets.
  - VariableTable: Typed global variables plus a single-subscriber change notification.
  - KnotLister: Optional introspection of the node table (used by graph and /knots).
  - SnapshotStore: Persists variable snapshots under a key.
*/
package ports
