// Package sync implements the reconciliation engine that mirrors
// collaboration objects between GitHub and Radicle.
//
// A full run executes four directional passes in a fixed order:
//
//  1. Issues GitHub → Radicle
//  2. Issues Radicle → GitHub
//  3. Patches GitHub → Radicle
//  4. Patches Radicle → GitHub
//
// Each pass lists every item on its source side and checks the mapping
// store for an existing correlation keyed on the source side's stable
// ID. That existence check is the sole gate against duplication: a
// re-run after a partial failure only retries items that never got a
// correlation record. Items whose source-side timestamp moved past the
// stored one are counted as needing an update; the update itself is
// never applied, so neither side's edits are silently overwritten.
//
// # Failure semantics
//
// A failure creating one item is logged, counted, and never aborts the
// pass. A failure listing a source or persisting the store aborts the
// whole run: the engine must not report counters it cannot guarantee
// were durably recorded.
//
// # Creation guarantee
//
// Creation is at-least-once, not exactly-once. The correlation record
// is written only after the destination confirms the create, so a crash
// between those two steps makes the next run create the item again. The
// store itself never holds two correlations for the same source ID.
//
// # Concurrency
//
// One sync run is a single logical thread: passes run strictly
// sequentially and items within a pass are processed strictly
// sequentially, blocking only on tracker I/O and store saves. The
// engine assumes it is the only writer of the state file; running
// concurrent sync processes against the same file requires external
// mutual exclusion (e.g. an advisory lock taken by the deployment).
package sync
