// Package attr implements the per-map attribute store: a columnar table of
// float64 values keyed by stable integer entity keys, with running column
// statistics, locked and hidden columns, and bitmask layer visibility.
//
// # Tables
//
// Every map owns exactly one [Table]. Rows are created for entities (grid
// cells, shapes) and are keyed by the entity's key, so the key of a row never
// changes while the entity exists. Rows iterate in the order they were added.
// Every row has one value per column; a value that was never written holds
// [Unset] (-1).
//
//	t := attr.New()
//	area := t.InsertOrResetColumn("Isovist Area")
//	t.AddRow(7)
//	_ = t.SetValue(7, area, 12.5)
//
// # Statistics
//
// Column statistics (min, max, total and their visible-row counterparts) are
// updated incrementally on every write. Replacing a value that defined the
// current minimum or maximum cannot be handled incrementally; the column is
// then marked stale and [Table.EnsureStats] recomputes it. Readers that need
// exact bounds call EnsureStats first.
//
// # Layers
//
// A [LayerManager] assigns each named layer a power-of-two key. Rows carry a
// mask of the layers they belong to; layer 0 ("Everything") is always present
// and every row belongs to it. A row is visible when its mask intersects the
// manager's visibility mask.
//
// # Locking
//
// Columns written by analysis kernels are locked: [Table.RemoveColumn] and
// [Table.RenameColumn] refuse them with [ErrColumnLocked].
package attr
