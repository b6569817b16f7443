package attr

import "errors"

var (
	// ErrColumnLocked is returned by [Table.RemoveColumn] and
	// [Table.RenameColumn] when the column is locked.
	ErrColumnLocked = errors.New("column is locked")

	// ErrDuplicateName is returned by [LayerManager.AddLayer] when a layer
	// with the same name exists, and by [Table.RenameColumn] when the target
	// column name is taken.
	ErrDuplicateName = errors.New("duplicate name")

	// ErrUnknownColumn is returned when a column name or index does not exist.
	ErrUnknownColumn = errors.New("unknown column")

	// ErrUnknownRow is returned when no row has the requested key.
	ErrUnknownRow = errors.New("unknown row")

	// ErrUnknownLayer is returned by [LayerManager] lookups for missing layers.
	ErrUnknownLayer = errors.New("unknown layer")

	// ErrTooManyLayers is returned by [LayerManager.AddLayer] once all 64
	// mask bits are in use.
	ErrTooManyLayers = errors.New("too many layers")
)
