package data

import "errors"

var (
	// ErrNotFound marks a task whose backing file (or label database) is
	// absent. Batch loaders skip such tasks and keep going.
	ErrNotFound = errors.New("not found")

	// ErrDataIntegrity marks corrupt input: missing labels, missing columns
	// or vectors whose lengths diverge. It must abort the task.
	ErrDataIntegrity = errors.New("data integrity")

	// ErrLabelMismatch is returned when the members of a ConcatTask disagree
	// on labels or filenames once sorted.
	ErrLabelMismatch = errors.New("label mismatch")
)
