package graph

import "errors"

// Structural errors. They indicate that the caller's view of the graph has drifted from the
// store and are always returned wrapped with the offending identifier.
var (
	ErrMissingRoot        = errors.New("graph has no root node")
	ErrUnknownPhase       = errors.New("unknown phase")
	ErrUnknownTask        = errors.New("unknown task")
	ErrUnknownTargetPhase = errors.New("unknown target phase")
	ErrSamePhase          = errors.New("task already belongs to phase")
	ErrUnknownNode        = errors.New("unknown node")
)

// errUnchanged lets a mutation report success without a commit.
var errUnchanged = errors.New("unchanged")
