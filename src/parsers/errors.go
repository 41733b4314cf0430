package parsers

import "github.com/username/tidyguru/backend/src/parsers/heuristic"

// Structural parse failures. Every one of them also matches ErrParse.
var (
	ErrParse       = heuristic.ErrParse
	ErrStructural  = heuristic.ErrStructural
	ErrNoHeader    = heuristic.ErrNoHeader
	ErrNoDataRows  = heuristic.ErrNoDataRows
	ErrTooManyRows = heuristic.ErrTooManyRows
)
