// backend/src/parsers/parser.go
package parsers

import (
	"io"

	"github.com/username/tidyguru/backend/src/models"
)

// Parser turns one uploaded file into canonical sales records.
type Parser interface {
	Parse(file io.Reader) (*models.ParseResult, error)
}
