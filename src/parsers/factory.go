// backend/src/parsers/factory.go
package parsers

import (
	"fmt"
	"strings"

	"github.com/username/tidyguru/backend/src/parsers/heuristic"
)

// Sources lists the accepted values for an upload's source field.
var Sources = []string{"auto", "generic", "shopify", "etsy", "gumroad", "whop", "stripe"}

// GetParser returns the parser for an upload source. maxRows <= 0 disables the row cap.
func GetParser(source string, maxRows int) (Parser, error) {
	switch strings.ToLower(strings.TrimSpace(source)) {
	case "", "auto", "generic", "gumroad", "whop", "stripe":
		return heuristic.NewParser(heuristic.WithMaxRows(maxRows)), nil
	case "shopify":
		return heuristic.NewParser(heuristic.WithPreset(heuristic.ShopifyPreset), heuristic.WithMaxRows(maxRows)), nil
	case "etsy":
		return heuristic.NewParser(heuristic.WithPreset(heuristic.EtsyPreset), heuristic.WithMaxRows(maxRows)), nil
	default:
		return nil, fmt.Errorf("no parser available for source: %s", source)
	}
}
