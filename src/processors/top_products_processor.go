// backend/src/processors/top_products_processor.go
package processors

import (
	"sort"

	"github.com/username/tidyguru/backend/src/models"
)

const (
	TopProductsLimit     = 5
	displayProductLength = 20
)

// ComputeTopProducts ranks products by net revenue, highest first, and keeps
// the first five. Fully refunded products stay in the ranking with their
// zero or negative revenue. Equal revenues keep first-seen order.
func ComputeTopProducts(records []models.SalesRecord) []models.ProductRevenue {
	groups := groupNetRevenue(records, func(r models.SalesRecord) string { return r.Product })

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].total.GreaterThan(groups[j].total)
	})
	if len(groups) > TopProductsLimit {
		groups = groups[:TopProductsLimit]
	}

	out := make([]models.ProductRevenue, 0, len(groups))
	for _, g := range groups {
		out = append(out, models.ProductRevenue{
			Product:        g.key,
			DisplayProduct: truncateLabel(g.key, displayProductLength),
			Revenue:        g.total.InexactFloat64(),
		})
	}
	return out
}

func truncateLabel(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
