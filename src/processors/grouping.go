package processors

import (
	"github.com/shopspring/decimal"
	"github.com/username/tidyguru/backend/src/models"
)

type netGroup struct {
	key    string
	sample models.SalesRecord
	total  decimal.Decimal
}

// groupNetRevenue sums amount - refund - fees per key. Groups come back in the
// order their key was first seen, which callers rely on for stable tie-breaks.
func groupNetRevenue(records []models.SalesRecord, keyFn func(models.SalesRecord) string) []netGroup {
	index := make(map[string]int)
	var groups []netGroup
	for _, rec := range records {
		net := decimal.NewFromFloat(rec.Amount).
			Sub(decimal.NewFromFloat(rec.Refund)).
			Sub(decimal.NewFromFloat(rec.Fees))
		key := keyFn(rec)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, netGroup{key: key, sample: rec})
		}
		groups[i].total = groups[i].total.Add(net)
	}
	return groups
}
