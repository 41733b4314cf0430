package heuristic

// ShopifyPreset targets the Shopify orders export, where the order number
// column "Name" precedes "Lineitem name" and would win keyword detection.
var ShopifyPreset = &Preset{
	Name: "shopify",
	Headers: map[Field][]string{
		FieldDate:     {"Created at", "Paid at"},
		FieldProduct:  {"Lineitem name"},
		FieldAmount:   {"Total", "Subtotal"},
		FieldRefund:   {"Refunded Amount"},
		FieldFees:     {"Fees"},
		FieldQuantity: {"Lineitem quantity"},
	},
}

// EtsyPreset targets the Etsy sold-order-items export.
var EtsyPreset = &Preset{
	Name: "etsy",
	Headers: map[Field][]string{
		FieldDate:     {"Sale Date"},
		FieldProduct:  {"Item Name"},
		FieldAmount:   {"Item Total", "Price"},
		FieldRefund:   {"Refund Amount"},
		FieldFees:     {"Fees", "Transaction Fees"},
		FieldQuantity: {"Quantity"},
	},
}
