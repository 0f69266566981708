package domain

const (
	// TaxRatePercent is the flat goods-and-services tax applied to the order subtotal.
	TaxRatePercent int64 = 18
	// FreeShippingThreshold is the subtotal from which shipping is free.
	FreeShippingThreshold int64 = 500
	// FlatShippingCharge applies below the free shipping threshold.
	FlatShippingCharge int64 = 50
)

// PriceLine is one validated cart line ready for pricing.
type PriceLine struct {
	Product  Product
	Quantity int
}

// PricingBreakdown captures the monetary results of pricing a cart.
type PricingBreakdown struct {
	Items    []OrderItem
	Subtotal int64
	Tax      int64
	Shipping int64
	Discount int64
	Total    int64
}

// UnitPrice returns the discounted price when it is set and lower than the list price.
func (p Product) UnitPrice() int64 {
	if p.DiscountPrice != nil && *p.DiscountPrice > 0 && *p.DiscountPrice < p.Price {
		return *p.DiscountPrice
	}
	return p.Price
}

// PriceOrder snapshots each line and derives subtotal, tax, shipping and total.
func PriceOrder(lines []PriceLine) PricingBreakdown {
	items := make([]OrderItem, 0, len(lines))
	var subtotal int64
	for _, line := range lines {
		unit := line.Product.UnitPrice()
		lineTotal := unit * int64(line.Quantity)
		subtotal += lineTotal
		items = append(items, OrderItem{
			ProductID: line.Product.ID,
			SellerID:  line.Product.SellerID,
			Name:      line.Product.Name,
			Price:     unit,
			Quantity:  line.Quantity,
			Image:     line.Product.ImageURL,
			Subtotal:  lineTotal,
		})
	}

	tax := TaxFor(subtotal)
	shipping := ShippingFor(subtotal)
	var discount int64

	return PricingBreakdown{
		Items:    items,
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Discount: discount,
		Total:    subtotal + tax + shipping - discount,
	}
}

// TaxFor returns the tax on subtotal rounded half up to a whole unit.
func TaxFor(subtotal int64) int64 {
	if subtotal <= 0 {
		return 0
	}
	return (subtotal*TaxRatePercent + 50) / 100
}

// ShippingFor applies the free shipping threshold.
func ShippingFor(subtotal int64) int64 {
	if subtotal >= FreeShippingThreshold {
		return 0
	}
	return FlatShippingCharge
}
