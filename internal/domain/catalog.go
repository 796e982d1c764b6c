package domain

// Product is a catalog entry. Price is in minor units.
type Product struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Price   int64  `json:"price"`
	InStock bool   `json:"in_stock"`
}
