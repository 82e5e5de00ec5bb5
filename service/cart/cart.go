package cart

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item is one product line in a cart.
type Item struct {
	ProductID string          `json:"productId"`
	VendorID  string          `json:"vendorId"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Currency  string          `json:"currency"`
	Quantity  int             `json:"quantity"`
}

// Cart is an explicit state snapshot. Mutation helpers return an updated
// copy so no ambient shared state exists between requests.
type Cart struct {
	ID        string    `json:"id"`
	Items     []Item    `json:"items"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func New(id string) Cart {
	return Cart{ID: id, UpdatedAt: time.Now()}
}

func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// WithItem adds the item, merging quantity with an existing line for the
// same product.
func (c Cart) WithItem(item Item) Cart {
	next := c.clone()
	for i, existing := range next.Items {
		if existing.ProductID == item.ProductID {
			next.Items[i].Quantity += item.Quantity
			next.UpdatedAt = time.Now()
			return next
		}
	}
	next.Items = append(next.Items, item)
	next.UpdatedAt = time.Now()
	return next
}

// WithQuantity sets the line quantity for a product. Zero or negative
// removes the line.
func (c Cart) WithQuantity(productID string, quantity int) Cart {
	if quantity <= 0 {
		return c.WithoutItem(productID)
	}
	next := c.clone()
	for i, existing := range next.Items {
		if existing.ProductID == productID {
			next.Items[i].Quantity = quantity
			break
		}
	}
	next.UpdatedAt = time.Now()
	return next
}

func (c Cart) WithoutItem(productID string) Cart {
	next := Cart{ID: c.ID, UpdatedAt: time.Now()}
	for _, existing := range c.Items {
		if existing.ProductID != productID {
			next.Items = append(next.Items, existing)
		}
	}
	return next
}

// Total sums quantity times unit price across all lines.
func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

// Currency returns the currency of the first line. Checkout treats the
// cart as single currency and falls back to the configured default when
// the cart is empty.
func (c Cart) Currency() string {
	if len(c.Items) == 0 {
		return ""
	}
	return c.Items[0].Currency
}

func (c Cart) clone() Cart {
	items := make([]Item, len(c.Items))
	copy(items, c.Items)
	return Cart{ID: c.ID, Items: items, UpdatedAt: c.UpdatedAt}
}
