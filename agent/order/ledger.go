package order

import (
	"fmt"
	"strings"
	"time"

	catalogx "github.com/orderai/orderai/agent/catalog"
	contractx "github.com/orderai/orderai/agent/contract"
)

// NoInstructions is the sentinel stored when the customer gave no special
// instructions. Kept as a literal string so snapshots and persisted orders
// read naturally.
const NoInstructions = "none"

// LineItem is one entry of an in-progress order. Two line items merge iff
// they reference the same product and carry identical normalized
// instructions.
type LineItem struct {
	Product      catalogx.MenuItem
	Quantity     int
	Instructions string
}

// ItemView is the read-only rendering of a line item used in snapshots and
// finalized orders.
type ItemView struct {
	ID           int     `json:"id"`
	Name         string  `json:"name"`
	Price        float64 `json:"price"`
	Quantity     int     `json:"quantity"`
	Instructions string  `json:"special_instructions"`
	TotalPrice   float64 `json:"total_price"`
}

type Snapshot struct {
	Items []ItemView `json:"items"`
	Total float64    `json:"total"`
}

// FinalizedOrder is the immutable record appended to durable storage when a
// ledger is placed.
type FinalizedOrder struct {
	OrderNumber int        `json:"order_number"`
	Items       []ItemView `json:"items"`
	Total       float64    `json:"total"`
	PlacedAt    time.Time  `json:"placed_at"`
}

// Ledger is the per-session mutable order. It is exclusively owned by one
// session and is not safe for concurrent use on its own; chat turns for a
// session are serialized by the conversational protocol.
type Ledger struct {
	items []LineItem
}

func NewLedger() *Ledger {
	return &Ledger{}
}

func NormalizeInstructions(instructions string) string {
	trimmed := strings.TrimSpace(instructions)
	if trimmed == "" {
		return NoInstructions
	}
	return trimmed
}

// Upsert merges the requested product into the ledger: an existing mergeable
// line has its quantity incremented, otherwise a new line is appended.
func (l *Ledger) Upsert(product catalogx.MenuItem, quantity int, instructions string) error {
	if quantity <= 0 {
		return fmt.Errorf("%w: quantity must be >= 1, got %d", contractx.ErrInvalidQuantity, quantity)
	}

	normalized := NormalizeInstructions(instructions)
	for i := range l.items {
		if l.items[i].Product.ID == product.ID && l.items[i].Instructions == normalized {
			l.items[i].Quantity += quantity
			return nil
		}
	}

	l.items = append(l.items, LineItem{
		Product:      product,
		Quantity:     quantity,
		Instructions: normalized,
	})
	return nil
}

// Remove deletes product lines from the ledger. With a nil quantity every
// line for the product is removed regardless of instruction variant. With a
// quantity, only the first-inserted matching line is decremented; if its
// quantity would drop to zero or below the line is deleted and any excess is
// dropped, never carried to later variants.
func (l *Ledger) Remove(productID int, quantity *int) {
	if quantity == nil {
		kept := l.items[:0]
		for _, item := range l.items {
			if item.Product.ID != productID {
				kept = append(kept, item)
			}
		}
		l.items = kept
		return
	}

	for i := range l.items {
		if l.items[i].Product.ID != productID {
			continue
		}
		if l.items[i].Quantity <= *quantity {
			l.items = append(l.items[:i], l.items[i+1:]...)
		} else {
			l.items[i].Quantity -= *quantity
		}
		return
	}
}

// Snapshot renders the ledger for display or transmission. It never mutates.
func (l *Ledger) Snapshot() Snapshot {
	views := make([]ItemView, 0, len(l.items))
	total := 0.0
	for _, item := range l.items {
		lineTotal := item.Product.Price * float64(item.Quantity)
		views = append(views, ItemView{
			ID:           item.Product.ID,
			Name:         item.Product.Name,
			Price:        item.Product.Price,
			Quantity:     item.Quantity,
			Instructions: item.Instructions,
			TotalPrice:   lineTotal,
		})
		total += lineTotal
	}
	return Snapshot{Items: views, Total: total}
}

func (l *Ledger) Clear() {
	l.items = nil
}

func (l *Ledger) Len() int {
	return len(l.items)
}

func (l *Ledger) Empty() bool {
	return len(l.items) == 0
}
