package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	contractx "github.com/orderai/orderai/agent/contract"
)

// MenuItem is one purchasable catalog entry. Immutable after load.
type MenuItem struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	Ingredients []string `json:"ingredients"`
	Price       float64  `json:"price"`
}

// Catalog is the read-only menu shared by every session.
type Catalog struct {
	items []MenuItem
	byID  map[int]MenuItem
}

func New(items []MenuItem) (*Catalog, error) {
	byID := make(map[int]MenuItem, len(items))
	for _, item := range items {
		if item.ID <= 0 {
			return nil, fmt.Errorf("%w: menu item id must be positive, got %d", contractx.ErrValidation, item.ID)
		}
		if strings.TrimSpace(item.Name) == "" {
			return nil, fmt.Errorf("%w: menu item %d has empty name", contractx.ErrValidation, item.ID)
		}
		if item.Price < 0 {
			return nil, fmt.Errorf("%w: menu item %d has negative price", contractx.ErrValidation, item.ID)
		}
		if _, ok := byID[item.ID]; ok {
			return nil, fmt.Errorf("%w: duplicate menu item id %d", contractx.ErrValidation, item.ID)
		}
		byID[item.ID] = item
	}

	return &Catalog{
		items: append([]MenuItem(nil), items...),
		byID:  byID,
	}, nil
}

// LoadFile reads a JSON menu document (an array of menu items).
func LoadFile(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read menu file: %w", err)
	}

	var items []MenuItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: decode menu file: %v", contractx.ErrValidation, err)
	}

	return New(items)
}

func (c *Catalog) Lookup(id int) (MenuItem, bool) {
	item, ok := c.byID[id]
	return item, ok
}

// Items returns the menu in load order.
func (c *Catalog) Items() []MenuItem {
	return append([]MenuItem(nil), c.items...)
}

func (c *Catalog) Len() int {
	return len(c.items)
}

// Default returns the built-in restaurant menu.
func Default() *Catalog {
	c, err := New([]MenuItem{
		{ID: 1, Name: "Margherita Pizza", Ingredients: []string{"tomato", "mozzarella", "basil"}, Price: 9.99},
		{ID: 2, Name: "Spaghetti Bolognese", Ingredients: []string{"spaghetti", "beef", "tomato sauce"}, Price: 12.99},
		{ID: 3, Name: "Caesar Salad", Ingredients: []string{"lettuce", "croutons", "parmesan", "caesar dressing"}, Price: 7.99},
		{ID: 4, Name: "Pepperoni Pizza", Ingredients: []string{"tomato", "mozzarella", "pepperoni"}, Price: 11.99},
		{ID: 5, Name: "Penne Arrabbiata", Ingredients: []string{"penne", "garlic", "chili peppers", "tomato sauce"}, Price: 10.99},
		{ID: 6, Name: "Greek Salad", Ingredients: []string{"cucumber", "tomato", "feta", "olives"}, Price: 8.49},
		{ID: 7, Name: "Chicken Alfredo", Ingredients: []string{"fettuccine", "chicken", "alfredo sauce"}, Price: 13.99},
		{ID: 8, Name: "Mushroom Risotto", Ingredients: []string{"rice", "mushrooms", "parmesan", "white wine"}, Price: 14.49},
		{ID: 9, Name: "Garlic Bread", Ingredients: []string{"bread", "garlic", "butter", "parsley"}, Price: 4.49},
		{ID: 10, Name: "Tiramisu", Ingredients: []string{"mascarpone", "espresso", "ladyfingers", "cocoa"}, Price: 6.99},
	})
	if err != nil {
		panic(err)
	}
	return c
}
