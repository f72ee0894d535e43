package prompt

import (
	_ "embed"
	"fmt"
	"strings"

	catalogx "github.com/orderai/orderai/agent/catalog"
)

//go:embed template/waiter.txt
var waiterRaw string

// RenderWaiter returns the waiter system prompt with the menu inlined, one
// line per item: "id - name: ingredients - $price".
func RenderWaiter(c *catalogx.Catalog) string {
	lines := make([]string, 0, c.Len())
	for _, item := range c.Items() {
		lines = append(lines, fmt.Sprintf("%d - %s: %s - $%.2f",
			item.ID, item.Name, strings.Join(item.Ingredients, ", "), item.Price))
	}
	return strings.ReplaceAll(strings.TrimSpace(waiterRaw), "{menu}", strings.Join(lines, "\n"))
}
