package contract

const (
	ToolUpdateOrder     = "update_order"
	ToolRemoveOrderItem = "remove_order_item"
	ToolPlaceOrder      = "place_order"
)

type ToolRequest struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args,omitempty"`
}

// ToolResult carries the JSON-serializable payload a tool returns to the
// model. Result and Error are mutually exclusive.
type ToolResult struct {
	Tool   string `json:"tool"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// PlaceOrderOutput is the confirmation returned by the place_order tool.
type PlaceOrderOutput struct {
	Status      string `json:"status"`
	OrderNumber int    `json:"order_number"`
	Message     string `json:"message"`
}
