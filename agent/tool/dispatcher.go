package tool

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	catalogx "github.com/orderai/orderai/agent/catalog"
	contractx "github.com/orderai/orderai/agent/contract"
	orderx "github.com/orderai/orderai/agent/order"
	sessionx "github.com/orderai/orderai/agent/session"
)

// Infos describes the closed set of tools exposed to the model. The
// dispatcher rejects anything outside this set.
func Infos() []*schema.ToolInfo {
	return []*schema.ToolInfo{
		{
			Name: contractx.ToolUpdateOrder,
			Desc: "Add menu items to the customer's order, optionally with a quantity and special instructions.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"order_item_ids": {
					Type:     schema.Array,
					ElemInfo: &schema.ParameterInfo{Type: schema.Integer},
					Desc:     "Menu item ids to add",
					Required: true,
				},
				"quantity": {Type: schema.Integer, Desc: "Quantity per item, defaults to 1"},
				"special_instructions": {Type: schema.String, Desc: "Special instructions, e.g. 'no cheese'"},
			}),
		},
		{
			Name: contractx.ToolRemoveOrderItem,
			Desc: "Remove menu items from the customer's order. Omit quantity to remove every matching line.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"order_item_ids": {
					Type:     schema.Array,
					ElemInfo: &schema.ParameterInfo{Type: schema.Integer},
					Desc:     "Menu item ids to remove",
					Required: true,
				},
				"quantity": {Type: schema.Integer, Desc: "How many to remove from the first matching line"},
			}),
		},
		{
			Name:        contractx.ToolPlaceOrder,
			Desc:        "Finalize the order once the customer confirms they are done.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{}),
		},
	}
}

// Dispatcher validates tool invocations against the catalog and the
// session's ledger, applies their effects, and pushes notifications.
// Unknown product ids and non-positive quantities skip that entry and keep
// the rest of the batch; a batch never aborts for one bad entry.
type Dispatcher struct {
	catalog   *catalogx.Catalog
	sessions  *sessionx.Registry
	finalizer *orderx.Finalizer
	notifier  contractx.Notifier
}

var _ contractx.ToolGateway = (*Dispatcher)(nil)

func NewDispatcher(
	catalog *catalogx.Catalog,
	sessions *sessionx.Registry,
	finalizer *orderx.Finalizer,
	notifier contractx.Notifier,
) *Dispatcher {
	return &Dispatcher{
		catalog:   catalog,
		sessions:  sessions,
		finalizer: finalizer,
		notifier:  notifier,
	}
}

func (d *Dispatcher) Execute(ctx context.Context, sessionID string, req contractx.ToolRequest) contractx.ToolResult {
	sess, err := d.sessions.Get(sessionID)
	if err != nil {
		// The session ended while the model turn was in flight; the
		// effect becomes a no-op.
		if errors.Is(err, contractx.ErrSessionNotFound) {
			log.Debug().Str("session_id", sessionID).Str("tool", req.Tool).Msg("tool call for dead session dropped")
		}
		return contractx.ToolResult{Tool: req.Tool, Error: err.Error()}
	}

	switch req.Tool {
	case contractx.ToolUpdateOrder:
		return d.updateOrder(sess, req)
	case contractx.ToolRemoveOrderItem:
		return d.removeOrderItem(sess, req)
	case contractx.ToolPlaceOrder:
		return d.placeOrder(ctx, sess, req)
	default:
		return contractx.ToolResult{
			Tool:  req.Tool,
			Error: fmt.Sprintf("tool=%s is not available", req.Tool),
		}
	}
}

func (d *Dispatcher) updateOrder(sess *sessionx.Session, req contractx.ToolRequest) contractx.ToolResult {
	ids, err := intSliceArg(req.Args, "order_item_ids")
	if err != nil {
		return contractx.ToolResult{Tool: req.Tool, Error: err.Error()}
	}

	quantity := 1
	if q, ok, err := intArg(req.Args, "quantity"); err != nil {
		return contractx.ToolResult{Tool: req.Tool, Error: err.Error()}
	} else if ok {
		quantity = q
	}
	instructions, _ := req.Args["special_instructions"].(string)

	for _, id := range ids {
		product, ok := d.catalog.Lookup(id)
		if !ok {
			log.Debug().Int("product_id", id).Msg("skip unknown product")
			continue
		}
		if err := sess.Ledger.Upsert(product, quantity, instructions); err != nil {
			log.Debug().Err(err).Int("product_id", id).Msg("skip rejected upsert")
		}
	}

	snapshot := sess.Ledger.Snapshot()
	d.notifier.PushOrderSnapshot(sess.ID, snapshot)
	return contractx.ToolResult{Tool: req.Tool, Result: snapshot}
}

func (d *Dispatcher) removeOrderItem(sess *sessionx.Session, req contractx.ToolRequest) contractx.ToolResult {
	ids, err := intSliceArg(req.Args, "order_item_ids")
	if err != nil {
		return contractx.ToolResult{Tool: req.Tool, Error: err.Error()}
	}

	var quantity *int
	if q, ok, err := intArg(req.Args, "quantity"); err != nil {
		return contractx.ToolResult{Tool: req.Tool, Error: err.Error()}
	} else if ok {
		quantity = &q
	}

	for _, id := range ids {
		sess.Ledger.Remove(id, quantity)
	}

	snapshot := sess.Ledger.Snapshot()
	d.notifier.PushOrderSnapshot(sess.ID, snapshot)
	return contractx.ToolResult{Tool: req.Tool, Result: snapshot}
}

func (d *Dispatcher) placeOrder(ctx context.Context, sess *sessionx.Session, req contractx.ToolRequest) contractx.ToolResult {
	final, err := d.finalizer.Finalize(ctx, sess.Ledger)
	if err != nil {
		log.Error().Err(err).Str("session_id", sess.ID).Msg("finalize failed")
		return contractx.ToolResult{Tool: req.Tool, Error: "could not place the order, please try again"}
	}

	d.notifier.PushFinalized(sess.ID, final.OrderNumber)
	return contractx.ToolResult{
		Tool: req.Tool,
		Result: contractx.PlaceOrderOutput{
			Status:      "completed",
			OrderNumber: final.OrderNumber,
			Message:     fmt.Sprintf("Final order placed. Your order number is %d.", final.OrderNumber),
		},
	}
}

// Tool args arrive as decoded JSON, so numbers are float64.
func intArg(args map[string]any, key string) (int, bool, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return 0, false, nil
	}
	switch v := raw.(type) {
	case float64:
		return int(v), true, nil
	case int:
		return v, true, nil
	default:
		return 0, false, fmt.Errorf("%s must be an integer", key)
	}
}

func intSliceArg(args map[string]any, key string) ([]int, error) {
	raw, ok := args[key]
	if !ok {
		return nil, fmt.Errorf("%s is required", key)
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%s must be an array of integers", key)
	}

	ids := make([]int, 0, len(list))
	for _, elem := range list {
		switch v := elem.(type) {
		case float64:
			ids = append(ids, int(v))
		case int:
			ids = append(ids, v)
		default:
			return nil, fmt.Errorf("%s must contain only integers", key)
		}
	}
	return ids, nil
}
