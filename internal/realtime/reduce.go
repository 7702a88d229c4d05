package realtime

import (
	"fmt"

	"sote-minimart/internal/models"
)

type Field string

const (
	FieldStock Field = "stock"
	FieldPrice Field = "price"
)

// Change describes one watched field that moved between the old and new row.
type Change struct {
	Field     Field
	Increased bool
	Value     string
}

func (c Change) Message(productName string) string {
	direction := "decreased"
	if c.Increased {
		direction = "increased"
	}
	if c.Field == FieldStock {
		return fmt.Sprintf("%s stock %s to %s units", productName, direction, c.Value)
	}
	return fmt.Sprintf("%s %s %s to %s", productName, c.Field, direction, c.Value)
}

// ProductChange returns the new projection and the stock and price changes
// relative to the prior row. Without a prior row nothing counts as changed.
func ProductChange(ev ProductUpdated) (models.Product, []Change) {
	if ev.Old == nil {
		return ev.New, nil
	}

	var changes []Change

	oldQty, newQty := ev.Old.StockQuantity, ev.New.StockQuantity
	if oldQty != nil && newQty != nil && *oldQty != *newQty {
		changes = append(changes, Change{
			Field:     FieldStock,
			Increased: *newQty > *oldQty,
			Value:     fmt.Sprintf("%d", *newQty),
		})
	}

	if !ev.Old.Price.Equal(ev.New.Price) {
		changes = append(changes, Change{
			Field:     FieldPrice,
			Increased: ev.New.Price.GreaterThan(ev.Old.Price),
			Value:     ev.New.Price.StringFixed(2),
		})
	}

	return ev.New, changes
}

// ReduceOrders folds an order event into the active list and returns a new
// slice; active is never modified. Newly active orders go to the front.
func ReduceOrders(active []models.Order, ev Event) []models.Order {
	var order models.Order
	switch e := ev.(type) {
	case OrderInserted:
		order = e.New
	case OrderUpdated:
		order = e.New
	default:
		return active
	}

	idx := indexOf(active, order.ID)
	isActive := order.Status.Active()

	switch {
	case idx < 0 && isActive:
		out := make([]models.Order, 0, len(active)+1)
		out = append(out, order)
		return append(out, active...)

	case idx >= 0 && !isActive:
		out := make([]models.Order, 0, len(active)-1)
		out = append(out, active[:idx]...)
		return append(out, active[idx+1:]...)

	case idx >= 0 && isActive:
		if _, inserted := ev.(OrderInserted); inserted {
			return active
		}
		out := append([]models.Order(nil), active...)
		out[idx] = order
		return out
	}

	return active
}

func indexOf(orders []models.Order, id string) int {
	for i := range orders {
		if orders[i].ID == id {
			return i
		}
	}
	return -1
}
