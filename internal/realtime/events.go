// Package realtime applies remote product and order mutations to terminal
// state in the order they are delivered.
package realtime

import (
	"encoding/json"
	"errors"
	"fmt"

	"sote-minimart/internal/models"
)

const (
	TableProducts = "products"
	TableOrders   = "orders"

	TypeInsert = "INSERT"
	TypeUpdate = "UPDATE"
)

var ErrUnknownEvent = errors.New("unknown realtime event")

// Envelope is a mutation as it arrives on the wire: the table, the kind of
// write and the row before and after it.
type Envelope struct {
	Table string          `json:"table"`
	Type  string          `json:"type"`
	Old   json.RawMessage `json:"old,omitempty"`
	New   json.RawMessage `json:"new,omitempty"`
}

type Event interface {
	event()
}

// ProductUpdated carries Old only when the producer sent the prior row.
type ProductUpdated struct {
	Old *models.Product
	New models.Product
}

type OrderInserted struct {
	New models.Order
}

type OrderUpdated struct {
	Old *models.Order
	New models.Order
}

func (ProductUpdated) event() {}
func (OrderInserted) event()  {}
func (OrderUpdated) event()   {}

// Decode turns an envelope into one of the typed events.
func Decode(env Envelope) (Event, error) {
	switch {
	case env.Table == TableProducts && env.Type == TypeUpdate:
		var ev ProductUpdated
		if err := unmarshalRow(env.New, &ev.New); err != nil {
			return nil, err
		}
		if len(env.Old) > 0 {
			var old models.Product
			if err := unmarshalRow(env.Old, &old); err != nil {
				return nil, err
			}
			ev.Old = &old
		}
		return ev, nil

	case env.Table == TableOrders && env.Type == TypeInsert:
		var ev OrderInserted
		if err := unmarshalRow(env.New, &ev.New); err != nil {
			return nil, err
		}
		return ev, nil

	case env.Table == TableOrders && env.Type == TypeUpdate:
		var ev OrderUpdated
		if err := unmarshalRow(env.New, &ev.New); err != nil {
			return nil, err
		}
		if len(env.Old) > 0 {
			var old models.Order
			if err := unmarshalRow(env.Old, &old); err != nil {
				return nil, err
			}
			ev.Old = &old
		}
		return ev, nil
	}

	return nil, fmt.Errorf("%w: %s on %s", ErrUnknownEvent, env.Type, env.Table)
}

func unmarshalRow(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: missing row", ErrUnknownEvent)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("failed to decode row: %w", err)
	}
	return nil
}

// Encode builds the envelope for a row write. before may be nil.
func Encode(table, kind string, before, after any) (Envelope, error) {
	env := Envelope{Table: table, Type: kind}

	newRaw, err := json.Marshal(after)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to encode row: %w", err)
	}
	env.New = newRaw

	if before != nil {
		oldRaw, err := json.Marshal(before)
		if err != nil {
			return Envelope{}, fmt.Errorf("failed to encode row: %w", err)
		}
		env.Old = oldRaw
	}

	return env, nil
}
