package billing

import (
	"bytes"
	"encoding/json"
	"errors"
)

// EventType is the provider event name, e.g. "customer.subscription.created".
type EventType string

const (
	EventSubscriptionCreated      EventType = "customer.subscription.created"
	EventSubscriptionUpdated      EventType = "customer.subscription.updated"
	EventSubscriptionDeleted      EventType = "customer.subscription.deleted"
	EventSubscriptionTrialWillEnd EventType = "customer.subscription.trial_will_end"
)

// Event is a provider lifecycle notification. Object holds the raw payload of
// data.object and is decoded by the handler for the event type.
type Event struct {
	ID     string
	Type   EventType
	Object json.RawMessage
}

// SubscriptionObject is the part of a provider subscription the ledger uses.
type SubscriptionObject struct {
	ID       string
	Customer string
	Status   string
}

type rawEvent struct {
	ID   string    `json:"id"`
	Type EventType `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// ParseEvent decodes a webhook payload. It only fails when the payload is not
// a JSON event envelope with a type.
func ParseEvent(payload []byte) (Event, error) {
	var raw rawEvent
	if err := json.Unmarshal(payload, &raw); err != nil {
		return Event{}, errors.Join(ErrMalformedEvent, err)
	}
	if raw.Type == "" {
		return Event{}, errors.Join(ErrMalformedEvent, errors.New("missing event type"))
	}
	return Event{ID: raw.ID, Type: raw.Type, Object: raw.Data.Object}, nil
}

// DecodeSubscription decodes the event object as a subscription. The
// subscription id is required; the customer may be an id or an expanded
// customer object.
func (e Event) DecodeSubscription() (SubscriptionObject, error) {
	var raw struct {
		ID       string          `json:"id"`
		Customer json.RawMessage `json:"customer"`
		Status   string          `json:"status"`
	}
	if len(e.Object) == 0 {
		return SubscriptionObject{}, errors.Join(ErrMalformedEvent, errors.New("missing event object"))
	}
	if err := json.Unmarshal(e.Object, &raw); err != nil {
		return SubscriptionObject{}, errors.Join(ErrMalformedEvent, err)
	}
	if raw.ID == "" {
		return SubscriptionObject{}, errors.Join(ErrMalformedEvent, errors.New("missing subscription id"))
	}

	customer, err := decodeCustomerRef(raw.Customer)
	if err != nil {
		return SubscriptionObject{}, errors.Join(ErrMalformedEvent, err)
	}

	return SubscriptionObject{ID: raw.ID, Customer: customer, Status: raw.Status}, nil
}

func decodeCustomerRef(data json.RawMessage) (string, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return "", nil
	}
	if data[0] == '"' {
		var id string
		err := json.Unmarshal(data, &id)
		return id, err
	}
	var obj struct {
		ID string `json:"id"`
	}
	err := json.Unmarshal(data, &obj)
	return obj.ID, err
}
