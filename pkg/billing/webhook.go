package billing

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrymomot/billingsync/pkg/logger"
)

// Outcome is how the router disposed of an event.
type Outcome string

const (
	OutcomeApplied      Outcome = "applied"
	OutcomeIgnored      Outcome = "ignored"
	OutcomeUnreconciled Outcome = "unreconciled"
	OutcomeFailed       Outcome = "failed"
	OutcomeMalformed    Outcome = "malformed"
)

// otherEventLabel is the metric label for event types without a handler.
// Event types come from the request body and must not mint new series.
const otherEventLabel = "other"

// EventHandler applies one event type to the ledger. A non-nil error is
// logged by the router; the returned outcome is kept unless it is empty, in
// which case OutcomeFailed is recorded.
type EventHandler func(ctx context.Context, ev Event) (Outcome, error)

// WebhookRouter dispatches provider events through a handler table. Unknown
// event types are ignored.
type WebhookRouter struct {
	store    RecordStore
	handlers map[EventType]EventHandler
	opts     options
}

func NewWebhookRouter(store RecordStore, opts ...Option) *WebhookRouter {
	if store == nil {
		panic("billing: RecordStore is required")
	}
	r := &WebhookRouter{
		store: store,
		opts:  newOptions("webhook", opts),
	}
	r.handlers = map[EventType]EventHandler{
		EventSubscriptionCreated:      r.subscriptionCreated,
		EventSubscriptionDeleted:      r.subscriptionDeleted,
		EventSubscriptionUpdated:      ignoreEvent,
		EventSubscriptionTrialWillEnd: ignoreEvent,
	}
	return r
}

// Handle registers or replaces the handler for t. It is not safe to call
// concurrently with Dispatch; register handlers before serving.
func (r *WebhookRouter) Handle(t EventType, h EventHandler) {
	if h == nil {
		delete(r.handlers, t)
		return
	}
	r.handlers[t] = h
}

// Dispatch applies ev and reports the outcome. It never fails: errors are
// logged and counted so the delivery can always be acknowledged.
func (r *WebhookRouter) Dispatch(ctx context.Context, ev Event) Outcome {
	start := time.Now()
	log := r.opts.log.With(logger.EventID(ev.ID), logger.EventType(string(ev.Type)))

	outcome := OutcomeIgnored
	label := otherEventLabel
	if h, ok := r.handlers[ev.Type]; ok {
		label = string(ev.Type)
		var err error
		outcome, err = h(ctx, ev)
		if err != nil {
			if outcome == "" || outcome == OutcomeApplied {
				outcome = OutcomeFailed
			}
			log.ErrorContext(ctx, "webhook event not applied", logger.Outcome(string(outcome)), logger.Error(err))
		}
	}

	switch outcome {
	case OutcomeApplied:
		log.InfoContext(ctx, "webhook event applied")
	case OutcomeIgnored:
		log.DebugContext(ctx, "webhook event ignored")
	}

	r.opts.metrics.webhookHandled(label, outcome, time.Since(start))
	return outcome
}

// Malformed records a payload that could not be decoded into an Event.
func (r *WebhookRouter) Malformed(ctx context.Context, err error) {
	r.opts.log.WarnContext(ctx, "malformed webhook payload acknowledged", logger.Error(err))
	r.opts.metrics.webhookHandled(otherEventLabel, OutcomeMalformed, 0)
}

func ignoreEvent(context.Context, Event) (Outcome, error) {
	return OutcomeIgnored, nil
}

func (r *WebhookRouter) subscriptionCreated(ctx context.Context, ev Event) (Outcome, error) {
	sub, err := ev.DecodeSubscription()
	if err != nil {
		return OutcomeMalformed, err
	}
	if sub.Customer == "" {
		return OutcomeMalformed, errors.Join(ErrMalformedEvent, errors.New("missing subscription customer"))
	}

	owners, err := r.store.CustomersByProviderID(ctx, sub.Customer)
	if err != nil {
		return OutcomeFailed, errors.Join(ErrStorageUnavailable, err)
	}
	if len(owners) == 0 {
		r.opts.log.WarnContext(ctx, "subscription for unknown customer skipped",
			logger.EventID(ev.ID),
			logger.SubscriptionID(sub.ID),
			logger.CustomerID(sub.Customer),
			logger.Outcome(string(OutcomeUnreconciled)),
		)
		return OutcomeUnreconciled, nil
	}

	rec := SubscriptionRecord{
		ID:        sub.ID,
		UserID:    owners[0].UserID,
		CreatedAt: time.Now().UTC(),
	}
	if err := r.store.InsertSubscription(ctx, rec); err != nil {
		return OutcomeFailed, errors.Join(ErrStorageUnavailable, err)
	}
	return OutcomeApplied, nil
}

func (r *WebhookRouter) subscriptionDeleted(ctx context.Context, ev Event) (Outcome, error) {
	sub, err := ev.DecodeSubscription()
	if err != nil {
		return OutcomeMalformed, err
	}
	if err := r.store.DeleteSubscription(ctx, sub.ID); err != nil {
		return OutcomeFailed, errors.Join(ErrStorageUnavailable, err)
	}
	return OutcomeApplied, nil
}
