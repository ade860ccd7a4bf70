// Package billing keeps an application's customer and subscription records in
// step with a hosted billing provider.
//
// The package is built around two collaborator interfaces:
//
//   - ProviderGateway wraps the billing provider API (customers, prices,
//     hosted checkout and billing portal sessions). StripeGateway is the
//     production implementation.
//   - RecordStore wraps the persistent customer and subscription tables.
//     Implementations live in pkg/ledger.
//
// On top of them sit four components:
//
//   - Provisioner maps an application user to exactly one provider customer,
//     creating the customer and its CustomerRecord on first use.
//   - CheckoutFactory resolves the customer and a plan price by lookup key and
//     returns a hosted subscription checkout URL.
//   - PortalFactory returns a billing portal URL for a user that already has
//     exactly one CustomerRecord.
//   - WebhookRouter applies subscription lifecycle events to the local
//     ledger. Dispatch never fails: every outcome is logged and counted so the
//     HTTP layer can always acknowledge the delivery.
//
// # Concurrency
//
// All components are safe for concurrent use. Two first-time resolves for the
// same user can both create a provider customer unless a Locker is supplied
// with WithLocker. NewLocalLocker serializes within one process,
// NewRedisLocker across instances.
//
// # Errors
//
// Failures are reported with the sentinel errors in errors.go joined with the
// underlying cause; test them with errors.Is.
package billing
