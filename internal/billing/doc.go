// Package billing turns verified payment-provider events into subscription
// state changes, applying each event at most once.
//
// Two layers suppress replays. EventGuard is a bounded in-process set that
// short-circuits repeats seen by this instance. The durable ledger behind
// domain.BillingStore rejects repeats across restarts and instances, inside the
// same transaction that writes the subscription and the profile tier.
package billing
