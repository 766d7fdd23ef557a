// Package domain defines the core domain types and interfaces.
//
// Concept-oriented files (profile.go, billing.go, messaging.go, ...) hold shared
// types and the contracts adapters implement. No implementation code lives here
// beyond small value-type helpers, which keeps adapters and app free of cycles.
package domain
