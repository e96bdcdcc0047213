// Package core contains the seeding domain contracts: user records, batches,
// discovery documents, token responses, configuration, and the error kinds
// shared by the token and reconciliation flows. Adapters depend on this
// package; core does not depend on any transport or store.
package core
