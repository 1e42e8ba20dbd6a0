// Package models defines the core domain entities for WeShare.
//
// A User owns exactly one Wallet and participates in Groups through
// Memberships. Payments, SettlementRecords and Receipts all hang off a
// Membership rather than the User directly, so a user's history in one
// group is independent of their history in another.
//
// Group lifecycle: a group is created open, accumulates Payments, then
// moves through settlement (SettlementRecords -> Receipts) and is closed
// once every receipt is fulfilled. Closed is terminal.
//
// All IDs are UUID strings and timestamps are Unix seconds.
package models
