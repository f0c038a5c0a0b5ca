// Package aggregates implements the ledger aggregate over the account repo.
//
// Every balance write runs inside one transaction owned by this package and
// is guarded by the account version, so concurrent writers either serialize
// on the row or observe a conflict and re-run.
package aggregates
