// Package aggregates implements the identity aggregate: matching, merging and
// projecting contact clusters inside one store transaction.
//
// Table access goes through internal/data/repos; every write runs under
// executeWrite so errors are classified and reported to Hooks the same way.
package aggregates
