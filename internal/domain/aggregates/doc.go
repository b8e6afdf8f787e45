// Package aggregates defines the identity aggregate contract, its inputs and
// projections, and the error codes every write reports.
package aggregates
