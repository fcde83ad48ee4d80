// Package aggs provides the aggregation functions that combine leaf values
// and child aggregates into tree nodes. Hash based aggregators domain
// separate leaves, interior nodes, left only nodes and the empty value.
package aggs
