// Package query contains the read-side handlers. Queries never mutate
// state; they assemble views from the repositories for the HTTP layer.
package query
