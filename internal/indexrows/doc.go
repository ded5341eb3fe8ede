// Package indexrows extracts the indexed attribute rows persisted alongside a
// workitem: plain strings, date-times with a UTC projection, and person names
// with a folded word form for matching.
package indexrows
