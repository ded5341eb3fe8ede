// Package dataset models the tagged attribute container that carries a
// workitem's DICOM attributes into the store.
//
// A Dataset maps attribute tags to elements. Scalar elements hold one or more
// string values; sequence elements hold zero or more nested datasets. The
// workitem core only reads datasets, so the type exposes lookups and ordered
// iteration but no in-place mutation once built.
//
// DecodeJSON understands the DICOM JSON model (PS3.18 Annex F) closely enough
// for the CLI and tests to load workitem payloads from disk.
package dataset
