// Package workitem defines the Unified Procedure Step workitem model, the
// creation validation gate, the persistence contract implemented by
// internal/store, and the transition protocol that advances a workitem's
// procedure step state with a watermark compare-and-swap.
//
// The package holds no storage code. Service composes validation, row
// extraction and a Store; every state change re-reads the workitem and
// commits only if the watermark it observed is still current.
package workitem
