// Package preflight provides readiness checks for the filesystem paths and
// database the workitem store depends on.
//
// The CLI "worklist doctor" command runs RunAll and renders each Result.
// Individual checks are exported so callers can run a subset.
package preflight
