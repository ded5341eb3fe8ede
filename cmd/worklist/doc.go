// Package main hosts the worklist CLI entrypoint and command graph.
//
// The Cobra command tree is an operator surface over the workitem store:
// schema inspection and migration, adding workitems from DICOM JSON files,
// showing stored metadata and driving procedure step transitions. Commands
// resolve configuration and logging once through commandContext and leave
// the domain rules to internal/workitem and internal/store.
package main
