package indexrows

import (
	"worklist/internal/dataset"
)

// QueryTag is an attribute path indexed for workitems. Nested paths walk
// through sequence items.
type QueryTag struct {
	Path []dataset.Tag
	VR   dataset.VR
}

// TagPath returns the dotted hex path persisted in the tag_path column.
func (q QueryTag) TagPath() string {
	return dataset.TagPath(q.Path...)
}

func tag(vr dataset.VR, path ...dataset.Tag) QueryTag {
	return QueryTag{Path: path, VR: vr}
}

// StatePath is the tag path of the procedure step state row.
var StatePath = dataset.ProcedureStepState.Path()

// DefaultWorkitemTags lists the attributes indexed for every workitem.
var DefaultWorkitemTags = []QueryTag{
	tag(dataset.VRPN, dataset.PatientName),
	tag(dataset.VRLO, dataset.PatientID),
	tag(dataset.VRDT, dataset.ScheduledProcedureStepStartDateTime),
	tag(dataset.VRDT, dataset.ExpectedCompletionDateTime),
	tag(dataset.VRCS, dataset.ProcedureStepState),
	tag(dataset.VRLO, dataset.WorklistLabel),
	tag(dataset.VRCS, dataset.InputReadinessState),
	tag(dataset.VRSH, dataset.ReferencedRequestSequence, dataset.AccessionNumber),
	tag(dataset.VRSH, dataset.ReferencedRequestSequence, dataset.RequestedProcedureID),
	tag(dataset.VRSH, dataset.ScheduledWorkitemCodeSequence, dataset.CodeValue),
	tag(dataset.VRSH, dataset.ScheduledStationNameCodeSequence, dataset.CodeValue),
	tag(dataset.VRSH, dataset.ScheduledStationClassCodeSequence, dataset.CodeValue),
	tag(dataset.VRSH, dataset.ScheduledStationGeographicLocationCodeSequence, dataset.CodeValue),
	tag(dataset.VRSH, dataset.ScheduledHumanPerformersSequence, dataset.HumanPerformerCodeSequence, dataset.CodeValue),
}
