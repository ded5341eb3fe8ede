package workitem

import (
	"fmt"
	"strings"

	"worklist/internal/dataset"
)

// RequiredAttributes must be present with a non-empty value on creation.
// ProcedureStepState is absent on purpose; a missing state means SCHEDULED.
var RequiredAttributes = []dataset.Tag{
	dataset.WorklistLabel,
	dataset.ExpectedCompletionDateTime,
	dataset.InputReadinessState,
	dataset.PatientName,
	dataset.PatientID,
	dataset.PatientBirthDate,
	dataset.PatientSex,
	dataset.AdmissionID,
	dataset.AccessionNumber,
	dataset.RequestedProcedureID,
	dataset.RequestingService,
	dataset.ProcedureStepLabel,
	dataset.ScheduledProcedureStepPriority,
	dataset.ScheduledProcedureStepStartDateTime,
}

// RequiredSequences must be present as sequence containers on creation. They
// may hold zero items.
var RequiredSequences = []dataset.Tag{
	dataset.IssuerOfAdmissionIDSequence,
	dataset.ReferencedRequestSequence,
	dataset.IssuerOfAccessionNumberSequence,
	dataset.ScheduledWorkitemCodeSequence,
	dataset.ScheduledStationNameCodeSequence,
	dataset.ScheduledStationClassCodeSequence,
	dataset.ScheduledStationGeographicLocationCodeSequence,
	dataset.ScheduledHumanPerformersSequence,
	dataset.HumanPerformerCodeSequence,
	dataset.ReplacedProcedureStepSequence,
}

// Validate checks a creation dataset. Rules run in a fixed order and the
// first failure is returned as a *DatasetValidationError.
func Validate(ds *dataset.Dataset, workitemUID string) error {
	if ds == nil {
		return &DatasetValidationError{Code: ReasonMissingAttribute, Message: "dataset is empty"}
	}
	if err := validateRequired(ds); err != nil {
		return err
	}
	if err := validateAffectedSOPInstance(ds, workitemUID); err != nil {
		return err
	}
	if err := validateInitialState(ds); err != nil {
		return err
	}
	return validateSequenceDuplicates(ds)
}

func validateRequired(ds *dataset.Dataset) error {
	for _, tag := range RequiredAttributes {
		if _, ok := ds.String(tag); !ok {
			return &DatasetValidationError{
				Code:    ReasonMissingAttribute,
				Tag:     tag,
				Message: fmt.Sprintf("required attribute %s is missing or empty", tag),
			}
		}
	}
	for _, tag := range RequiredSequences {
		el, ok := ds.Get(tag)
		if !ok || !el.IsSequence() {
			return &DatasetValidationError{
				Code:    ReasonMissingSequence,
				Tag:     tag,
				Message: fmt.Sprintf("required sequence %s is missing", tag),
			}
		}
	}
	return nil
}

func validateAffectedSOPInstance(ds *dataset.Dataset, workitemUID string) error {
	workitemUID = strings.TrimSpace(workitemUID)
	declared, hasDeclared := ds.String(dataset.AffectedSOPInstanceUID)
	if workitemUID == "" && !hasDeclared {
		return &DatasetValidationError{
			Code:    ReasonMissingAttribute,
			Tag:     dataset.AffectedSOPInstanceUID,
			Message: fmt.Sprintf("%s is required when the request does not name the workitem", dataset.AffectedSOPInstanceUID),
		}
	}
	if workitemUID != "" && hasDeclared && declared != workitemUID {
		return &DatasetValidationError{
			Code:    ReasonUIDMismatch,
			Tag:     dataset.AffectedSOPInstanceUID,
			Message: fmt.Sprintf("%s %q does not match workitem %q", dataset.AffectedSOPInstanceUID, declared, workitemUID),
		}
	}
	uid := ResolveUID(ds, workitemUID)
	if !ValidUID(uid) {
		return &DatasetValidationError{
			Code:    ReasonInvalidUID,
			Tag:     dataset.AffectedSOPInstanceUID,
			Message: fmt.Sprintf("workitem uid %q is not a valid UID", uid),
		}
	}
	return nil
}

func validateInitialState(ds *dataset.Dataset) error {
	el, ok := ds.Get(dataset.ProcedureStepState)
	if !ok || el.IsSequence() {
		return nil
	}
	values := trimmedValues(el)
	if len(values) == 0 {
		return nil
	}
	raw := strings.Join(values, `\`)
	if len(values) > 1 || ProcedureStepState(raw) != StateScheduled {
		return &DatasetValidationError{
			Code:    ReasonInvalidProcedureStepState,
			Tag:     dataset.ProcedureStepState,
			Message: fmt.Sprintf("%s must be %s at creation, got %q", dataset.ProcedureStepState, StateScheduled, raw),
		}
	}
	return nil
}

// validateSequenceDuplicates rejects a sequence whose items repeat the same
// attribute value. Each sequence is checked on its own.
func validateSequenceDuplicates(ds *dataset.Dataset) error {
	for _, seq := range ds.Sequences() {
		seen := make(map[[2]string]struct{})
		for _, item := range seq.Items {
			for _, el := range item.Elements() {
				if el.IsSequence() {
					continue
				}
				path := el.Tag.Path()
				value := strings.Join(trimmedValues(el), `\`)
				key := [2]string{path, value}
				if _, ok := seen[key]; ok {
					return &DatasetValidationError{
						Code:    ReasonDuplicateValueInSequence,
						Tag:     seq.Tag,
						Message: fmt.Sprintf("duplicate value %q for attribute %s in sequence %s", value, path, seq.Tag),
					}
				}
				seen[key] = struct{}{}
			}
		}
	}
	return nil
}

// trimmedValues returns the element's values without DICOM padding, dropping
// blank ones.
func trimmedValues(el *dataset.Element) []string {
	var out []string
	for _, v := range el.Values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
