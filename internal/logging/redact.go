package logging

import (
	"log/slog"
	"regexp"

	"github.com/m-mizutani/masq"
)

// Attribute keys that carry patient identifiers and are always redacted.
const (
	FieldPatientName      = "patient_name"
	FieldPatientID        = "patient_id"
	FieldPatientBirthDate = "patient_birth_date"
	FieldAdmissionID      = "admission_id"
)

// personNamePattern matches DICOM person-name values with component
// separators ("Doe^Jane") that slip into free-form attributes.
var personNamePattern = regexp.MustCompile(`\b[A-Za-z][A-Za-z'\-]*\^[A-Za-z][A-Za-z'\-^]*\b`)

func newRedactAttr() func([]string, slog.Attr) slog.Attr {
	return masq.New(
		masq.WithFieldName(FieldPatientName),
		masq.WithFieldName(FieldPatientID),
		masq.WithFieldName(FieldPatientBirthDate),
		masq.WithFieldName(FieldAdmissionID),
		masq.WithFieldPrefix("patient_"),
		masq.WithRegex(personNamePattern),
	)
}
