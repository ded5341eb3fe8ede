package testsupport

import (
	"fmt"
	"strings"
	"testing"

	"worklist/internal/dataset"
)

const validDatasetTemplate = `{
  "00001000": {"vr": "UI", "Value": ["%s"]},
  "00100010": {"vr": "PN", "Value": [{"Alphabetic": "Doe^Jane"}]},
  "00100020": {"vr": "LO", "Value": ["PID-001"]},
  "00100030": {"vr": "DA", "Value": ["19800101"]},
  "00100040": {"vr": "CS", "Value": ["F"]},
  "00080050": {"vr": "SH", "Value": ["ACC-001"]},
  "00080051": {"vr": "SQ", "Value": []},
  "00321033": {"vr": "LO", "Value": ["Radiology"]},
  "00380010": {"vr": "LO", "Value": ["ADM-001"]},
  "00380014": {"vr": "SQ", "Value": []},
  "00401001": {"vr": "SH", "Value": ["RP-001"]},
  "00404005": {"vr": "DT", "Value": ["20240105093000"]},
  "00404009": {"vr": "SQ", "Value": []},
  "00404011": {"vr": "DT", "Value": ["20240105120000"]},
  "00404018": {"vr": "SQ", "Value": [
    {"00080100": {"vr": "SH", "Value": ["CT-HEAD"]}, "00080102": {"vr": "SH", "Value": ["DCM"]}}
  ]},
  "00404025": {"vr": "SQ", "Value": [
    {"00080100": {"vr": "SH", "Value": ["STATION-1"]}}
  ]},
  "00404026": {"vr": "SQ", "Value": []},
  "00404027": {"vr": "SQ", "Value": []},
  "00404034": {"vr": "SQ", "Value": []},
  "00404041": {"vr": "CS", "Value": ["READY"]},
  "0040A370": {"vr": "SQ", "Value": [
    {"00080050": {"vr": "SH", "Value": ["ACC-001"]}, "00401001": {"vr": "SH", "Value": ["RP-001"]}}
  ]},
  "00741200": {"vr": "CS", "Value": ["MEDIUM"]},
  "00741202": {"vr": "LO", "Value": ["Worklist A"]},
  "00741204": {"vr": "LO", "Value": ["CT Head"]},
  "00741224": {"vr": "SQ", "Value": []}
}`

// ValidDatasetJSON returns a DICOM JSON creation dataset that passes
// validation, declaring uid as its AffectedSOPInstanceUID.
func ValidDatasetJSON(uid string) string {
	return fmt.Sprintf(validDatasetTemplate, uid)
}

// ValidDataset decodes ValidDatasetJSON(uid).
func ValidDataset(t testing.TB, uid string) *dataset.Dataset {
	t.Helper()

	ds, err := dataset.DecodeJSON(strings.NewReader(ValidDatasetJSON(uid)))
	if err != nil {
		t.Fatalf("decode valid dataset: %v", err)
	}
	return ds
}
