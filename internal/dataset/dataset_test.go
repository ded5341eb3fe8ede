package dataset_test

import (
	"strings"
	"testing"

	"worklist/internal/dataset"
)

func TestParseTagAcceptsBothNotations(t *testing.T) {
	for _, input := range []string{"00100020", "(0010,0020)", " 00100020 "} {
		tag, err := dataset.ParseTag(input)
		if err != nil {
			t.Fatalf("ParseTag(%q) failed: %v", input, err)
		}
		if tag != dataset.PatientID {
			t.Fatalf("ParseTag(%q) = %s, want %s", input, tag, dataset.PatientID)
		}
	}
	if _, err := dataset.ParseTag("0010"); err == nil {
		t.Fatal("expected error for short tag")
	}
}

func TestTagPathAndString(t *testing.T) {
	if got := dataset.ProcedureStepState.Path(); got != "00741000" {
		t.Fatalf("unexpected path %q", got)
	}
	if got := dataset.TagPath(dataset.ReferencedRequestSequence, dataset.AccessionNumber); got != "0040A370.00080050" {
		t.Fatalf("unexpected nested path %q", got)
	}
	if got := dataset.PatientID.String(); got != "PatientID (0010,0020)" {
		t.Fatalf("unexpected string %q", got)
	}
}

func TestDecodeJSON(t *testing.T) {
	payload := `{
		"00100010": {"vr": "PN", "Value": [{"Alphabetic": "Doe^Jane"}]},
		"00100020": {"vr": "LO", "Value": ["PID-1"]},
		"00741200": {"vr": "CS", "Value": ["MEDIUM"]},
		"00201208": {"vr": "IS", "Value": [12]},
		"00384014": {"vr": "SQ"},
		"00404025": {"vr": "SQ", "Value": [
			{"00080100": {"vr": "SH", "Value": ["STN1"]}},
			{"00080100": {"vr": "SH", "Value": ["STN2"]}}
		]}
	}`
	ds, err := dataset.DecodeJSON(strings.NewReader(payload))
	if err != nil {
		t.Fatalf("DecodeJSON failed: %v", err)
	}
	if name, _ := ds.String(dataset.PatientName); name != "Doe^Jane" {
		t.Fatalf("unexpected patient name %q", name)
	}
	if n, _ := ds.String(dataset.NewTag(0x0020, 0x1208)); n != "12" {
		t.Fatalf("unexpected numeric value %q", n)
	}
	empty, ok := ds.Get(dataset.NewTag(0x0038, 0x4014))
	if !ok || !empty.IsSequence() || len(empty.Items) != 0 {
		t.Fatalf("expected empty sequence, got %#v", empty)
	}
	stations, ok := ds.Get(dataset.ScheduledStationNameCodeSequence)
	if !ok || len(stations.Items) != 2 {
		t.Fatalf("expected two station items, got %#v", stations)
	}
	if code, _ := stations.Items[1].String(dataset.CodeValue); code != "STN2" {
		t.Fatalf("unexpected nested value %q", code)
	}
	if got := len(ds.Sequences()); got != 2 {
		t.Fatalf("expected 2 sequences, got %d", got)
	}
}

func TestDecodeJSONRejectsMissingVR(t *testing.T) {
	if _, err := dataset.DecodeJSON(strings.NewReader(`{"00100020": {"Value": ["x"]}}`)); err == nil {
		t.Fatal("expected error for attribute without vr")
	}
}

func TestWithLeavesReceiverUntouched(t *testing.T) {
	base := dataset.New(dataset.Str(dataset.PatientID, dataset.VRLO, "A"))
	next := base.With(dataset.Str(dataset.PatientID, dataset.VRLO, "B"))
	if v, _ := base.String(dataset.PatientID); v != "A" {
		t.Fatalf("receiver mutated: %q", v)
	}
	if v, _ := next.String(dataset.PatientID); v != "B" {
		t.Fatalf("copy not updated: %q", v)
	}
}
