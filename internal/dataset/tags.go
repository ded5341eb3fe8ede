package dataset

// Well-known attributes read by the workitem core.
var (
	AffectedSOPInstanceUID = NewTag(0x0000, 0x1000)

	AccessionNumber                 = NewTag(0x0008, 0x0050)
	IssuerOfAccessionNumberSequence = NewTag(0x0008, 0x0051)
	CodeValue                       = NewTag(0x0008, 0x0100)
	CodingSchemeDesignator          = NewTag(0x0008, 0x0102)
	CodeMeaning                     = NewTag(0x0008, 0x0104)
	SOPClassUID                     = NewTag(0x0008, 0x0016)
	SOPInstanceUID                  = NewTag(0x0008, 0x0018)
	TransactionUID                  = NewTag(0x0008, 0x1195)

	PatientName      = NewTag(0x0010, 0x0010)
	PatientID        = NewTag(0x0010, 0x0020)
	PatientBirthDate = NewTag(0x0010, 0x0030)
	PatientSex       = NewTag(0x0010, 0x0040)

	RequestingService = NewTag(0x0032, 0x1033)

	AdmissionID                 = NewTag(0x0038, 0x0010)
	IssuerOfAdmissionIDSequence = NewTag(0x0038, 0x0014)

	RequestedProcedureID                           = NewTag(0x0040, 0x1001)
	ScheduledProcedureStepStartDateTime            = NewTag(0x0040, 0x4005)
	HumanPerformerCodeSequence                     = NewTag(0x0040, 0x4009)
	ExpectedCompletionDateTime                     = NewTag(0x0040, 0x4011)
	ScheduledWorkitemCodeSequence                  = NewTag(0x0040, 0x4018)
	ScheduledStationNameCodeSequence               = NewTag(0x0040, 0x4025)
	ScheduledStationClassCodeSequence              = NewTag(0x0040, 0x4026)
	ScheduledStationGeographicLocationCodeSequence = NewTag(0x0040, 0x4027)
	ScheduledHumanPerformersSequence               = NewTag(0x0040, 0x4034)
	HumanPerformerName                             = NewTag(0x0040, 0x4037)
	InputReadinessState                            = NewTag(0x0040, 0x4041)
	ReferencedRequestSequence                      = NewTag(0x0040, 0xA370)

	ProcedureStepState             = NewTag(0x0074, 0x1000)
	ScheduledProcedureStepPriority = NewTag(0x0074, 0x1200)
	WorklistLabel                  = NewTag(0x0074, 0x1202)
	ProcedureStepLabel             = NewTag(0x0074, 0x1204)
	ReplacedProcedureStepSequence  = NewTag(0x0074, 0x1224)
)

var keywords = map[Tag]string{
	AffectedSOPInstanceUID:                         "AffectedSOPInstanceUID",
	AccessionNumber:                                "AccessionNumber",
	IssuerOfAccessionNumberSequence:                "IssuerOfAccessionNumberSequence",
	CodeValue:                                      "CodeValue",
	CodingSchemeDesignator:                         "CodingSchemeDesignator",
	CodeMeaning:                                    "CodeMeaning",
	SOPClassUID:                                    "SOPClassUID",
	SOPInstanceUID:                                 "SOPInstanceUID",
	TransactionUID:                                 "TransactionUID",
	PatientName:                                    "PatientName",
	PatientID:                                      "PatientID",
	PatientBirthDate:                               "PatientBirthDate",
	PatientSex:                                     "PatientSex",
	RequestingService:                              "RequestingService",
	AdmissionID:                                    "AdmissionID",
	IssuerOfAdmissionIDSequence:                    "IssuerOfAdmissionIDSequence",
	RequestedProcedureID:                           "RequestedProcedureID",
	ScheduledProcedureStepStartDateTime:            "ScheduledProcedureStepStartDateTime",
	HumanPerformerCodeSequence:                     "HumanPerformerCodeSequence",
	ExpectedCompletionDateTime:                     "ExpectedCompletionDateTime",
	ScheduledWorkitemCodeSequence:                  "ScheduledWorkitemCodeSequence",
	ScheduledStationNameCodeSequence:               "ScheduledStationNameCodeSequence",
	ScheduledStationClassCodeSequence:              "ScheduledStationClassCodeSequence",
	ScheduledStationGeographicLocationCodeSequence: "ScheduledStationGeographicLocationCodeSequence",
	ScheduledHumanPerformersSequence:               "ScheduledHumanPerformersSequence",
	HumanPerformerName:                             "HumanPerformerName",
	InputReadinessState:                            "InputReadinessState",
	ReferencedRequestSequence:                      "ReferencedRequestSequence",
	ProcedureStepState:                             "ProcedureStepState",
	ScheduledProcedureStepPriority:                 "ScheduledProcedureStepPriority",
	WorklistLabel:                                  "WorklistLabel",
	ProcedureStepLabel:                             "ProcedureStepLabel",
	ReplacedProcedureStepSequence:                  "ReplacedProcedureStepSequence",
}
