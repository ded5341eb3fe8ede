package workitem

import (
	"math/big"
	"strings"

	"github.com/google/uuid"

	"worklist/internal/dataset"
)

const maxUIDLength = 64

// ValidUID reports whether uid is a syntactically valid DICOM UID: at most
// 64 characters of dot-separated numeric components without leading zeros.
func ValidUID(uid string) bool {
	if uid == "" || len(uid) > maxUIDLength {
		return false
	}
	for _, component := range strings.Split(uid, ".") {
		if component == "" {
			return false
		}
		if len(component) > 1 && component[0] == '0' {
			return false
		}
		for _, r := range component {
			if r < '0' || r > '9' {
				return false
			}
		}
	}
	return true
}

// ResolveUID returns the workitem UID for a creation request: the request
// UID when given, otherwise the dataset's AffectedSOPInstanceUID.
func ResolveUID(ds *dataset.Dataset, requestUID string) string {
	if uid := strings.TrimSpace(requestUID); uid != "" {
		return uid
	}
	uid, _ := ds.String(dataset.AffectedSOPInstanceUID)
	return uid
}

// NewUID derives a UUID-based UID under the 2.25 root.
func NewUID() string {
	id := uuid.New()
	n := new(big.Int).SetBytes(id[:])
	return "2.25." + n.String()
}
