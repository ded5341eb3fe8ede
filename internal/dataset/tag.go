package dataset

import (
	"fmt"
	"strconv"
	"strings"
)

// Tag identifies a DICOM attribute as group<<16 | element.
type Tag uint32

// NewTag builds a tag from its group and element numbers.
func NewTag(group, element uint16) Tag {
	return Tag(uint32(group)<<16 | uint32(element))
}

// Group returns the tag's group number.
func (t Tag) Group() uint16 { return uint16(t >> 16) }

// Element returns the tag's element number.
func (t Tag) Element() uint16 { return uint16(t) }

// Path renders the tag as the eight upper-case hex digits used for attribute
// paths in storage and in DICOM JSON.
func (t Tag) Path() string {
	return fmt.Sprintf("%08X", uint32(t))
}

// String renders the tag with its keyword when known, e.g. "PatientID (0010,0020)".
func (t Tag) String() string {
	if name, ok := keywords[t]; ok {
		return fmt.Sprintf("%s (%04X,%04X)", name, t.Group(), t.Element())
	}
	return fmt.Sprintf("(%04X,%04X)", t.Group(), t.Element())
}

// Keyword returns the DICOM keyword for well-known tags.
func (t Tag) Keyword() string {
	return keywords[t]
}

// ParseTag accepts "GGGGEEEE" or "(GGGG,EEEE)" notation.
func ParseTag(value string) (Tag, error) {
	trimmed := strings.TrimSpace(value)
	trimmed = strings.TrimPrefix(trimmed, "(")
	trimmed = strings.TrimSuffix(trimmed, ")")
	trimmed = strings.ReplaceAll(trimmed, ",", "")
	if len(trimmed) != 8 {
		return 0, fmt.Errorf("parse tag %q: expected 8 hex digits", value)
	}
	n, err := strconv.ParseUint(trimmed, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("parse tag %q: %w", value, err)
	}
	return Tag(n), nil
}

// TagPath joins nested tags into an attribute path such as "0040A370.00080050".
func TagPath(tags ...Tag) string {
	parts := make([]string, 0, len(tags))
	for _, tag := range tags {
		parts = append(parts, tag.Path())
	}
	return strings.Join(parts, ".")
}
