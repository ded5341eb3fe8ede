package dataset

import (
	"sort"
	"strings"
)

// VR is a DICOM value representation code.
type VR string

// Value representations the core distinguishes.
const (
	VRCS VR = "CS"
	VRDA VR = "DA"
	VRDT VR = "DT"
	VRLO VR = "LO"
	VRPN VR = "PN"
	VRSH VR = "SH"
	VRSQ VR = "SQ"
	VRUI VR = "UI"
)

// Element is one attribute of a dataset. Sequence elements (VR SQ) use Items;
// all other elements use Values.
type Element struct {
	Tag    Tag
	VR     VR
	Values []string
	Items  []*Dataset
}

// IsSequence reports whether the element is a sequence container.
func (e *Element) IsSequence() bool {
	return e != nil && e.VR == VRSQ
}

// First returns the first non-blank value of a scalar element.
func (e *Element) First() (string, bool) {
	if e == nil {
		return "", false
	}
	for _, v := range e.Values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed, true
		}
	}
	return "", false
}

// Joined returns all values joined with the DICOM multi-value delimiter.
func (e *Element) Joined() string {
	if e == nil {
		return ""
	}
	return strings.Join(e.Values, `\`)
}

// Dataset is an immutable-by-convention collection of elements keyed by tag.
type Dataset struct {
	elements map[Tag]*Element
}

// New builds a dataset from elements. Later elements replace earlier ones with
// the same tag.
func New(elements ...*Element) *Dataset {
	ds := &Dataset{elements: make(map[Tag]*Element, len(elements))}
	for _, el := range elements {
		if el == nil {
			continue
		}
		ds.elements[el.Tag] = el
	}
	return ds
}

// Str builds a scalar element.
func Str(tag Tag, vr VR, values ...string) *Element {
	return &Element{Tag: tag, VR: vr, Values: values}
}

// Seq builds a sequence element.
func Seq(tag Tag, items ...*Dataset) *Element {
	return &Element{Tag: tag, VR: VRSQ, Items: items}
}

// Len returns the number of top-level elements.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.elements)
}

// Get returns the element for tag.
func (d *Dataset) Get(tag Tag) (*Element, bool) {
	if d == nil {
		return nil, false
	}
	el, ok := d.elements[tag]
	return el, ok
}

// Contains reports whether tag is present, empty or not.
func (d *Dataset) Contains(tag Tag) bool {
	_, ok := d.Get(tag)
	return ok
}

// String returns the first non-blank value for a scalar tag.
func (d *Dataset) String(tag Tag) (string, bool) {
	el, ok := d.Get(tag)
	if !ok || el.IsSequence() {
		return "", false
	}
	return el.First()
}

// Elements returns all top-level elements ordered by tag.
func (d *Dataset) Elements() []*Element {
	if d == nil {
		return nil
	}
	out := make([]*Element, 0, len(d.elements))
	for _, el := range d.elements {
		out = append(out, el)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tag < out[j].Tag })
	return out
}

// Sequences returns the top-level sequence elements ordered by tag.
func (d *Dataset) Sequences() []*Element {
	var out []*Element
	for _, el := range d.Elements() {
		if el.IsSequence() {
			out = append(out, el)
		}
	}
	return out
}

// With returns a copy of the dataset with el added or replaced. The receiver
// is left untouched.
func (d *Dataset) With(el *Element) *Dataset {
	clone := &Dataset{elements: make(map[Tag]*Element, d.Len()+1)}
	if d != nil {
		for tag, existing := range d.elements {
			clone.elements[tag] = existing
		}
	}
	if el != nil {
		clone.elements[el.Tag] = el
	}
	return clone
}
