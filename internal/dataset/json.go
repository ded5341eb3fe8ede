package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

type jsonElement struct {
	VR    string            `json:"vr"`
	Value []json.RawMessage `json:"Value,omitempty"`
}

type jsonPersonName struct {
	Alphabetic  string `json:"Alphabetic"`
	Ideographic string `json:"Ideographic"`
	Phonetic    string `json:"Phonetic"`
}

// DecodeJSON reads a single dataset in the DICOM JSON model.
func DecodeJSON(r io.Reader) (*Dataset, error) {
	var raw map[string]jsonElement
	decoder := json.NewDecoder(r)
	decoder.UseNumber()
	if err := decoder.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode dataset json: %w", err)
	}
	return fromJSON(raw)
}

// UnmarshalJSON implements json.Unmarshaler for the DICOM JSON model.
func (d *Dataset) UnmarshalJSON(data []byte) error {
	decoded, err := DecodeJSON(bytes.NewReader(data))
	if err != nil {
		return err
	}
	d.elements = decoded.elements
	return nil
}

func fromJSON(raw map[string]jsonElement) (*Dataset, error) {
	ds := &Dataset{elements: make(map[Tag]*Element, len(raw))}
	for key, value := range raw {
		tag, err := ParseTag(key)
		if err != nil {
			return nil, err
		}
		el, err := elementFromJSON(tag, value)
		if err != nil {
			return nil, err
		}
		ds.elements[tag] = el
	}
	return ds, nil
}

func elementFromJSON(tag Tag, raw jsonElement) (*Element, error) {
	vr := VR(strings.ToUpper(strings.TrimSpace(raw.VR)))
	if vr == "" {
		return nil, fmt.Errorf("attribute %s: missing vr", tag.Path())
	}
	el := &Element{Tag: tag, VR: vr}

	switch vr {
	case VRSQ:
		for i, item := range raw.Value {
			var nested map[string]jsonElement
			decoder := json.NewDecoder(bytes.NewReader(item))
			decoder.UseNumber()
			if err := decoder.Decode(&nested); err != nil {
				return nil, fmt.Errorf("attribute %s item %d: %w", tag.Path(), i, err)
			}
			child, err := fromJSON(nested)
			if err != nil {
				return nil, err
			}
			el.Items = append(el.Items, child)
		}
	case VRPN:
		for i, item := range raw.Value {
			var name jsonPersonName
			if err := json.Unmarshal(item, &name); err != nil {
				return nil, fmt.Errorf("attribute %s value %d: %w", tag.Path(), i, err)
			}
			el.Values = append(el.Values, joinPersonName(name))
		}
	default:
		for i, item := range raw.Value {
			value, err := scalarFromJSON(item)
			if err != nil {
				return nil, fmt.Errorf("attribute %s value %d: %w", tag.Path(), i, err)
			}
			el.Values = append(el.Values, value)
		}
	}
	return el, nil
}

func scalarFromJSON(item json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(item)
	if bytes.Equal(trimmed, []byte("null")) {
		return "", nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return "", fmt.Errorf("unsupported value %s", string(trimmed))
	}
	return n.String(), nil
}

func joinPersonName(name jsonPersonName) string {
	groups := []string{name.Alphabetic, name.Ideographic, name.Phonetic}
	for len(groups) > 1 && groups[len(groups)-1] == "" {
		groups = groups[:len(groups)-1]
	}
	return strings.Join(groups, "=")
}
