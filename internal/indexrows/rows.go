package indexrows

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"worklist/internal/dataset"
)

// StringRow is an indexed string-valued attribute.
type StringRow struct {
	TagPath string
	Value   string
}

// DateTimeRow is an indexed date or date-time attribute. Value keeps the wall
// clock as written; UTC is the instant normalized to UTC.
type DateTimeRow struct {
	TagPath string
	Value   time.Time
	UTC     time.Time
}

// PersonNameRow is an indexed person name. Words holds the case-folded name
// components separated by single spaces.
type PersonNameRow struct {
	TagPath string
	Value   string
	Words   string
}

// Rows is the full set of extracted rows for one workitem.
type Rows struct {
	Strings     []StringRow
	DateTimes   []DateTimeRow
	PersonNames []PersonNameRow
}

// Len returns the total number of rows.
func (r Rows) Len() int {
	return len(r.Strings) + len(r.DateTimes) + len(r.PersonNames)
}

// WithoutPath returns a copy of r with every row for tagPath removed.
func (r Rows) WithoutPath(tagPath string) Rows {
	out := Rows{}
	for _, row := range r.Strings {
		if row.TagPath != tagPath {
			out.Strings = append(out.Strings, row)
		}
	}
	for _, row := range r.DateTimes {
		if row.TagPath != tagPath {
			out.DateTimes = append(out.DateTimes, row)
		}
	}
	for _, row := range r.PersonNames {
		if row.TagPath != tagPath {
			out.PersonNames = append(out.PersonNames, row)
		}
	}
	return out
}

// Build extracts rows for tags from ds. Values that cannot be parsed for
// their VR are skipped; the dataset itself has already passed validation.
func Build(ds *dataset.Dataset, tags []QueryTag) Rows {
	var rows Rows
	for _, qt := range tags {
		if len(qt.Path) == 0 {
			continue
		}
		path := qt.TagPath()
		seen := make(map[string]struct{})
		for _, value := range collect(ds, qt.Path) {
			if _, dup := seen[value]; dup {
				continue
			}
			seen[value] = struct{}{}
			switch qt.VR {
			case dataset.VRDA, dataset.VRDT:
				local, utc, err := ParseDateTime(value)
				if err != nil {
					continue
				}
				rows.DateTimes = append(rows.DateTimes, DateTimeRow{TagPath: path, Value: local, UTC: utc})
			case dataset.VRPN:
				normalized := norm.NFC.String(value)
				rows.PersonNames = append(rows.PersonNames, PersonNameRow{
					TagPath: path,
					Value:   normalized,
					Words:   nameWords(normalized),
				})
			default:
				rows.Strings = append(rows.Strings, StringRow{TagPath: path, Value: value})
			}
		}
	}
	return rows
}

// collect returns the first non-blank value of the leaf attribute in every
// item reached by path.
func collect(ds *dataset.Dataset, path []dataset.Tag) []string {
	if ds == nil {
		return nil
	}
	if len(path) == 1 {
		if value, ok := ds.String(path[0]); ok {
			return []string{value}
		}
		return nil
	}
	el, ok := ds.Get(path[0])
	if !ok || !el.IsSequence() {
		return nil
	}
	var out []string
	for _, item := range el.Items {
		out = append(out, collect(item, path[1:])...)
	}
	return out
}

func nameWords(name string) string {
	fold := cases.Fold()
	fields := strings.FieldsFunc(name, func(r rune) bool {
		return r == '^' || r == '=' || r == ' '
	})
	for i, f := range fields {
		fields[i] = fold.String(f)
	}
	return strings.Join(fields, " ")
}
