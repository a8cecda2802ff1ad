// Package model contains domain models passed between layers.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidRecord is returned for a staff record outside the closed level sets.
var ErrInvalidRecord = errors.New("invalid staff record")

// EducationLevel is the highest completed degree band.
// Integer codes match the upstream cleaned schema ("edu": 1|2).
type EducationLevel int

const (
	EducationBachelorOrBelow EducationLevel = 1
	EducationGraduateOrAbove EducationLevel = 2
)

// Valid reports whether e is a known education level.
func (e EducationLevel) Valid() bool {
	return e == EducationBachelorOrBelow || e == EducationGraduateOrAbove
}

// IsGraduate reports whether e counts toward the graduate rate.
func (e EducationLevel) IsGraduate() bool { return e == EducationGraduateOrAbove }

func (e EducationLevel) String() string {
	switch e {
	case EducationBachelorOrBelow:
		return "bachelor_or_below"
	case EducationGraduateOrAbove:
		return "graduate_or_above"
	default:
		return fmt.Sprintf("education(%d)", int(e))
	}
}

// TitleLevel is the ordered professional title rank.
type TitleLevel int

const (
	TitleUnranked      TitleLevel = 1
	TitleAssociate     TitleLevel = 2
	TitleIntermediate  TitleLevel = 3
	TitleSenior        TitleLevel = 4
	TitleDistinguished TitleLevel = 5
)

// Valid reports whether t is within the ordered enumeration.
func (t TitleLevel) Valid() bool { return t >= TitleUnranked && t <= TitleDistinguished }

// IsSenior reports whether t counts toward the senior rate.
func (t TitleLevel) IsSenior() bool { return t >= TitleSenior }

func (t TitleLevel) String() string {
	switch t {
	case TitleUnranked:
		return "unranked"
	case TitleAssociate:
		return "associate"
	case TitleIntermediate:
		return "intermediate"
	case TitleSenior:
		return "senior"
	case TitleDistinguished:
		return "distinguished"
	default:
		return fmt.Sprintf("title(%d)", int(t))
	}
}

// Origin tags where a record came from. It never enters the scoring math.
type Origin int

const (
	OriginExisting Origin = iota
	OriginSimulated
)

func (o Origin) String() string {
	if o == OriginSimulated {
		return "simulated"
	}
	return "existing"
}

// MarshalJSON encodes the origin as its string label.
func (o Origin) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}

// UnmarshalJSON accepts "existing" or "simulated".
func (o *Origin) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("origin must be a string: %w", err)
	}
	switch s {
	case "", "existing":
		*o = OriginExisting
	case "simulated":
		*o = OriginSimulated
	default:
		return fmt.Errorf("unknown origin %q", s)
	}
	return nil
}

// StaffRecord represents one staff member, real or synthetic.
// JSON field names mirror the upstream cleaning collaborator's output.
type StaffRecord struct {
	Name      string         `json:"name,omitempty"` // display only, never scored
	Age       int            `json:"age"`
	Subject   string         `json:"subject"`
	Education EducationLevel `json:"edu"`
	Title     TitleLevel     `json:"titleLevel"`
	Origin    Origin         `json:"origin"`
}

// Validate checks the levels and age of r.
func (r StaffRecord) Validate() error {
	switch {
	case !r.Education.Valid():
		return fmt.Errorf("%w: education %d", ErrInvalidRecord, r.Education)
	case !r.Title.Valid():
		return fmt.Errorf("%w: title level %d", ErrInvalidRecord, r.Title)
	case r.Age <= 0:
		return fmt.Errorf("%w: age %d", ErrInvalidRecord, r.Age)
	}
	return nil
}

// ValidateAll checks every record and reports the first bad index.
func ValidateAll(records []StaffRecord) error {
	for i, r := range records {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
	}
	return nil
}

// CheckAges rejects records older than maxAge and reports the first bad
// index. A non-positive maxAge means no limit.
func CheckAges(records []StaffRecord, maxAge int) error {
	if maxAge <= 0 {
		return nil
	}
	for i, r := range records {
		if r.Age > maxAge {
			return fmt.Errorf("record %d: %w: age %d exceeds %d", i, ErrInvalidRecord, r.Age, maxAge)
		}
	}
	return nil
}

// Subjects returns the distinct subject labels in records, sorted.
func Subjects(records []StaffRecord) []string {
	seen := make(map[string]struct{}, len(records))
	out := make([]string, 0)
	for _, r := range records {
		if _, ok := seen[r.Subject]; ok {
			continue
		}
		seen[r.Subject] = struct{}{}
		out = append(out, r.Subject)
	}
	sort.Strings(out)
	return out
}

// Tag returns a copy of records with every origin set to o.
func Tag(records []StaffRecord, o Origin) []StaffRecord {
	out := make([]StaffRecord, len(records))
	for i, r := range records {
		r.Origin = o
		out[i] = r
	}
	return out
}
