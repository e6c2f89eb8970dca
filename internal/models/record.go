package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DegreeType is the normalized degree an applicant applied for.
type DegreeType string

const (
	DegreePhD   DegreeType = "PhD"
	DegreeMS    DegreeType = "MS"
	DegreeMA    DegreeType = "MA"
	DegreeOther DegreeType = "Other"
)

// DecisionStatus is the normalized admission outcome.
type DecisionStatus string

const (
	DecisionAccepted   DecisionStatus = "Accepted"
	DecisionRejected   DecisionStatus = "Rejected"
	DecisionWaitlisted DecisionStatus = "Waitlisted"
	DecisionOther      DecisionStatus = "Other"
)

// Nationality is the applicant classification reported on the survey.
type Nationality string

const (
	NationalityAmerican      Nationality = "American"
	NationalityInternational Nationality = "International"
	NationalityOther         Nationality = "Other"
)

// Inclusive bounds for numeric fields.
const (
	GPAMin   = 0.0
	GPAMax   = 4.0
	GREMin   = 130
	GREMax   = 170
	GREAWMin = 0.0
	GREAWMax = 6.0
)

// AdmissionRecord is the validated entity persisted by a store.
// Records are immutable once built by the normalizer.
type AdmissionRecord struct {
	Institution    string         `json:"institution"`
	Program        string         `json:"program"`
	DegreeType     DegreeType     `json:"degree_type"`
	DecisionStatus DecisionStatus `json:"decision_status"`
	DecisionDate   *Date          `json:"decision_date,omitempty"`
	DateAdded      *Date          `json:"date_added,omitempty"`
	Term           string         `json:"term,omitempty"`
	GPA            *float64       `json:"gpa,omitempty"`
	GREQuant       *int           `json:"gre_quant,omitempty"`
	GREVerbal      *int           `json:"gre_verbal,omitempty"`
	GREAW          *float64       `json:"gre_aw,omitempty"`
	Nationality    Nationality    `json:"nationality"`
	Comment        string         `json:"comment,omitempty"`
	SourceURL      string         `json:"source_url"`
}

// Date is a calendar date serialized as YYYY-MM-DD.
type Date struct {
	time.Time
}

const DateLayout = "2006-01-02"

// NewDate builds a UTC calendar date.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses an ISO date.
func ParseDate(value string) (Date, error) {
	ts, err := time.Parse(DateLayout, strings.TrimSpace(value))
	if err != nil {
		return Date{}, err
	}
	return Date{Time: ts}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("date: %w", err)
	}
	if strings.TrimSpace(raw) == "" {
		d.Time = time.Time{}
		return nil
	}
	parsed, err := ParseDate(raw)
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}
	*d = parsed
	return nil
}
