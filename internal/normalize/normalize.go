// Package normalize turns raw listing fields into validated admission records.
//
// Record never fails with an error. A raw record either becomes an
// AdmissionRecord or a Rejection carrying a reason code. Optional fields that
// are present but unusable (out of range, unparseable) are dropped as absent
// and listed in Result.Dropped; they never reject the record and are never
// clamped into range.
package normalize

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jimezsa/admitscrape/internal/models"
)

type Reason string

const (
	ReasonMissingRequired Reason = "missing_required"
	ReasonInvalidEnum     Reason = "invalid_enum"
	ReasonInvalidValue    Reason = "invalid_value"
)

type Rejection struct {
	Reason Reason
	Field  string
	Detail string
}

func (r Rejection) String() string {
	if r.Detail == "" {
		return fmt.Sprintf("%s: %s", r.Reason, r.Field)
	}
	return fmt.Sprintf("%s: %s (%s)", r.Reason, r.Field, r.Detail)
}

type Result struct {
	Record    *models.AdmissionRecord
	Rejection *Rejection
	Dropped   []string
}

func (r Result) Accepted() bool {
	return r.Rejection == nil && r.Record != nil
}

// Degraded reports an accepted record that lost at least one optional field.
func (r Result) Degraded() bool {
	return r.Accepted() && len(r.Dropped) > 0
}

type Options struct {
	// Now resolves yearless dates when a record has no date added.
	// Defaults to time.Now.
	Now func() time.Time
}

// Record validates raw and builds an admission record from it.
func Record(raw models.RawRecord, opts Options) Result {
	institution := CleanText(raw.Get(models.FieldInstitution))
	program := CleanText(raw.Get(models.FieldProgram))
	decision := CleanText(raw.Get(models.FieldDecision))
	sourceURL := strings.TrimSpace(raw.Get(models.FieldSourceURL))

	for _, required := range []struct {
		field string
		value string
	}{
		{models.FieldInstitution, institution},
		{models.FieldProgram, program},
		{models.FieldDecision, decision},
		{models.FieldSourceURL, sourceURL},
	} {
		if required.value == "" {
			return reject(ReasonMissingRequired, required.field, "")
		}
	}

	status, ok := DecisionStatus(decision)
	if !ok {
		return reject(ReasonInvalidEnum, models.FieldDecision, decision)
	}
	if err := validateSourceURL(sourceURL); err != nil {
		return reject(ReasonInvalidValue, models.FieldSourceURL, err.Error())
	}

	rec := models.AdmissionRecord{
		Institution:    institution,
		Program:        program,
		DegreeType:     DegreeType(raw.Get(models.FieldDegree)),
		DecisionStatus: status,
		Term:           CleanText(raw.Get(models.FieldTerm)),
		Nationality:    NationalityOf(raw.Get(models.FieldNationality)),
		Comment:        CleanText(raw.Get(models.FieldComment)),
		SourceURL:      sourceURL,
	}

	var dropped []string
	drop := func(field string) {
		dropped = append(dropped, field)
	}

	if value := raw.Get(models.FieldDateAdded); strings.TrimSpace(value) != "" {
		if date, ok := ParseDate(value, 0); ok {
			rec.DateAdded = &date
		} else {
			drop(models.FieldDateAdded)
		}
	}
	if value := raw.Get(models.FieldDecisionDate); strings.TrimSpace(value) != "" {
		if date, ok := decisionDate(value, rec.DateAdded, opts); ok {
			rec.DecisionDate = &date
		} else {
			drop(models.FieldDecisionDate)
		}
	}

	if value := raw.Get(models.FieldGPA); strings.TrimSpace(value) != "" {
		if gpa, ok := ExtractFloat(value, models.GPAMin, models.GPAMax); ok {
			rec.GPA = &gpa
		} else {
			drop(models.FieldGPA)
		}
	}
	if value := raw.Get(models.FieldGREQuant); strings.TrimSpace(value) != "" {
		if score, ok := ExtractInt(value, models.GREMin, models.GREMax); ok {
			rec.GREQuant = &score
		} else {
			drop(models.FieldGREQuant)
		}
	}
	if value := raw.Get(models.FieldGREVerbal); strings.TrimSpace(value) != "" {
		if score, ok := ExtractInt(value, models.GREMin, models.GREMax); ok {
			rec.GREVerbal = &score
		} else {
			drop(models.FieldGREVerbal)
		}
	}
	if value := raw.Get(models.FieldGREAW); strings.TrimSpace(value) != "" {
		if score, ok := ExtractFloat(value, models.GREAWMin, models.GREAWMax); ok {
			rec.GREAW = &score
		} else {
			drop(models.FieldGREAW)
		}
	}

	return Result{Record: &rec, Dropped: dropped}
}

func reject(reason Reason, field, detail string) Result {
	return Result{Rejection: &Rejection{Reason: reason, Field: field, Detail: detail}}
}

func validateSourceURL(value string) error {
	u, err := url.Parse(value)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}

// decisionDate parses a decision date. A yearless date takes the year the
// entry was added, or the previous year when that would put the decision
// after the entry itself.
func decisionDate(value string, added *models.Date, opts Options) (models.Date, bool) {
	year := 0
	if added != nil {
		year = added.Year()
	} else {
		now := time.Now
		if opts.Now != nil {
			now = opts.Now
		}
		year = now().Year()
	}

	date, ok := ParseDate(value, year)
	if !ok {
		return models.Date{}, false
	}
	if added != nil && !hasYear(value) && date.After(added.Time) {
		date = models.NewDate(year-1, date.Month(), date.Day())
	}
	return date, true
}
