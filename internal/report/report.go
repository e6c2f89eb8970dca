// Package report summarizes a set of stored admission records.
package report

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/jimezsa/admitscrape/internal/models"
)

const topInstitutions = 10

type Count struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type Quality struct {
	WithGPA          int `json:"with_gpa"`
	WithGRE          int `json:"with_gre"`
	WithComments     int `json:"with_comments"`
	WithDecisionDate int `json:"with_decision_date"`
}

type Averages struct {
	GPA       *float64 `json:"gpa,omitempty"`
	GREQuant  *float64 `json:"gre_quant,omitempty"`
	GREVerbal *float64 `json:"gre_verbal,omitempty"`
	GREAW     *float64 `json:"gre_aw,omitempty"`
}

type Report struct {
	GeneratedAt             time.Time      `json:"generated_at"`
	Term                    string         `json:"term,omitempty"`
	TotalRecords            int            `json:"total_records"`
	StatusDistribution      map[string]int `json:"status_distribution"`
	DegreeDistribution      map[string]int `json:"degree_type_distribution"`
	NationalityDistribution map[string]int `json:"nationality_distribution"`
	TopInstitutions         []Count        `json:"top_institutions"`
	DataQuality             Quality        `json:"data_quality"`
	Averages                Averages       `json:"averages"`
	// AcceptanceRate is the share of records with an Accepted decision, in percent.
	AcceptanceRate    float64 `json:"acceptance_rate"`
	InternationalRate float64 `json:"international_rate"`
}

type Options struct {
	// Term limits the report to records whose term matches, e.g. "Fall 2025".
	Term string
	Now  func() time.Time
}

// Build computes the report over records.
func Build(records []models.AdmissionRecord, opts Options) Report {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	report := Report{
		GeneratedAt:             now().UTC(),
		Term:                    strings.TrimSpace(opts.Term),
		StatusDistribution:      map[string]int{},
		DegreeDistribution:      map[string]int{},
		NationalityDistribution: map[string]int{},
		TopInstitutions:         []Count{},
	}

	institutions := map[string]int{}
	var gpa, quant, verbal, aw mean
	accepted, international := 0, 0

	for _, rec := range records {
		if report.Term != "" && !strings.EqualFold(rec.Term, report.Term) {
			continue
		}
		report.TotalRecords++
		report.StatusDistribution[orUnknown(string(rec.DecisionStatus))]++
		report.DegreeDistribution[orUnknown(string(rec.DegreeType))]++
		report.NationalityDistribution[orUnknown(string(rec.Nationality))]++
		institutions[orUnknown(rec.Institution)]++

		if rec.DecisionStatus == models.DecisionAccepted {
			accepted++
		}
		if rec.Nationality == models.NationalityInternational {
			international++
		}
		if rec.GPA != nil {
			report.DataQuality.WithGPA++
			gpa.add(*rec.GPA)
		}
		if rec.GREQuant != nil || rec.GREVerbal != nil || rec.GREAW != nil {
			report.DataQuality.WithGRE++
		}
		if rec.GREQuant != nil {
			quant.add(float64(*rec.GREQuant))
		}
		if rec.GREVerbal != nil {
			verbal.add(float64(*rec.GREVerbal))
		}
		if rec.GREAW != nil {
			aw.add(*rec.GREAW)
		}
		if strings.TrimSpace(rec.Comment) != "" {
			report.DataQuality.WithComments++
		}
		if rec.DecisionDate != nil {
			report.DataQuality.WithDecisionDate++
		}
	}

	report.TopInstitutions = top(institutions, topInstitutions)
	report.Averages = Averages{
		GPA:       gpa.value(),
		GREQuant:  quant.value(),
		GREVerbal: verbal.value(),
		GREAW:     aw.value(),
	}
	if report.TotalRecords > 0 {
		report.AcceptanceRate = percent(accepted, report.TotalRecords)
		report.InternationalRate = percent(international, report.TotalRecords)
	}
	return report
}

func top(counts map[string]int, limit int) []Count {
	out := make([]Count, 0, len(counts))
	for name, count := range counts {
		out = append(out, Count{Name: name, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func orUnknown(value string) string {
	if strings.TrimSpace(value) == "" {
		return "Unknown"
	}
	return value
}

func percent(part, total int) float64 {
	return round2(float64(part) * 100 / float64(total))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

type mean struct {
	sum float64
	n   int
}

func (m *mean) add(v float64) {
	m.sum += v
	m.n++
}

func (m mean) value() *float64 {
	if m.n == 0 {
		return nil
	}
	v := round2(m.sum / float64(m.n))
	return &v
}
