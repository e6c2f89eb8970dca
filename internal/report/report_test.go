package report

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jimezsa/admitscrape/internal/models"
)

func record(institution string, status models.DecisionStatus, nationality models.Nationality, term string) models.AdmissionRecord {
	return models.AdmissionRecord{
		Institution:    institution,
		Program:        "Computer Science",
		DegreeType:     models.DegreeMS,
		DecisionStatus: status,
		Nationality:    nationality,
		Term:           term,
		SourceURL:      "https://www.thegradcafe.com/result/" + institution,
	}
}

func TestBuild(t *testing.T) {
	gpaHigh, gpaLow := 3.9, 3.5
	quant := 165
	stanford := record("Stanford University", models.DecisionAccepted, models.NationalityInternational, "Fall 2025")
	stanford.GPA = &gpaHigh
	stanford.GREQuant = &quant
	stanford.Comment = "Great interview"
	mit := record("MIT", models.DecisionRejected, models.NationalityAmerican, "Fall 2025")
	mit.GPA = &gpaLow
	phd := record("Stanford University", models.DecisionWaitlisted, models.NationalityOther, "Spring 2025")
	phd.DegreeType = models.DegreePhD

	fixed := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	got := Build([]models.AdmissionRecord{stanford, mit, phd}, Options{Now: func() time.Time { return fixed }})

	if got.TotalRecords != 3 {
		t.Fatalf("TotalRecords = %d, want 3", got.TotalRecords)
	}
	wantStatus := map[string]int{"Accepted": 1, "Rejected": 1, "Waitlisted": 1}
	if diff := cmp.Diff(wantStatus, got.StatusDistribution); diff != "" {
		t.Fatalf("status distribution (-want +got):\n%s", diff)
	}
	wantDegrees := map[string]int{"MS": 2, "PhD": 1}
	if diff := cmp.Diff(wantDegrees, got.DegreeDistribution); diff != "" {
		t.Fatalf("degree distribution (-want +got):\n%s", diff)
	}
	wantTop := []Count{{Name: "Stanford University", Count: 2}, {Name: "MIT", Count: 1}}
	if diff := cmp.Diff(wantTop, got.TopInstitutions); diff != "" {
		t.Fatalf("top institutions (-want +got):\n%s", diff)
	}
	wantQuality := Quality{WithGPA: 2, WithGRE: 1, WithComments: 1}
	if diff := cmp.Diff(wantQuality, got.DataQuality); diff != "" {
		t.Fatalf("data quality (-want +got):\n%s", diff)
	}
	if got.Averages.GPA == nil || *got.Averages.GPA != 3.7 {
		t.Fatalf("average gpa = %v, want 3.7", got.Averages.GPA)
	}
	if got.Averages.GREVerbal != nil {
		t.Fatalf("expected no verbal average, got %v", *got.Averages.GREVerbal)
	}
	if got.AcceptanceRate != 33.33 || got.InternationalRate != 33.33 {
		t.Fatalf("rates = %v / %v, want 33.33", got.AcceptanceRate, got.InternationalRate)
	}
	if !got.GeneratedAt.Equal(fixed) {
		t.Fatalf("GeneratedAt = %v, want %v", got.GeneratedAt, fixed)
	}
}

func TestBuildTermFilter(t *testing.T) {
	records := []models.AdmissionRecord{
		record("A", models.DecisionAccepted, models.NationalityAmerican, "Spring 2025"),
		record("B", models.DecisionRejected, models.NationalityAmerican, "spring 2025"),
		record("C", models.DecisionAccepted, models.NationalityAmerican, "Fall 2025"),
	}
	got := Build(records, Options{Term: "Spring 2025"})
	if got.TotalRecords != 2 {
		t.Fatalf("TotalRecords = %d, want 2", got.TotalRecords)
	}
	if got.AcceptanceRate != 50 {
		t.Fatalf("AcceptanceRate = %v, want 50", got.AcceptanceRate)
	}
}

func TestBuildTopLimitAndEmpty(t *testing.T) {
	var records []models.AdmissionRecord
	for i := 0; i < 15; i++ {
		records = append(records, record(fmt.Sprintf("University %02d", i), models.DecisionOther, models.NationalityOther, ""))
	}
	got := Build(records, Options{})
	if len(got.TopInstitutions) != topInstitutions {
		t.Fatalf("expected %d institutions, got %d", topInstitutions, len(got.TopInstitutions))
	}
	if got.TopInstitutions[0].Name != "University 00" {
		t.Fatalf("expected ties ordered by name, got %s", got.TopInstitutions[0].Name)
	}

	empty := Build(nil, Options{})
	data, err := json.Marshal(empty)
	if err != nil {
		t.Fatalf("marshal empty report: %v", err)
	}
	if empty.TotalRecords != 0 || empty.AcceptanceRate != 0 || len(data) == 0 {
		t.Fatalf("unexpected empty report: %s", data)
	}
}
