package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/jimezsa/admitscrape/internal/models"
)

func sampleRecords() []models.AdmissionRecord {
	gpa := 3.85
	quant := 165
	decided := models.NewDate(2025, time.January, 15)
	return []models.AdmissionRecord{
		{
			Institution:    "Stanford University",
			Program:        "Computer Science",
			DegreeType:     models.DegreePhD,
			DecisionStatus: models.DecisionAccepted,
			DecisionDate:   &decided,
			Term:           "Fall 2025",
			GPA:            &gpa,
			GREQuant:       &quant,
			Nationality:    models.NationalityInternational,
			Comment:        "Great, quick reply",
			SourceURL:      "https://www.thegradcafe.com/result/1",
		},
		{
			Institution:    "MIT",
			Program:        "EECS",
			DegreeType:     models.DegreeMS,
			DecisionStatus: models.DecisionRejected,
			Nationality:    models.NationalityOther,
			SourceURL:      "https://www.thegradcafe.com/result/2",
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteRecords(&buf, sampleRecords(), FormatCSV, WriteOptions{}); err != nil {
		t.Fatalf("WriteRecords() error = %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "institution" || rows[0][len(rows[0])-1] != "source_url" {
		t.Fatalf("unexpected header: %v", rows[0])
	}
	if rows[1][4] != "2025-01-15" || rows[1][7] != "3.85" || rows[1][8] != "165" {
		t.Fatalf("unexpected first row: %v", rows[1])
	}
	if rows[2][7] != "" || rows[2][4] != "" {
		t.Fatalf("expected empty optional columns, got %v", rows[2])
	}
}

func TestWriteJSONAndJSONL(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteRecords(&buf, nil, FormatJSON, WriteOptions{}); err != nil {
		t.Fatalf("WriteRecords() error = %v", err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Fatalf("expected empty array, got %q", buf.String())
	}

	buf.Reset()
	if err := WriteRecords(&buf, sampleRecords(), FormatJSONL, WriteOptions{}); err != nil {
		t.Fatalf("WriteRecords() error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	var decoded models.AdmissionRecord
	if err := json.Unmarshal([]byte(lines[0]), &decoded); err != nil {
		t.Fatalf("decode line: %v", err)
	}
	if decoded.DecisionDate == nil || decoded.DecisionDate.String() != "2025-01-15" {
		t.Fatalf("unexpected decision date: %v", decoded.DecisionDate)
	}
}

func TestWriteMarkdownAndTable(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteRecords(&buf, sampleRecords(), FormatMarkdown, WriteOptions{}); err != nil {
		t.Fatalf("WriteRecords() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{"**Stanford University**", "Decision: Accepted on 2025-01-15", "Scores: GPA 3.85, Q 165", "Applicant: International"} {
		if !strings.Contains(out, want) {
			t.Fatalf("markdown missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	if err := WriteRecords(&buf, sampleRecords(), FormatTable, WriteOptions{}); err != nil {
		t.Fatalf("WriteRecords() error = %v", err)
	}
	if !strings.Contains(buf.String(), "Rejected") || strings.Contains(buf.String(), "\x1b") {
		t.Fatalf("unexpected table output:\n%s", buf.String())
	}
}

func TestParseFormat(t *testing.T) {
	cases := map[string]Format{
		"":         FormatTable,
		"CSV":      FormatCSV,
		"markdown": FormatMarkdown,
		"ndjson":   FormatJSONL,
	}
	for input, want := range cases {
		got, err := ParseFormat(input)
		if err != nil || got != want {
			t.Fatalf("ParseFormat(%q) = %q, %v; want %q", input, got, err, want)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}

func TestShortURLLabel(t *testing.T) {
	got := shortURLLabel("https://www.thegradcafe.com/result/123")
	if got != "thegradcafe.com/result/123" {
		t.Fatalf("shortURLLabel() = %q", got)
	}
}
