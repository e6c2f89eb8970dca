package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/jimezsa/admitscrape/internal/models"
	"github.com/jimezsa/admitscrape/internal/ui"
	"github.com/muesli/termenv"
)

type Format string

const (
	FormatTable    Format = "table"
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
	FormatJSONL    Format = "jsonl"
	FormatMarkdown Format = "md"
	FormatTSV      Format = "tsv"
)

type WriteOptions struct {
	ColorEnabled bool
	Hyperlinks   bool
	LinkStyle    LinkStyle
}

type LinkStyle string

const (
	LinkStyleShort LinkStyle = "short"
	LinkStyleFull  LinkStyle = "full"
)

// ParseFormat maps a user supplied name to a Format.
func ParseFormat(value string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(value))) {
	case "", FormatTable:
		return FormatTable, nil
	case FormatCSV:
		return FormatCSV, nil
	case FormatTSV:
		return FormatTSV, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatJSONL, "ndjson":
		return FormatJSONL, nil
	case FormatMarkdown, "markdown":
		return FormatMarkdown, nil
	}
	return "", fmt.Errorf("unknown format %q", value)
}

func WriteRecords(w io.Writer, records []models.AdmissionRecord, format Format, opts WriteOptions) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, records)
	case FormatJSONL:
		return writeJSONL(w, records)
	case FormatCSV:
		return writeCSV(w, records, ',')
	case FormatTSV:
		return writeCSV(w, records, '\t')
	case FormatMarkdown:
		return writeMarkdown(w, records)
	default:
		return writeTable(w, records, opts)
	}
}

func writeJSON(w io.Writer, records []models.AdmissionRecord) error {
	if records == nil {
		records = []models.AdmissionRecord{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

func writeJSONL(w io.Writer, records []models.AdmissionRecord) error {
	enc := json.NewEncoder(w)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return err
		}
	}
	return nil
}

func writeCSV(w io.Writer, records []models.AdmissionRecord, delim rune) error {
	writer := csv.NewWriter(w)
	writer.Comma = delim
	if err := writer.Write(csvHeader()); err != nil {
		return err
	}
	for _, rec := range records {
		if err := writer.Write(csvRow(rec)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func writeTable(w io.Writer, records []models.AdmissionRecord, opts WriteOptions) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(tableHeader(), "\t"))
	output := termenv.NewOutput(w)
	for _, rec := range records {
		fmt.Fprintln(tw, strings.Join(tableRow(rec, output, opts), "\t"))
	}
	return tw.Flush()
}

func writeMarkdown(w io.Writer, records []models.AdmissionRecord) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No results.")
		return err
	}
	for _, rec := range records {
		urlLine := "  URL: -"
		if url := safe(rec.SourceURL); url != "" {
			urlLine = fmt.Sprintf("  URL: [Open result](<%s>)", url)
		}
		lines := []string{
			fmt.Sprintf("- **%s**, %s (%s)", safe(rec.Institution), safe(rec.Program), rec.DegreeType),
			fmt.Sprintf("  Decision: %s%s", rec.DecisionStatus, onDate(rec.DecisionDate)),
			urlLine,
		}
		if rec.Term != "" {
			lines = append(lines, fmt.Sprintf("  Term: %s", safe(rec.Term)))
		}
		if rec.Nationality != "" && rec.Nationality != models.NationalityOther {
			lines = append(lines, fmt.Sprintf("  Applicant: %s", rec.Nationality))
		}
		if scores := scoreLine(rec); scores != "" {
			lines = append(lines, "  Scores: "+scores)
		}
		if rec.Comment != "" {
			lines = append(lines, fmt.Sprintf("  Comment: %s", safe(rec.Comment)))
		}
		for _, line := range lines {
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
	}
	return nil
}

func csvHeader() []string {
	return []string{
		"institution",
		"program",
		"degree_type",
		"decision_status",
		"decision_date",
		"date_added",
		"term",
		"gpa",
		"gre_quant",
		"gre_verbal",
		"gre_aw",
		"nationality",
		"comment",
		"source_url",
	}
}

func csvRow(rec models.AdmissionRecord) []string {
	return []string{
		rec.Institution,
		rec.Program,
		string(rec.DegreeType),
		string(rec.DecisionStatus),
		dateString(rec.DecisionDate),
		dateString(rec.DateAdded),
		rec.Term,
		floatString(rec.GPA),
		intString(rec.GREQuant),
		intString(rec.GREVerbal),
		floatString(rec.GREAW),
		string(rec.Nationality),
		rec.Comment,
		rec.SourceURL,
	}
}

func dateString(d *models.Date) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func floatString(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func intString(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func onDate(d *models.Date) string {
	if d == nil {
		return ""
	}
	return " on " + d.String()
}

func scoreLine(rec models.AdmissionRecord) string {
	var parts []string
	if rec.GPA != nil {
		parts = append(parts, "GPA "+floatString(rec.GPA))
	}
	if rec.GREQuant != nil {
		parts = append(parts, "Q "+intString(rec.GREQuant))
	}
	if rec.GREVerbal != nil {
		parts = append(parts, "V "+intString(rec.GREVerbal))
	}
	if rec.GREAW != nil {
		parts = append(parts, "AW "+floatString(rec.GREAW))
	}
	return strings.Join(parts, ", ")
}

func safe(value string) string {
	return strings.TrimSpace(value)
}

func tableHeader() []string {
	return []string{
		"institution",
		"program",
		"degree",
		"decision",
		"gpa",
		"url",
	}
}

func tableRow(rec models.AdmissionRecord, output *termenv.Output, opts WriteOptions) []string {
	url := safe(rec.SourceURL)
	displayURL := "-"
	if url != "" {
		displayURL = url
		if opts.LinkStyle == LinkStyleShort && opts.Hyperlinks {
			displayURL = shortURLLabel(url)
		}
		displayURL = ui.ColorizeLink(output, opts.ColorEnabled, displayURL)
		if opts.Hyperlinks {
			displayURL = hyperlink(url, displayURL)
		}
	}
	gpa := floatString(rec.GPA)
	if gpa == "" {
		gpa = "-"
	}
	return []string{
		safe(rec.Institution),
		safe(rec.Program),
		string(rec.DegreeType),
		string(rec.DecisionStatus) + onDate(rec.DecisionDate),
		gpa,
		displayURL,
	}
}

func hyperlink(url string, text string) string {
	const esc = "\x1b"
	return esc + "]8;;" + url + esc + "\\" + text + esc + "]8;;" + esc + "\\"
}

func shortURLLabel(raw string) string {
	const maxLen = 60
	label := strings.TrimSpace(raw)
	if parsed, err := url.Parse(raw); err == nil {
		host := strings.TrimPrefix(parsed.Host, "www.")
		if host != "" {
			label = host + parsed.Path
		}
	}
	label = strings.TrimSpace(label)
	if label == "" {
		label = raw
	}
	if len(label) > maxLen {
		label = label[:maxLen-3] + "..."
	}
	return label
}
