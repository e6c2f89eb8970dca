package scraper

import (
	"bytes"
	"fmt"
	"iter"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jimezsa/admitscrape/internal/models"
)

const (
	DefaultBaseURL     = "https://www.thegradcafe.com"
	DefaultListingPath = "/survey/index.php"
	DefaultPerPage     = 250

	// minListingCells is the cell count of a result row: school, program, date added, decision.
	minListingCells = 4
)

var (
	decisionPattern = regexp.MustCompile(`(?i)^(.*?)\s+on\s+(.+)$`)
	termPattern     = regexp.MustCompile(`(?i)\b(fall|spring|summer|winter)\s+(\d{4})\b`)
	greAWPattern    = regexp.MustCompile(`(?i)\bGRE\s*(AW|writing)\b`)
	greVPattern     = regexp.MustCompile(`(?i)\bGRE\s*(V|verbal)\b`)
	greQPattern     = regexp.MustCompile(`(?i)\bGRE\s*(Q|quant\w*)\b`)
	gpaPattern      = regexp.MustCompile(`(?i)\bGPA\b`)
)

// degreeKeywords are tried in order when a program cell has no separate degree element.
var degreeKeywords = []string{"Masters", "Master", "PhD", "Ph.D.", "MFA", "MBA", "MEng", "MS", "MA", "Doctorate", "PsyD", "EdD", "JD", "Other"}

// GradCafe reads the GradCafe admissions survey.
type GradCafe struct {
	BaseURL     string
	ListingPath string
	PerPage     int
}

func NewGradCafe(baseURL, listingPath string, perPage int) *GradCafe {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	if strings.TrimSpace(listingPath) == "" {
		listingPath = DefaultListingPath
	}
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	return &GradCafe{BaseURL: strings.TrimRight(baseURL, "/"), ListingPath: listingPath, PerPage: perPage}
}

func (g *GradCafe) Name() string {
	return SiteGradCafe
}

func (g *GradCafe) PageURL(page int) string {
	return ListingURL(g.BaseURL, g.ListingPath, page, g.PerPage)
}

func (g *GradCafe) Extract(body []byte) (iter.Seq[models.RawRecord], error) {
	return Extract(body, g.BaseURL)
}

// ListingURL returns the survey URL for a 1-based page index.
func ListingURL(base, path string, page, perPage int) string {
	if page < 1 {
		page = 1
	}
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	values := url.Values{}
	values.Set("q", "")
	values.Set("t", "a")
	values.Set("pp", strconv.Itoa(perPage))
	values.Set("o", strconv.Itoa((page-1)*perPage))
	return fmt.Sprintf("%s%s?%s", strings.TrimRight(base, "/"), path, values.Encode())
}

// Extract parses a listing page and returns its rows as raw records.
// The sequence is lazy and single-pass: ranging over it a second time yields nothing.
func Extract(body []byte, base string) (iter.Seq[models.RawRecord], error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse listing page: %w", err)
	}
	return extractRows(doc, base), nil
}

func extractRows(doc *goquery.Document, base string) iter.Seq[models.RawRecord] {
	rows := resultsTable(doc).Find("tr")
	consumed := false

	return func(yield func(models.RawRecord) bool) {
		if consumed {
			return
		}
		consumed = true

		var pending models.RawRecord
		for i := 0; i < rows.Length(); i++ {
			row := rows.Eq(i)
			cells := row.ChildrenFiltered("td")

			switch {
			case cells.Length() >= minListingCells:
				if pending != nil && !yield(pending) {
					return
				}
				pending = nil
				// Header and layout rows carry no result link.
				if resultLink(row) == "" {
					continue
				}
				pending = parseMainRow(row, cells, base)
			case cells.Length() == 1 && pending != nil:
				parseDetailRow(cells.First(), pending)
			}
		}
		if pending != nil {
			yield(pending)
		}
	}
}

// resultsTable returns the first table linking to individual results, or
// the first table when none does.
func resultsTable(doc *goquery.Document) *goquery.Selection {
	tables := doc.Find("table")
	for i := 0; i < tables.Length(); i++ {
		if table := tables.Eq(i); table.Find(`a[href*="/result/"]`).Length() > 0 {
			return table
		}
	}
	return tables.First()
}

func resultLink(row *goquery.Selection) string {
	var link string
	row.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if !strings.Contains(href, "/result/") {
			return true
		}
		link = href
		return false
	})
	return link
}

func parseMainRow(row *goquery.Selection, cells *goquery.Selection, base string) models.RawRecord {
	raw := models.RawRecord{}

	raw[models.FieldInstitution] = cleanText(cells.Eq(0).Text())
	program, degree := splitProgramCell(cells.Eq(1))
	raw[models.FieldProgram] = program
	raw[models.FieldDegree] = degree

	if cells.Length() > 2 {
		raw[models.FieldDateAdded] = cleanText(cells.Eq(2).Text())
	}
	if cells.Length() > 3 {
		decision := cleanText(cells.Eq(3).Text())
		if match := decisionPattern.FindStringSubmatch(decision); match != nil {
			raw[models.FieldDecision] = strings.TrimSpace(match[1])
			raw[models.FieldDecisionDate] = strings.TrimSpace(match[2])
		} else {
			raw[models.FieldDecision] = decision
		}
	}

	if href := resultLink(row); href != "" {
		raw[models.FieldSourceURL] = absoluteURL(base, href)
	}

	return raw
}

func splitProgramCell(cell *goquery.Selection) (string, string) {
	spans := cell.Find("span")
	if spans.Length() >= 2 {
		program := cleanText(spans.First().Text())
		degree := cleanText(spans.Last().Text())
		if program != "" {
			return program, degree
		}
	}

	text := cleanText(cell.Text())
	for _, keyword := range degreeKeywords {
		idx := strings.LastIndex(text, keyword)
		if idx <= 0 || idx+len(keyword) != len(text) {
			continue
		}
		return strings.TrimSpace(text[:idx]), keyword
	}
	return text, ""
}

func parseDetailRow(cell *goquery.Selection, raw models.RawRecord) {
	if comment := cleanText(cell.Find("p").Text()); comment != "" {
		raw[models.FieldComment] = comment
	}

	badges := detailBadges(cell)
	if len(badges) == 0 {
		plain := cell.Clone()
		plain.Find("p").Remove()
		parseDetailText(cleanText(plain.Text()), raw)
		return
	}
	for _, badge := range badges {
		classifyBadge(badge, raw)
	}
}

// detailBadges returns the text of leaf elements in a detail cell.
func detailBadges(cell *goquery.Selection) []string {
	var badges []string
	cell.Find("div, span").Each(func(_ int, s *goquery.Selection) {
		if s.Children().Length() > 0 || s.Closest("p").Length() > 0 {
			return
		}
		if text := cleanText(s.Text()); text != "" {
			badges = append(badges, text)
		}
	})
	return badges
}

// parseDetailText handles detail rows rendered as a single run of text,
// e.g. "Fall 2025 International GPA 3.85 GRE V 160 GRE Q 165 GRE AW 4.5".
func parseDetailText(text string, raw models.RawRecord) {
	if text == "" {
		return
	}
	if match := termPattern.FindStringSubmatch(text); match != nil {
		raw[models.FieldTerm] = formatTerm(match)
	}
	switch lower := strings.ToLower(text); {
	case strings.Contains(lower, "international"):
		raw[models.FieldNationality] = "International"
	case strings.Contains(lower, "american"), strings.Contains(lower, "domestic"):
		raw[models.FieldNationality] = "American"
	}
	for field, pattern := range inlineScorePatterns {
		if match := pattern.FindString(text); match != "" {
			raw[field] = match
		}
	}
}

var inlineScorePatterns = map[string]*regexp.Regexp{
	models.FieldGPA:       regexp.MustCompile(`(?i)\bGPA\s*:?\s*-?[\d.]+`),
	models.FieldGREVerbal: regexp.MustCompile(`(?i)\bGRE\s*V(?:erbal)?\s*:?\s*-?\d+`),
	models.FieldGREQuant:  regexp.MustCompile(`(?i)\bGRE\s*Q(?:uant\w*)?\s*:?\s*-?\d+`),
	models.FieldGREAW:     regexp.MustCompile(`(?i)\bGRE\s*AW\s*:?\s*-?[\d.]+`),
}

func formatTerm(match []string) string {
	season := strings.ToLower(match[1])
	return strings.ToUpper(season[:1]) + season[1:] + " " + match[2]
}

func classifyBadge(badge string, raw models.RawRecord) {
	lower := strings.ToLower(badge)
	switch {
	case termPattern.MatchString(badge):
		raw[models.FieldTerm] = formatTerm(termPattern.FindStringSubmatch(badge))
	case lower == "international" || lower == "american" || lower == "domestic" || lower == "other" || lower == "us":
		raw[models.FieldNationality] = badge
	case gpaPattern.MatchString(badge):
		raw[models.FieldGPA] = badge
	case greAWPattern.MatchString(badge):
		raw[models.FieldGREAW] = badge
	case greVPattern.MatchString(badge):
		raw[models.FieldGREVerbal] = badge
	case greQPattern.MatchString(badge):
		raw[models.FieldGREQuant] = badge
	}
}
