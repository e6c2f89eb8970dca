package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jimezsa/admitscrape/internal/models"
)

var (
	markupPattern    = regexp.MustCompile(`<[^>]+>`)
	spacePattern     = regexp.MustCompile(`\s+`)
	strayPattern     = regexp.MustCompile(`[^\p{L}\p{N}\s\-.,;:()&/'!?]`)
	decimalPattern   = regexp.MustCompile(`\d+(?:\.\d+)?`)
	integerPattern   = regexp.MustCompile(`\d+`)
	yearPattern      = regexp.MustCompile(`\b\d{4}\b`)
	degreeSeparators = strings.NewReplacer(".", "", " ", "", "'", "", "-", "")
	datePunctuation  = strings.NewReplacer(",", " ", ".", " ")
	ordinalSuffixes  = regexp.MustCompile(`(?i)\b(\d{1,2})(st|nd|rd|th)\b`)
	datedLayouts     = []string{"2 Jan 2006", "2 January 2006", "Jan 2 2006", "January 2 2006", "1/2/2006", "2006-01-02", "2006/1/2"}
	yearlessLayouts  = []string{"2 Jan", "2 January", "Jan 2", "January 2"}
)

// CleanText strips markup, collapses whitespace and removes stray symbols.
func CleanText(value string) string {
	value = markupPattern.ReplaceAllString(value, "")
	value = strayPattern.ReplaceAllString(value, "")
	value = spacePattern.ReplaceAllString(value, " ")
	return strings.TrimSpace(value)
}

// ExtractFloat returns the first decimal number in value if it lies within [min, max].
// A minus sign counts only when it does not follow a letter or digit, so
// "GPA: -3.5" is negative and "GPA-3.5" is not.
func ExtractFloat(value string, min, max float64) (float64, bool) {
	match := firstNumber(decimalPattern, value)
	if match == "" {
		return 0, false
	}
	parsed, err := strconv.ParseFloat(match, 64)
	if err != nil || parsed < min || parsed > max {
		return 0, false
	}
	return parsed, true
}

// ExtractInt returns the first integer in value if it lies within [min, max].
// A decimal such as "165.0" contributes its integer part.
func ExtractInt(value string, min, max int) (int, bool) {
	match := firstNumber(integerPattern, value)
	if match == "" {
		return 0, false
	}
	parsed, err := strconv.Atoi(match)
	if err != nil || parsed < min || parsed > max {
		return 0, false
	}
	return parsed, true
}

// firstNumber returns the first match of pattern in value, with a leading
// minus sign when one is attached.
func firstNumber(pattern *regexp.Regexp, value string) string {
	loc := pattern.FindStringIndex(value)
	if loc == nil {
		return ""
	}
	start := loc[0]
	if start > 0 && value[start-1] == '-' && (start == 1 || !isAlnum(value[start-2])) {
		start--
	}
	return value[start:loc[1]]
}

func isAlnum(b byte) bool {
	return b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}

// DecisionStatus classifies decision text. Interviews and other interim
// states map to Other; text that matches nothing is not a decision.
func DecisionStatus(value string) (models.DecisionStatus, bool) {
	lower := strings.ToLower(strings.TrimSpace(value))
	switch {
	case lower == "":
		return "", false
	case strings.Contains(lower, "accept"), strings.Contains(lower, "admit"):
		return models.DecisionAccepted, true
	case strings.Contains(lower, "reject"), strings.Contains(lower, "denied"), strings.Contains(lower, "deny"):
		return models.DecisionRejected, true
	case strings.Contains(lower, "wait"):
		return models.DecisionWaitlisted, true
	case strings.Contains(lower, "interview"), strings.Contains(lower, "pending"), lower == "other":
		return models.DecisionOther, true
	}
	return "", false
}

func DegreeType(value string) models.DegreeType {
	key := degreeSeparators.Replace(strings.ToLower(strings.TrimSpace(value)))
	switch key {
	case "phd", "doctorate", "doctoral", "dphil":
		return models.DegreePhD
	case "ms", "msc", "masters", "master", "meng", "mba", "mph":
		return models.DegreeMS
	case "ma", "mfa", "med":
		return models.DegreeMA
	}
	return models.DegreeOther
}

func NationalityOf(value string) models.Nationality {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "international", "foreign":
		return models.NationalityInternational
	case "american", "domestic", "us", "usa", "u.s.":
		return models.NationalityAmerican
	}
	return models.NationalityOther
}

// ParseDate understands the date styles seen on the survey. A date without a
// year uses defaultYear, and is rejected when defaultYear is zero.
func ParseDate(value string, defaultYear int) (models.Date, bool) {
	value = CleanText(value)
	value = ordinalSuffixes.ReplaceAllString(value, "$1")
	value = strings.Join(strings.Fields(datePunctuation.Replace(value)), " ")
	if value == "" {
		return models.Date{}, false
	}

	for _, layout := range datedLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return models.NewDate(ts.Year(), ts.Month(), ts.Day()), true
		}
	}
	if defaultYear == 0 {
		return models.Date{}, false
	}
	for _, layout := range yearlessLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return models.NewDate(defaultYear, ts.Month(), ts.Day()), true
		}
	}
	return models.Date{}, false
}

func hasYear(value string) bool {
	return yearPattern.MatchString(value)
}
