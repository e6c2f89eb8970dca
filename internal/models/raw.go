package models

// Field names carried by a RawRecord.
const (
	FieldInstitution  = "institution"
	FieldProgram      = "program"
	FieldDegree       = "degree"
	FieldDecision     = "decision"
	FieldDecisionDate = "decision_date"
	FieldDateAdded    = "date_added"
	FieldTerm         = "term"
	FieldNationality  = "nationality"
	FieldGPA          = "gpa"
	FieldGREQuant     = "gre_quant"
	FieldGREVerbal    = "gre_verbal"
	FieldGREAW        = "gre_aw"
	FieldComment      = "comment"
	FieldSourceURL    = "source_url"
)

// RawRecord holds the unparsed strings scraped from one listing row.
type RawRecord map[string]string

// Get returns the value for field or an empty string.
func (r RawRecord) Get(field string) string {
	if r == nil {
		return ""
	}
	return r[field]
}

// Empty reports whether no field carries a value.
func (r RawRecord) Empty() bool {
	for _, value := range r {
		if value != "" {
			return false
		}
	}
	return true
}
