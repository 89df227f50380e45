package models

// MatchedField names the criterion field that satisfied the pattern.
type MatchedField string

const (
	MatchedFieldName  MatchedField = "name"
	MatchedFieldValue MatchedField = "value"
)

// Match records one criterion that satisfied the search pattern.
// There is at most one Match per (group, criterion) pair.
type Match struct {
	GroupType    GroupType    `json:"group_type"`
	GroupID      int          `json:"group_id"`
	GroupName    string       `json:"group_name"`
	MatchedField MatchedField `json:"matched_field"`
	Criterion    Criterion    `json:"criterion"`
}

func NewMatch(group GroupSummary, field MatchedField, criterion Criterion) Match {
	return Match{
		GroupType:    group.GroupType,
		GroupID:      group.ID,
		GroupName:    group.Name,
		MatchedField: field,
		Criterion:    criterion,
	}
}
