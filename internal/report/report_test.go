package report

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamfkit/sgscan/internal/models"
)

func strPtr(s string) *string {
	return &s
}

func fixtureMatches() []models.Match {
	staff := models.GroupSummary{GroupType: models.GroupTypeUser, ID: 3, Name: "staff"}
	beta := models.GroupSummary{GroupType: models.GroupTypeComputer, ID: 2, Name: "beta"}
	alpha := models.GroupSummary{GroupType: models.GroupTypeComputer, ID: 1, Name: "Alpha"}

	return []models.Match{
		models.NewMatch(staff, models.MatchedFieldValue, models.Criterion{Name: "Position", SearchType: strPtr("like"), Value: strPtr("14"), AndOr: strPtr("and")}),
		models.NewMatch(alpha, models.MatchedFieldValue, models.Criterion{Name: "Department", SearchType: strPtr("is"), Value: strPtr("14"), AndOr: strPtr("and")}),
		models.NewMatch(beta, models.MatchedFieldName, models.Criterion{Name: "Building 14"}),
		models.NewMatch(alpha, models.MatchedFieldName, models.Criterion{Name: "Building 14"}),
	}
}

func TestSort(t *testing.T) {
	sorted := Sort(fixtureMatches())

	var order []string
	for _, match := range sorted {
		order = append(order, match.GroupName+"/"+string(match.MatchedField))
	}

	assert.Equal(t, []string{"Alpha/value", "Alpha/name", "beta/name", "staff/value"}, order)
}

func TestSort_DoesNotModifyInput(t *testing.T) {
	matches := fixtureMatches()
	first := matches[0]

	Sort(matches)

	assert.Equal(t, first, matches[0])
}

func TestTable_Write(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Table{}.Write(&buf, fixtureMatches()))

	expected := `
[Computer SG] Alpha (id=1)
  Matches:
   • value → name='Department', op='is', value='14', and_or='and'
   •  name → name='Building 14', op='—', value='—', and_or='—'

[Computer SG] beta (id=2)
  Matches:
   •  name → name='Building 14', op='—', value='—', and_or='—'

[User SG] staff (id=3)
  Matches:
   • value → name='Position', op='like', value='14', and_or='and'
`
	assert.Equal(t, expected, buf.String())
}

func TestTable_NoMatches(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Table{}.Write(&buf, nil))
	assert.Equal(t, "No matches found.\n", buf.String())
}

func TestTable_SameNameDifferentIDs(t *testing.T) {
	first := models.GroupSummary{GroupType: models.GroupTypeMobile, ID: 8, Name: "iPads"}
	second := models.GroupSummary{GroupType: models.GroupTypeMobile, ID: 4, Name: "iPads"}

	var buf bytes.Buffer
	require.NoError(t, Table{}.Write(&buf, []models.Match{
		models.NewMatch(first, models.MatchedFieldName, models.Criterion{Name: "iPad"}),
		models.NewMatch(second, models.MatchedFieldName, models.Criterion{Name: "iPad"}),
	}))

	assert.Contains(t, buf.String(), "[Mobile SG] iPads (id=4)")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("id=4")), bytes.Index(buf.Bytes(), []byte("id=8")))
}

func TestWriteJSON(t *testing.T) {
	beta := models.GroupSummary{GroupType: models.GroupTypeComputer, ID: 2, Name: "beta"}

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, []models.Match{
		models.NewMatch(beta, models.MatchedFieldName, models.Criterion{Name: "Building 14"}),
	}))

	expected := `[
  {
    "group_type": "computer",
    "group_id": 2,
    "group_name": "beta",
    "matched_field": "name",
    "criterion": {
      "name": "Building 14",
      "search_type": null,
      "value": null,
      "and_or": null
    }
  }
]
`
	assert.Equal(t, expected, buf.String())
}

func TestWriteJSON_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestWriteExport(t *testing.T) {
	details := []*models.GroupDetail{
		{
			GroupSummary: models.GroupSummary{GroupType: models.GroupTypeComputer, ID: 5, Name: "Zeta", IsSmart: true},
			Site:         strPtr("North"),
			Criteria:     []models.Criterion{{Name: "Model", Value: strPtr("MacBook Air")}},
		},
		{
			GroupSummary: models.GroupSummary{GroupType: models.GroupTypeComputer, ID: 6, Name: "alpha", IsSmart: true},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteExport(&buf, details))

	assert.JSONEq(t, `[
		{"id": 6, "name": "alpha", "group_type": "computer", "site": null, "criteria": []},
		{"id": 5, "name": "Zeta", "group_type": "computer", "site": "North",
		 "criteria": [{"name": "Model", "search_type": null, "value": "MacBook Air", "and_or": null}]}
	]`, buf.String())
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name       string
		expression string
		expected   string
	}{
		{name: "raw strings", expression: ".[].group_name", expected: "Alpha\nAlpha\nbeta\nstaff\n"},
		{name: "numbers", expression: "length", expected: "4\n"},
		{name: "objects", expression: `map(select(.matched_field == "value")) | map(.group_id)`, expected: "[\n  1,\n  3\n]\n"},
		{name: "empty", expression: "empty", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter, err := CompileFilter(tt.expression)
			require.NoError(t, err)

			var buf bytes.Buffer
			require.NoError(t, filter.WriteMatches(&buf, fixtureMatches()))
			assert.Equal(t, tt.expected, buf.String())
		})
	}
}

func TestCompileFilter_Invalid(t *testing.T) {
	_, err := CompileFilter(".[")
	assert.Error(t, err)

	_, err = CompileFilter("$undefined")
	assert.Error(t, err)
}

func TestFilter_RuntimeError(t *testing.T) {
	filter, err := CompileFilter(`error("boom")`)
	require.NoError(t, err)

	var buf bytes.Buffer
	assert.ErrorContains(t, filter.Write(&buf, []any{}), "boom")
}
