// Package report renders scan results as a grouped text table or JSON.
// Both renderers order matches the same way so repeated runs over the
// same data produce the same output.
package report

import (
	"cmp"
	"slices"
	"strings"

	"github.com/jamfkit/sgscan/internal/models"
)

// Absent is printed for criterion fields the server did not send.
const Absent = "—"

// Sort returns matches ordered by group type, then case-insensitive group
// name, then group id. Matches of the same group keep their relative order.
func Sort(matches []models.Match) []models.Match {
	sorted := slices.Clone(matches)
	slices.SortStableFunc(sorted, func(a, b models.Match) int {
		return cmp.Or(
			cmp.Compare(a.GroupType, b.GroupType),
			cmp.Compare(strings.ToLower(a.GroupName), strings.ToLower(b.GroupName)),
			cmp.Compare(a.GroupID, b.GroupID),
		)
	})
	return sorted
}

// groupedMatches is the matches of one group in discovery order.
type groupedMatches struct {
	Group   models.GroupSummary
	Matches []models.Match
}

func group(matches []models.Match) []groupedMatches {
	var groups []groupedMatches
	for _, match := range Sort(matches) {
		last := len(groups) - 1
		if last >= 0 && sameGroup(groups[last].Group, match) {
			groups[last].Matches = append(groups[last].Matches, match)
			continue
		}
		groups = append(groups, groupedMatches{
			Group: models.GroupSummary{
				GroupType: match.GroupType,
				ID:        match.GroupID,
				Name:      match.GroupName,
			},
			Matches: []models.Match{match},
		})
	}
	return groups
}

func sameGroup(g models.GroupSummary, m models.Match) bool {
	return g.GroupType == m.GroupType && g.ID == m.GroupID && g.Name == m.GroupName
}

func orAbsent(value *string) string {
	if value == nil || len(*value) == 0 {
		return Absent
	}
	return *value
}
