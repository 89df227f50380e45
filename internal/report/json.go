package report

import (
	"cmp"
	"encoding/json"
	"io"
	"slices"
	"strings"

	"github.com/jamfkit/sgscan/internal/models"
)

// WriteJSON writes matches as a flat, sorted JSON array. Absent criterion
// fields are written as null.
func WriteJSON(w io.Writer, matches []models.Match) error {
	sorted := Sort(matches)
	if sorted == nil {
		sorted = []models.Match{}
	}
	return writeIndented(w, sorted)
}

// ExportEntry is one smart group in an export document.
type ExportEntry struct {
	ID       int                `json:"id"`
	Name     string             `json:"name"`
	Type     models.GroupType   `json:"group_type"`
	Site     *string            `json:"site"`
	Criteria []models.Criterion `json:"criteria"`
}

// Export converts group details into export entries ordered like the table.
func Export(details []*models.GroupDetail) []ExportEntry {
	entries := make([]ExportEntry, 0, len(details))
	for _, detail := range details {
		criteria := detail.Criteria
		if criteria == nil {
			criteria = []models.Criterion{}
		}
		entries = append(entries, ExportEntry{
			ID:       detail.ID,
			Name:     detail.Name,
			Type:     detail.GroupType,
			Site:     detail.Site,
			Criteria: criteria,
		})
	}
	sortEntries(entries)
	return entries
}

func sortEntries(entries []ExportEntry) {
	slices.SortStableFunc(entries, func(a, b ExportEntry) int {
		return cmp.Or(
			cmp.Compare(a.Type, b.Type),
			cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)),
			cmp.Compare(a.ID, b.ID),
		)
	})
}

func WriteExport(w io.Writer, details []*models.GroupDetail) error {
	return writeIndented(w, Export(details))
}

func writeIndented(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(v)
}
