package jamf

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"

	"github.com/jamfkit/sgscan/internal/models"
)

// Alternate spellings seen across API versions, preferred first.
var (
	searchTypeKeys = []string{"search_type", "searchType"}
	andOrKeys      = []string{"and_or", "andOr"}
	isSmartKeys    = []string{"is_smart", "isSmart"}
)

// criteriaFromJSON reconciles the shapes a decoded criteria container can
// take: {"criterion": {...}}, {"criterion": [...]}, {"size": n, "criterion": ...},
// a bare list, or a single criterion record. Anything else yields no criteria.
func criteriaFromJSON(container any) []models.Criterion {
	switch value := container.(type) {
	case map[string]any:
		if inner, ok := value["criterion"]; ok {
			return criterionListFromJSON(inner)
		}
		if _, ok := value["name"]; ok {
			return []models.Criterion{criterionFromMap(value)}
		}
	case []any, []models.CriterionRecord, models.CriterionRecord:
		return criterionListFromJSON(value)
	}
	return nil
}

func criterionListFromJSON(raw any) []models.Criterion {
	switch value := raw.(type) {
	case map[string]any:
		return []models.Criterion{criterionFromMap(value)}
	case []any:
		criteria := make([]models.Criterion, 0, len(value))
		for _, item := range value {
			switch record := item.(type) {
			case map[string]any:
				criteria = append(criteria, criterionFromMap(record))
			case models.CriterionRecord:
				criteria = append(criteria, criterionFromRecord(record))
			case *models.CriterionRecord:
				if record != nil {
					criteria = append(criteria, criterionFromRecord(*record))
				}
			default:
				logrus.WithField("type", fmt.Sprintf("%T", item)).Debugln("Skipping non-object criterion")
			}
		}
		return criteria
	case models.CriterionRecord:
		return []models.Criterion{criterionFromRecord(value)}
	case []models.CriterionRecord:
		criteria := make([]models.Criterion, 0, len(value))
		for _, record := range value {
			criteria = append(criteria, criterionFromRecord(record))
		}
		return criteria
	}
	return nil
}

// criterionFromMap adapts a decoded JSON object.
func criterionFromMap(record map[string]any) models.Criterion {
	criterion := models.Criterion{
		SearchType: mapString(record, searchTypeKeys...),
		Value:      mapString(record, "value"),
		AndOr:      mapString(record, andOrKeys...),
	}
	if name := mapString(record, "name"); name != nil {
		criterion.Name = *name
	}
	return criterion
}

// criteriaFromElement is the XML counterpart of criteriaFromJSON. The element
// is normally <criteria>, holding zero or more <criterion> children.
func criteriaFromElement(container *etree.Element) []models.Criterion {
	if container == nil {
		return nil
	}

	if container.Tag == "criterion" {
		return []models.Criterion{criterionFromElement(container)}
	}

	children := container.SelectElements("criterion")
	if len(children) == 0 {
		if container.SelectElement("name") != nil {
			return []models.Criterion{criterionFromElement(container)}
		}
		return nil
	}

	criteria := make([]models.Criterion, 0, len(children))
	for _, child := range children {
		criteria = append(criteria, criterionFromElement(child))
	}
	return criteria
}

// criterionFromElement adapts a <criterion> element.
func criterionFromElement(element *etree.Element) models.Criterion {
	criterion := models.Criterion{
		SearchType: elementText(element, searchTypeKeys...),
		Value:      elementText(element, "value"),
		AndOr:      elementText(element, andOrKeys...),
	}
	if name := elementText(element, "name"); name != nil {
		criterion.Name = *name
	}
	return criterion
}

func summaryFromMap(groupType models.GroupType, record map[string]any) (models.GroupSummary, error) {
	rawID, ok := mapValue(record, "id")
	if !ok {
		return models.GroupSummary{}, fmt.Errorf("group record has no id")
	}
	id, err := parseID(scalar(rawID))
	if err != nil {
		return models.GroupSummary{}, fmt.Errorf("group id %v is not an integer: %w", rawID, err)
	}

	summary := models.GroupSummary{GroupType: groupType, ID: id}
	if name := mapString(record, "name"); name != nil {
		summary.Name = *name
	}
	if rawSmart, ok := mapValue(record, isSmartKeys...); ok {
		summary.IsSmart = cast.ToBool(scalar(rawSmart))
	}
	return summary, nil
}

func summaryFromElement(groupType models.GroupType, element *etree.Element) (models.GroupSummary, error) {
	rawID := elementText(element, "id")
	if rawID == nil {
		return models.GroupSummary{}, fmt.Errorf("group element has no id")
	}
	id, err := parseID(*rawID)
	if err != nil {
		return models.GroupSummary{}, fmt.Errorf("group id %q is not an integer: %w", *rawID, err)
	}

	summary := models.GroupSummary{GroupType: groupType, ID: id}
	if name := elementText(element, "name"); name != nil {
		summary.Name = *name
	}
	if smart := elementText(element, isSmartKeys...); smart != nil {
		summary.IsSmart = strings.EqualFold(strings.TrimSpace(*smart), "true")
	}
	return summary, nil
}

// siteFromMap reads a site given either as {"name": ...} or a plain string.
func siteFromMap(record map[string]any) *string {
	raw, ok := mapValue(record, "site")
	if !ok {
		return nil
	}
	if site, ok := raw.(map[string]any); ok {
		return mapString(site, "name")
	}
	if name, err := cast.ToStringE(scalar(raw)); err == nil {
		return &name
	}
	return nil
}

func siteFromElement(element *etree.Element) *string {
	site := element.SelectElement("site")
	if site == nil {
		return nil
	}
	if site.SelectElement("name") != nil {
		return elementText(site, "name")
	}
	text := strings.TrimSpace(site.Text())
	return &text
}

func mapValue(record map[string]any, keys ...string) (any, bool) {
	for _, key := range keys {
		if value, ok := record[key]; ok && value != nil {
			return value, true
		}
	}
	return nil, false
}

// mapString returns the first present key as a string. Nested objects and
// lists are not strings and count as absent.
func mapString(record map[string]any, keys ...string) *string {
	value, ok := mapValue(record, keys...)
	if !ok {
		return nil
	}
	switch value.(type) {
	case map[string]any, []any:
		return nil
	}
	text, err := cast.ToStringE(scalar(value))
	if err != nil {
		return nil
	}
	return &text
}

func elementText(element *etree.Element, tags ...string) *string {
	for _, tag := range tags {
		if child := element.SelectElement(tag); child != nil {
			text := child.Text()
			return &text
		}
	}
	return nil
}

// scalar unwraps json.Number so numeric ids and values convert cleanly.
// parseID reads ids as decimal. Strings are not handed to cast, which would
// treat a leading zero as an octal prefix.
func parseID(value any) (int, error) {
	if text, ok := value.(string); ok {
		return strconv.Atoi(strings.TrimSpace(text))
	}
	return cast.ToIntE(value)
}

func scalar(value any) any {
	if number, ok := value.(json.Number); ok {
		return number.String()
	}
	return value
}

// criterionFromRecord adapts a typed record. Declared fields win, then the
// attribute map under the usual wire names.
func criterionFromRecord(record models.CriterionRecord) models.Criterion {
	criterion := models.Criterion{
		SearchType: record.SearchType,
		AndOr:      record.AndOr,
	}

	if record.Name != nil {
		criterion.Name = *record.Name
	} else if name := mapString(record.Attributes, "name"); name != nil {
		criterion.Name = *name
	}

	if record.Value != nil {
		criterion.Value = mapString(map[string]any{"value": record.Value}, "value")
	} else {
		criterion.Value = mapString(record.Attributes, "value")
	}

	if criterion.SearchType == nil {
		criterion.SearchType = mapString(record.Attributes, searchTypeKeys...)
	}
	if criterion.AndOr == nil {
		criterion.AndOr = mapString(record.Attributes, andOrKeys...)
	}
	return criterion
}
