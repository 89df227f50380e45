package jamf

import (
	"context"
	"fmt"
	"slices"

	"github.com/beevik/etree"
	"github.com/sirupsen/logrus"

	"github.com/jamfkit/sgscan/internal/models"
)

// ListGroups lists every group of the given type. Records with an unusable
// id are skipped so one bad record does not hide the rest.
func (c *Client) ListGroups(ctx context.Context, groupType models.GroupType) ([]models.GroupSummary, error) {
	if !groupType.IsValid() {
		return nil, fmt.Errorf("unknown group type %q", groupType)
	}

	payload, err := c.Fetch(ctx, groupType.CollectionEndpoint())
	if err != nil {
		return nil, err
	}

	var groups []models.GroupSummary
	switch payload.Format {
	case FormatJSON:
		groups = groupsFromJSON(groupType, payload.JSON)
	case FormatXML:
		groups = groupsFromXML(groupType, payload.XML)
	}

	logrus.WithFields(logrus.Fields{
		"type":   groupType,
		"format": payload.Format,
		"count":  len(groups),
	}).Debugln("Listed groups")

	return groups, nil
}

// GetGroup fetches one group with its criteria. A group without a
// recognizable criteria block has no criteria; that is not an error.
func (c *Client) GetGroup(ctx context.Context, groupType models.GroupType, id int) (*models.GroupDetail, error) {
	if !groupType.IsValid() {
		return nil, fmt.Errorf("unknown group type %q", groupType)
	}

	payload, err := c.Fetch(ctx, groupType.DetailEndpoint(id))
	if err != nil {
		return nil, err
	}

	var detail *models.GroupDetail
	switch payload.Format {
	case FormatJSON:
		detail = detailFromJSON(groupType, id, payload.JSON)
	case FormatXML:
		detail = detailFromXML(groupType, id, payload.XML)
	default:
		detail = emptyDetail(groupType, id)
	}

	if detail.Criteria == nil {
		detail.Criteria = []models.Criterion{}
	}
	return detail, nil
}

// ListCriteria returns the canonical criteria of one group.
func (c *Client) ListCriteria(ctx context.Context, groupType models.GroupType, id int) ([]models.Criterion, error) {
	detail, err := c.GetGroup(ctx, groupType, id)
	if err != nil {
		return nil, err
	}
	return detail.Criteria, nil
}

func groupsFromJSON(groupType models.GroupType, document any) []models.GroupSummary {
	var records []any

	switch root := document.(type) {
	case map[string]any:
		for _, key := range groupType.ListKeys() {
			if value, ok := root[key]; ok {
				records = recordList(groupType, value)
				break
			}
		}
	case []any:
		records = root
	}

	groups := make([]models.GroupSummary, 0, len(records))
	for _, item := range records {
		record, ok := item.(map[string]any)
		if !ok {
			continue
		}
		summary, err := summaryFromMap(groupType, record)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"type": groupType,
				"name": record["name"],
			}).WithError(err).Warnln("Skipping group record")
			continue
		}
		groups = append(groups, summary)
	}
	return groups
}

// recordList accepts a list of records, a single record, or a wrapper
// keyed by the singular record name.
func recordList(groupType models.GroupType, value any) []any {
	switch typed := value.(type) {
	case []any:
		return typed
	case map[string]any:
		for _, key := range groupType.RecordKeys() {
			if inner, ok := typed[key]; ok {
				return recordList(groupType, inner)
			}
		}
		return []any{typed}
	}
	return nil
}

func groupsFromXML(groupType models.GroupType, root *etree.Element) []models.GroupSummary {
	var elements []*etree.Element
	for _, key := range groupType.RecordKeys() {
		if elements = root.FindElements(".//" + key); len(elements) > 0 {
			break
		}
	}

	groups := make([]models.GroupSummary, 0, len(elements))
	for _, element := range elements {
		summary, err := summaryFromElement(groupType, element)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"type": groupType,
				"name": derefOr(elementText(element, "name"), ""),
			}).WithError(err).Warnln("Skipping group record")
			continue
		}
		groups = append(groups, summary)
	}
	return groups
}

func emptyDetail(groupType models.GroupType, id int) *models.GroupDetail {
	return &models.GroupDetail{
		GroupSummary: models.GroupSummary{GroupType: groupType, ID: id},
	}
}

func detailFromJSON(groupType models.GroupType, id int, document any) *models.GroupDetail {
	detail := emptyDetail(groupType, id)

	root, ok := document.(map[string]any)
	if !ok {
		return detail
	}

	var record map[string]any
	ok = false
	for _, key := range groupType.RecordKeys() {
		if record, ok = root[key].(map[string]any); ok {
			break
		}
	}
	if !ok {
		if _, hasCriteria := root["criteria"]; !hasCriteria {
			return detail
		}
		record = root
	}

	if summary, err := summaryFromMap(groupType, record); err == nil {
		detail.GroupSummary = summary
	} else {
		detail.Name = derefOr(mapString(record, "name"), "")
	}
	detail.Site = siteFromMap(record)
	detail.Criteria = criteriaFromJSON(record["criteria"])
	return detail
}

func detailFromXML(groupType models.GroupType, id int, root *etree.Element) *models.GroupDetail {
	detail := emptyDetail(groupType, id)

	record := recordElement(groupType, root)
	if record == nil {
		return detail
	}

	if summary, err := summaryFromElement(groupType, record); err == nil {
		detail.GroupSummary = summary
	} else {
		detail.Name = derefOr(elementText(record, "name"), "")
	}
	detail.Site = siteFromElement(record)

	criteria := record.SelectElement("criteria")
	if criteria == nil {
		criteria = record.FindElement(".//criteria")
	}
	detail.Criteria = criteriaFromElement(criteria)
	return detail
}

// recordElement returns root when it is the group record, otherwise the
// first nested record element.
func recordElement(groupType models.GroupType, root *etree.Element) *etree.Element {
	keys := groupType.RecordKeys()
	if slices.Contains(keys, root.Tag) {
		return root
	}
	for _, key := range keys {
		if record := root.FindElement(".//" + key); record != nil {
			return record
		}
	}
	return nil
}

func derefOr(value *string, fallback string) string {
	if value == nil {
		return fallback
	}
	return *value
}
