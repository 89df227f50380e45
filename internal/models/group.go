package models

import (
	"fmt"
	"slices"
	"strings"
)

// GroupType identifies which family of smart groups a record belongs to.
type GroupType string

const (
	GroupTypeComputer GroupType = "computer"
	GroupTypeMobile   GroupType = "mobile"
	GroupTypeUser     GroupType = "user"
)

// GroupTypes lists every supported group type in reporting order.
var GroupTypes = []GroupType{
	GroupTypeComputer,
	GroupTypeMobile,
	GroupTypeUser,
}

func ParseGroupType(value string) (GroupType, error) {
	groupType := GroupType(strings.ToLower(strings.TrimSpace(value)))
	if !groupType.IsValid() {
		return "", fmt.Errorf("unknown group type %q (expected one of: computer, mobile, user)", value)
	}
	return groupType, nil
}

func ParseGroupTypes(values []string) ([]GroupType, error) {
	var types []GroupType
	for _, value := range values {
		groupType, err := ParseGroupType(value)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(types, groupType) {
			types = append(types, groupType)
		}
	}
	return types, nil
}

func (g GroupType) IsValid() bool {
	return slices.Contains(GroupTypes, g)
}

func (g GroupType) String() string {
	return string(g)
}

// CollectionEndpoint is the Classic API resource listing groups of this type.
func (g GroupType) CollectionEndpoint() string {
	switch g {
	case GroupTypeComputer:
		return "computergroups"
	case GroupTypeMobile:
		return "mobiledevicegroups"
	case GroupTypeUser:
		return "usergroups"
	}
	return ""
}

// DetailEndpoint is the Classic API resource for a single group.
func (g GroupType) DetailEndpoint(id int) string {
	return fmt.Sprintf("%s/id/%d", g.CollectionEndpoint(), id)
}

// ListKeys are the keys a list response may wrap its records in, preferred first.
// Older tooling addressed mobile groups as "mobile_groups" so both are accepted.
func (g GroupType) ListKeys() []string {
	switch g {
	case GroupTypeMobile:
		return []string{"mobile_device_groups", "mobile_groups"}
	default:
		return []string{string(g) + "_groups"}
	}
}

// RecordKeys are the element/key names of a single group record, preferred
// first. Mobile records follow the same legacy naming as ListKeys.
func (g GroupType) RecordKeys() []string {
	switch g {
	case GroupTypeComputer:
		return []string{"computer_group"}
	case GroupTypeMobile:
		return []string{"mobile_device_group", "mobile_group"}
	case GroupTypeUser:
		return []string{"user_group"}
	}
	return nil
}

// Label is the short heading used in table output.
func (g GroupType) Label() string {
	switch g {
	case GroupTypeComputer:
		return "Computer SG"
	case GroupTypeMobile:
		return "Mobile SG"
	case GroupTypeUser:
		return "User SG"
	}
	return string(g)
}

// GroupSummary identifies a listed group before its criteria are fetched.
type GroupSummary struct {
	GroupType GroupType `json:"group_type"`
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	IsSmart   bool      `json:"is_smart"`
}

func (g GroupSummary) String() string {
	return fmt.Sprintf("%s group %q (id=%d)", g.GroupType, g.Name, g.ID)
}

// GroupDetail is a group together with its full criteria definition.
type GroupDetail struct {
	GroupSummary
	Site     *string     `json:"site"`
	Criteria []Criterion `json:"criteria"`
}
