package jamf

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamfkit/sgscan/internal/models"
)

func TestListGroups_JSONAndXMLAgree(t *testing.T) {
	tests := []struct {
		groupType models.GroupType
		path      string
		json      string
		xml       string
	}{
		{
			groupType: models.GroupTypeComputer,
			path:      "/JSSResource/computergroups",
			json:      `{"computer_groups":[{"id":1,"name":"All Managed Macs","is_smart":true},{"id":2,"name":"Lab","is_smart":false}]}`,
			xml: `<?xml version="1.0" encoding="UTF-8"?>
<computer_groups><size>2</size>
  <computer_group><id>1</id><name>All Managed Macs</name><is_smart>true</is_smart></computer_group>
  <computer_group><id>2</id><name>Lab</name><is_smart>false</is_smart></computer_group>
</computer_groups>`,
		},
		{
			groupType: models.GroupTypeMobile,
			path:      "/JSSResource/mobiledevicegroups",
			json:      `{"mobile_device_groups":[{"id":"1","name":"All Managed Macs","is_smart":"true"},{"id":"2","name":"Lab","is_smart":"false"}]}`,
			xml: `<mobile_device_groups><size>2</size>
  <mobile_device_group><id>1</id><name>All Managed Macs</name><is_smart>true</is_smart></mobile_device_group>
  <mobile_device_group><id>2</id><name>Lab</name><is_smart>false</is_smart></mobile_device_group>
</mobile_device_groups>`,
		},
		{
			groupType: models.GroupTypeUser,
			path:      "/JSSResource/usergroups",
			json:      `{"user_groups":[{"id":1,"name":"All Managed Macs","is_smart":true},{"id":2,"name":"Lab"}]}`,
			xml: `<user_groups>
  <user_group><id>1</id><name>All Managed Macs</name><is_smart>true</is_smart><is_notify_on_change>false</is_notify_on_change></user_group>
  <user_group><id>2</id><name>Lab</name></user_group>
</user_groups>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.groupType.String(), func(t *testing.T) {
			expected := []models.GroupSummary{
				{GroupType: tt.groupType, ID: 1, Name: "All Managed Macs", IsSmart: true},
				{GroupType: tt.groupType, ID: 2, Name: "Lab", IsSmart: false},
			}

			jsonServer := newFakeJamf(t)
			jsonServer.handle("GET "+tt.path, serveJSON(tt.json))
			fromJSON, err := jsonServer.client(t, basicCredentials).ListGroups(context.Background(), tt.groupType)
			require.NoError(t, err)

			xmlServer := newFakeJamf(t)
			xmlServer.handle("GET "+tt.path, serveXML(tt.xml))
			fromXML, err := xmlServer.client(t, basicCredentials).ListGroups(context.Background(), tt.groupType)
			require.NoError(t, err)

			assert.Equal(t, expected, fromJSON)
			assert.Equal(t, expected, fromXML)
		})
	}
}

func TestListGroups_LegacyMobileKey(t *testing.T) {
	expected := []models.GroupSummary{
		{GroupType: models.GroupTypeMobile, ID: 5, Name: "iPads", IsSmart: true},
	}

	jsonServer := newFakeJamf(t)
	jsonServer.handle("GET /JSSResource/mobiledevicegroups", serveJSON(`{"mobile_groups":[{"id":5,"name":"iPads","is_smart":true}]}`))
	fromJSON, err := jsonServer.client(t, basicCredentials).ListGroups(context.Background(), models.GroupTypeMobile)
	require.NoError(t, err)

	xmlServer := newFakeJamf(t)
	xmlServer.handle("GET /JSSResource/mobiledevicegroups", serveXML(`<mobile_groups><size>1</size>
		<mobile_group><id>5</id><name>iPads</name><is_smart>true</is_smart></mobile_group>
	</mobile_groups>`))
	fromXML, err := xmlServer.client(t, basicCredentials).ListGroups(context.Background(), models.GroupTypeMobile)
	require.NoError(t, err)

	assert.Equal(t, expected, fromJSON)
	assert.Equal(t, expected, fromXML)
}

func TestGetGroup_LegacyMobileKey(t *testing.T) {
	const path = "GET /JSSResource/mobiledevicegroups/id/5"

	jsonServer := newFakeJamf(t)
	jsonServer.handle(path, serveJSON(`{"mobile_group":{"id":5,"name":"iPads","is_smart":true,
		"criteria":[{"name":"Model","and_or":"and","search_type":"like","value":"iPad"}]}}`))
	fromJSON, err := jsonServer.client(t, basicCredentials).GetGroup(context.Background(), models.GroupTypeMobile, 5)
	require.NoError(t, err)

	xmlServer := newFakeJamf(t)
	xmlServer.handle(path, serveXML(`<mobile_group><id>5</id><name>iPads</name><is_smart>true</is_smart>
		<criteria><size>1</size><criterion><name>Model</name><and_or>and</and_or><search_type>like</search_type><value>iPad</value></criterion></criteria>
	</mobile_group>`))
	fromXML, err := xmlServer.client(t, basicCredentials).GetGroup(context.Background(), models.GroupTypeMobile, 5)
	require.NoError(t, err)

	assert.Equal(t, "iPads", fromJSON.Name)
	require.Len(t, fromJSON.Criteria, 1)
	assert.Equal(t, "Model", fromJSON.Criteria[0].Name)
	assert.Equal(t, fromJSON, fromXML)
}

func TestListGroups_SkipsUnusableIDs(t *testing.T) {
	server := newFakeJamf(t)
	server.handle("GET /JSSResource/computergroups", serveJSON(`{"computer_groups":[
		{"id":"abc","name":"Broken"},
		{"name":"No id"},
		{"id":3,"name":"Fine","is_smart":true}
	]}`))

	groups, err := server.client(t, basicCredentials).ListGroups(context.Background(), models.GroupTypeComputer)
	require.NoError(t, err)

	require.Len(t, groups, 1)
	assert.Equal(t, 3, groups[0].ID)
}

func TestListGroups_ZeroPaddedIDs(t *testing.T) {
	jsonServer := newFakeJamf(t)
	jsonServer.handle("GET /JSSResource/computergroups", serveJSON(`{"computer_groups":[
		{"id":"010","name":"A"},
		{"id":" 09 ","name":"B"}
	]}`))
	fromJSON, err := jsonServer.client(t, basicCredentials).ListGroups(context.Background(), models.GroupTypeComputer)
	require.NoError(t, err)

	xmlServer := newFakeJamf(t)
	xmlServer.handle("GET /JSSResource/computergroups", serveXML(`<computer_groups>
		<computer_group><id>010</id><name>A</name></computer_group>
		<computer_group><id>09</id><name>B</name></computer_group>
	</computer_groups>`))
	fromXML, err := xmlServer.client(t, basicCredentials).ListGroups(context.Background(), models.GroupTypeComputer)
	require.NoError(t, err)

	expected := []models.GroupSummary{
		{GroupType: models.GroupTypeComputer, ID: 10, Name: "A"},
		{GroupType: models.GroupTypeComputer, ID: 9, Name: "B"},
	}
	assert.Equal(t, expected, fromJSON)
	assert.Equal(t, expected, fromXML)
}

func TestListGroups_EmptyAndUnknown(t *testing.T) {
	server := newFakeJamf(t)
	server.handle("GET /JSSResource/usergroups", serveJSON(`{"user_groups":[]}`))
	client := server.client(t, basicCredentials)

	groups, err := client.ListGroups(context.Background(), models.GroupTypeUser)
	require.NoError(t, err)
	assert.Empty(t, groups)

	_, err = client.ListGroups(context.Background(), models.GroupType("printer"))
	assert.Error(t, err)
}

func TestListCriteria_ContainerShapes(t *testing.T) {
	const record = `{"name":"Department","priority":0,"and_or":"and","search_type":"is","value":"14"}`

	expected := []models.Criterion{{
		Name:       "Department",
		SearchType: strPtr("is"),
		Value:      strPtr("14"),
		AndOr:      strPtr("and"),
	}}

	tests := []struct {
		name     string
		criteria string
	}{
		{name: "criterion object", criteria: `{"criterion":` + record + `}`},
		{name: "criterion list", criteria: `{"criterion":[` + record + `]}`},
		{name: "bare list", criteria: `[` + record + `]`},
		{name: "size and criterion", criteria: `{"size":1,"criterion":` + record + `}`},
		{name: "single record", criteria: record},
		{name: "numeric value", criteria: `[{"name":"Department","and_or":"and","search_type":"is","value":14}]`},
		{name: "camel case spellings", criteria: `[{"name":"Department","andOr":"and","searchType":"is","value":"14"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newFakeJamf(t)
			server.handle("GET /JSSResource/computergroups/id/7",
				serveJSON(`{"computer_group":{"id":7,"name":"Finance","is_smart":true,"criteria":`+tt.criteria+`}}`))

			criteria, err := server.client(t, basicCredentials).ListCriteria(context.Background(), models.GroupTypeComputer, 7)
			require.NoError(t, err)
			assert.Equal(t, expected, criteria)
		})
	}
}

func TestListCriteria_XML(t *testing.T) {
	server := newFakeJamf(t)
	server.handle("GET /JSSResource/mobiledevicegroups/id/9", serveXML(`<?xml version="1.0" encoding="UTF-8"?>
<mobile_device_group>
  <id>9</id>
  <name>Shared iPads</name>
  <is_smart>true</is_smart>
  <site><id>-1</id><name>None</name></site>
  <criteria>
    <size>2</size>
    <criterion><name>Model</name><priority>0</priority><and_or>and</and_or><search_type>like</search_type><value>iPad</value></criterion>
    <criterion><name>Shared iPad</name><priority>1</priority><search_type>is</search_type><value/></criterion>
  </criteria>
</mobile_device_group>`))

	detail, err := server.client(t, basicCredentials).GetGroup(context.Background(), models.GroupTypeMobile, 9)
	require.NoError(t, err)

	assert.Equal(t, models.GroupSummary{GroupType: models.GroupTypeMobile, ID: 9, Name: "Shared iPads", IsSmart: true}, detail.GroupSummary)
	require.NotNil(t, detail.Site)
	assert.Equal(t, "None", *detail.Site)
	assert.Equal(t, []models.Criterion{
		{Name: "Model", SearchType: strPtr("like"), Value: strPtr("iPad"), AndOr: strPtr("and")},
		{Name: "Shared iPad", SearchType: strPtr("is"), Value: strPtr(""), AndOr: nil},
	}, detail.Criteria)
}

func TestListCriteria_JSONAndXMLAgree(t *testing.T) {
	jsonServer := newFakeJamf(t)
	jsonServer.handle("GET /JSSResource/usergroups/id/4", serveJSON(`{"user_group":{"id":4,"name":"Teachers","is_smart":true,
		"site":{"id":1,"name":"North"},
		"criteria":[{"name":"Position","priority":0,"and_or":"and","search_type":"like","value":"Teacher"}]}}`))

	xmlServer := newFakeJamf(t)
	xmlServer.handle("GET /JSSResource/usergroups/id/4", serveXML(`<user_group><id>4</id><name>Teachers</name><is_smart>true</is_smart>
		<site><id>1</id><name>North</name></site>
		<criteria><size>1</size><criterion><name>Position</name><priority>0</priority><and_or>and</and_or><search_type>like</search_type><value>Teacher</value></criterion></criteria>
	</user_group>`))

	fromJSON, err := jsonServer.client(t, basicCredentials).GetGroup(context.Background(), models.GroupTypeUser, 4)
	require.NoError(t, err)
	fromXML, err := xmlServer.client(t, basicCredentials).GetGroup(context.Background(), models.GroupTypeUser, 4)
	require.NoError(t, err)

	assert.Equal(t, fromJSON, fromXML)
	assert.Equal(t, "North", *fromJSON.Site)
}

func TestListCriteria_MissingContainerIsEmpty(t *testing.T) {
	tests := []struct {
		name    string
		handler func(*fakeJamf)
	}{
		{
			name: "json without criteria",
			handler: func(f *fakeJamf) {
				f.handle("GET /JSSResource/computergroups/id/1", serveJSON(`{"computer_group":{"id":1,"name":"Static","is_smart":false}}`))
			},
		},
		{
			name: "json unexpected root",
			handler: func(f *fakeJamf) {
				f.handle("GET /JSSResource/computergroups/id/1", serveJSON(`{"something_else":{}}`))
			},
		},
		{
			name: "json criteria of unknown shape",
			handler: func(f *fakeJamf) {
				f.handle("GET /JSSResource/computergroups/id/1", serveJSON(`{"computer_group":{"id":1,"criteria":"none"}}`))
			},
		},
		{
			name: "xml with size only",
			handler: func(f *fakeJamf) {
				f.handle("GET /JSSResource/computergroups/id/1", serveXML(`<computer_group><id>1</id><criteria><size>0</size></criteria></computer_group>`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newFakeJamf(t)
			tt.handler(server)

			criteria, err := server.client(t, basicCredentials).ListCriteria(context.Background(), models.GroupTypeComputer, 1)
			require.NoError(t, err)
			assert.NotNil(t, criteria)
			assert.Empty(t, criteria)
		})
	}
}

func TestCriterionFromRecord(t *testing.T) {
	tests := []struct {
		name     string
		record   models.CriterionRecord
		expected models.Criterion
	}{
		{
			name: "declared fields",
			record: models.CriterionRecord{
				Name:       strPtr("Building"),
				SearchType: strPtr("is"),
				Value:      12,
				AndOr:      strPtr("or"),
			},
			expected: models.Criterion{Name: "Building", SearchType: strPtr("is"), Value: strPtr("12"), AndOr: strPtr("or")},
		},
		{
			name: "attributes with alternate spellings",
			record: models.CriterionRecord{
				Attributes: map[string]any{
					"name":       "Building",
					"searchType": "is not",
					"andOr":      "and",
				},
			},
			expected: models.Criterion{Name: "Building", SearchType: strPtr("is not"), AndOr: strPtr("and")},
		},
		{
			name:     "empty record",
			record:   models.CriterionRecord{},
			expected: models.Criterion{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, criterionFromRecord(tt.record))
		})
	}

	criteria := criteriaFromJSON([]models.CriterionRecord{tests[0].record, tests[1].record})
	assert.Len(t, criteria, 2)
}
