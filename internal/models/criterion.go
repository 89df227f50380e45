package models

// Criterion is one rule clause inside a smart group definition.
// Optional fields are nil when the server did not send them.
type Criterion struct {
	Name       string  `json:"name"`
	SearchType *string `json:"search_type"`
	Value      *string `json:"value"`
	AndOr      *string `json:"and_or"`
}

// CriterionRecord is a criterion produced by typed API models rather than
// decoded documents. Attributes the struct does not declare are kept in
// Attributes under their wire names.
type CriterionRecord struct {
	Name       *string
	SearchType *string
	Value      any
	AndOr      *string

	Attributes map[string]any
}
