package models

// Rate is the quote returned for one order.
// Cost and DollarCost are nil when the zone or the rate card row is missing;
// the other fields are still populated.
type Rate struct {
	Cost           *string `json:"cost"`        // fixed two decimals, e.g. "12.40"
	DollarCost     *string `json:"dollar_cost"` // "$" + Cost
	BillableWeight int     `json:"billable_weight"`
	Zone           *int    `json:"zone"`
	UseDimWeight   bool    `json:"use_dim_weight"`
}

// ZoneMatrix is the row of destination zone codes for one origin zip prefix.
// Zones[n] is the code for destination prefix n+1, e.g. "5" or "5*".
type ZoneMatrix struct {
	OriginPrefix string   `json:"origin_prefix"`
	Zones        []string `json:"zones"`
}

// ZoneMatrixWidth is the number of destination prefixes, 001 through 999.
const ZoneMatrixWidth = 999
