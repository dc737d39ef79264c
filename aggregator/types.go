package aggregator

import "encoding/json"

// TokenPair holds the aggregator access/refresh token pair. Expiry
// fields are lifetimes in seconds, as reported by the token endpoint.
type TokenPair struct {
	Access         string `json:"access"`
	AccessExpires  int    `json:"access_expires"`
	Refresh        string `json:"refresh"`
	RefreshExpires int    `json:"refresh_expires"`
}

// TokenRefresh is the response of a refresh call. Only the access
// fields are reissued; the refresh token stays valid aggregator-side.
type TokenRefresh struct {
	Access        string `json:"access"`
	AccessExpires int    `json:"access_expires"`
}

// Institution is a bank the user can link.
type Institution struct {
	ID                   string   `json:"id"`
	Name                 string   `json:"name"`
	BIC                  string   `json:"bic"`
	TransactionTotalDays string   `json:"transaction_total_days"`
	Countries            []string `json:"countries"`
	Logo                 string   `json:"logo"`
}

// Agreement links a newly created requisition to the consent link the
// end user must visit to authenticate with their bank.
type Agreement struct {
	RequisitionID string
	InstitutionID string
	ReferenceID   string
	ConsentLink   string
}

// Requisition is the aggregator's record of a consent session and the
// accounts linked under it.
type Requisition struct {
	ID       string   `json:"id"`
	Status   string   `json:"status"`
	Accounts []string `json:"accounts"`
}

// AccountBundle is the full data set for one linked account. The four
// payloads are passed through untouched from the aggregator.
type AccountBundle struct {
	Metadata     json.RawMessage `json:"metadata"`
	Details      json.RawMessage `json:"details"`
	Balances     json.RawMessage `json:"balances"`
	Transactions json.RawMessage `json:"transactions"`
}
