package config

const (
	aggregatorURLVar = "AGGREGATOR_URL"
	secretIDVar      = "AGGREGATOR_SECRET_ID"
	secretKeyVar     = "AGGREGATOR_SECRET_KEY"

	defaultAggregatorURL = "https://bankaccountdata.gocardless.com/api/v2"
)

type Aggregator struct{}

var _ AggregatorConfig = Aggregator{}

func (Aggregator) GetAggregatorURL() string {
	return GetEnv(aggregatorURLVar, defaultAggregatorURL)
}

// GetSecretID returns the aggregator portal secret id. Must be present
// before the first token issuance.
func (Aggregator) GetSecretID() string {
	return GetEnv(secretIDVar, "")
}

func (Aggregator) GetSecretKey() string {
	return GetEnv(secretKeyVar, "")
}
