package config

type Config interface {
	EnvConfig
	AggregatorConfig
	SessionConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetBaseURL() string
	GetEnv() string
}

type AggregatorConfig interface {
	GetAggregatorURL() string
	GetSecretID() string
	GetSecretKey() string
}

type SessionConfig interface {
	GetSessionSecret() string
	GetSessionMaxAge() int
}

type mainConfig struct {
	EnvVars
	Aggregator
	Session
}

func New() Config {
	return mainConfig{}
}
