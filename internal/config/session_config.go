package config

const (
	sessionSecretVar = "SESSION_SECRET"

	// Browser sessions live for a single linking flow, generous enough
	// to cover the out-of-band bank authentication step.
	defaultSessionMaxAge = 60 * 60 // one hour, in seconds
)

type Session struct{}

var _ SessionConfig = Session{}

// GetSessionSecret returns the key used to sign browser session
// cookies. The default is only suitable for local development.
func (Session) GetSessionSecret() string {
	return GetEnv(sessionSecretVar, "random-string-that-will-be-the-key")
}

func (Session) GetSessionMaxAge() int {
	return defaultSessionMaxAge
}
