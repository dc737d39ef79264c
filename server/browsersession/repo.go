package browsersession

import "time"

// Session is the server-side state for one browser session. The
// requisition id is written when a consent agreement is created and
// read once when the aggregator redirects the user back to /results.
type Session struct {
	RequisitionID string
	InstitutionID string

	CreatedAt time.Time
	ExpiresAt time.Time
}

type Repo interface {
	Upsert(sessionID string, session Session) error
	Get(sessionID string) (Session, error)
	Delete(sessionID string) error
}
