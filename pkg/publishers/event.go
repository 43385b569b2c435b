package publishers

import (
	"time"

	"github.com/edgewall-hq/go-sonicos/internal/domain"
)

// Event represents the payload published downstream.
type Event struct {
	TargetID   string       `json:"target_id"`
	TargetName string       `json:"target_name"`
	Drift      domain.Drift `json:"drift"`
	EmittedAt  time.Time    `json:"emitted_at"`
}

// NewEvent constructs an Event for the given target + drift observation.
func NewEvent(targetID, targetName string, drift domain.Drift) Event {
	return Event{
		TargetID:   targetID,
		TargetName: targetName,
		Drift:      drift,
		EmittedAt:  time.Now().UTC(),
	}
}
