package publishers

import "context"

// Publisher delivers drift events to a downstream sink (SQS, SNS, HTTP, Pub/Sub).
type Publisher interface {
	ID() string
	Type() string
	Publish(ctx context.Context, evt Event) error
}
