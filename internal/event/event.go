package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Event is a provider notification. The dispatcher only reads Type.
type Event struct {
	ID       string
	Type     string
	Created  time.Time
	Livemode bool

	// Object is the raw data.object of the notification.
	Object json.RawMessage
	Raw    []byte
}

// Callback handles one event. target is whatever the caller of Dispatch
// passes along, typically the inbound HTTP request.
type Callback func(ctx context.Context, target any, evt *Event) error

type UnknownEventTypeError struct {
	Type string
}

func (e *UnknownEventTypeError) Error() string {
	return fmt.Sprintf("unknown event type %q", e.Type)
}
