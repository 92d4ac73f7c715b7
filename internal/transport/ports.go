package transport

import "context"

// EventKind discriminates the normalized inbound payloads the core accepts.
type EventKind string

const (
	KindText    EventKind = "text"
	KindAction  EventKind = "action"
	KindContact EventKind = "contact"
	KindPhoto   EventKind = "photo"
)

// Event is an inbound user event, already stripped of transport concerns.
// Identity is the external chat identity; exactly one payload field is set
// for the kind.
type Event struct {
	Identity int64     `json:"identity"`
	Kind     EventKind `json:"kind"`

	Text     string `json:"text,omitempty"`      // KindText
	Action   string `json:"action,omitempty"`    // KindAction: a button token
	Phone    string `json:"phone,omitempty"`     // KindContact
	MediaRef string `json:"media_ref,omitempty"` // KindPhoto

	// Sender profile, used to register users on first contact.
	FullName string `json:"full_name,omitempty"`
	Username string `json:"username,omitempty"`
}

// Option is a button the transport should render next to a message. Label is
// display text; Action is the token that comes back as a KindAction event.
type Option struct {
	Label  string `json:"label"`
	Action string `json:"action"`
}

// Renderer is the outbound surface. The core only asks for text or a photo
// with options; markup and keyboards belong to the transport layer.
type Renderer interface {
	ShowText(ctx context.Context, identity int64, text string, options []Option) error
	ShowPhoto(ctx context.Context, identity int64, photoRef, caption string, options []Option) error
}
