package model

import "encoding/json"

// EventType identifies a named event on the wire
type EventType string

// Client -> server events
const (
	EventRegister       EventType = "register"
	EventLogin          EventType = "login"
	EventCheckUser      EventType = "check_user"
	EventPrivateMessage EventType = "private_message"
)

// Server -> client events
const (
	EventRegistrationResponse EventType = "registration_response"
	EventLoginResponse        EventType = "login_response"
	EventUserCheckResponse    EventType = "user_check_response"
	EventNewPrivateMessage    EventType = "new_private_message"
	EventMessageSent          EventType = "message_sent"
	EventMessageError         EventType = "message_error"
	EventUserJoined           EventType = "user_joined"
	EventUserLeft             EventType = "user_left"
)

// Event is the wire envelope for all messages in both directions.
// Payload stays raw on decode so each handler unmarshals its own shape.
type Event struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// CredentialsPayload carries register and login requests
type CredentialsPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// CheckUserPayload asks whether a user is currently reachable
type CheckUserPayload struct {
	Username string `json:"username"`
}

// PrivateMessagePayload carries an outgoing message to a recipient
type PrivateMessagePayload struct {
	Recipient string `json:"recipient"`
	Message   string `json:"message"`
}

// ResponsePayload carries registration_response and login_response
type ResponsePayload struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// UserCheckResponsePayload answers a check_user request
type UserCheckResponsePayload struct {
	Exists bool `json:"exists"`
}

// IncomingMessagePayload carries new_private_message to the recipient
type IncomingMessagePayload struct {
	Sender  string `json:"sender"`
	Message string `json:"message"`
}

// MessageSentPayload confirms delivery back to the sender
type MessageSentPayload struct {
	Recipient string `json:"recipient"`
	Message   string `json:"message"`
}

// MessageErrorPayload reports a routing failure to the sender
type MessageErrorPayload struct {
	Message string `json:"message"`
}

// PresencePayload carries user_joined and user_left notifications
type PresencePayload struct {
	Username string `json:"username"`
}
