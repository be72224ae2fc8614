// Package wire defines the command routing wire protocol: the messages
// exchanged on the bidirectional subscription stream and on the unary
// dispatch RPC, the codec that serializes them, and the hand-registered
// gRPC service descriptor that carries them (see service.go for why this is
// hand-registered instead of protoc-generated).
package wire

import "encoding/json"

// ErrorEnvelope carries a classified failure alongside a human-readable
// message, attached to CommandResponse when ErrorCode is non-empty.
type ErrorEnvelope struct {
	Message string   `json:"message,omitempty"`
	Details []string `json:"details,omitempty"`
}

// Command is the wire representation of a command dispatched either to the
// router (outbound) or received from it (inbound).
type Command struct {
	MessageID       string          `json:"message_id"`
	CommandName     string          `json:"command_name"`
	RoutingKey      string          `json:"routing_key,omitempty"`
	Priority        int32           `json:"priority"`
	PayloadType     string          `json:"payload_type,omitempty"`
	Payload         []byte          `json:"payload,omitempty"`
	Metadata        json.RawMessage `json:"metadata,omitempty"`
	ClientID        string          `json:"client_id,omitempty"`
	ComponentName   string          `json:"component_name,omitempty"`
}

// CommandResponse is the wire representation of a dispatch result, carrying
// either a payload or a classified error.
type CommandResponse struct {
	RequestID   string          `json:"request_id"`
	MessageID   string          `json:"message_id"`
	PayloadType string          `json:"payload_type,omitempty"`
	Payload     []byte          `json:"payload,omitempty"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	ErrorCode   string          `json:"error_code,omitempty"`
	Error       *ErrorEnvelope  `json:"error,omitempty"`
}

// IsExceptional reports whether this response carries a classified error.
func (r *CommandResponse) IsExceptional() bool {
	return r != nil && r.ErrorCode != ""
}

// Subscribe declares that this client can handle CommandName.
type Subscribe struct {
	CommandName   string `json:"command_name"`
	ClientID      string `json:"client_id"`
	ComponentName string `json:"component_name"`
	MessageID     string `json:"message_id"`
}

// Unsubscribe withdraws a prior Subscribe.
type Unsubscribe struct {
	CommandName string `json:"command_name"`
	ClientID    string `json:"client_id"`
	MessageID   string `json:"message_id"`
}

// FlowControl grants the server permission to deliver Permits more inbound
// commands before the client must be granted more.
type FlowControl struct {
	ClientID string `json:"client_id"`
	Permits  int64  `json:"permits"`
}

// ClientMessage is the sum type of everything a client may send on the
// subscription stream. Exactly one field is populated.
type ClientMessage struct {
	Subscribe       *Subscribe       `json:"subscribe,omitempty"`
	Unsubscribe     *Unsubscribe     `json:"unsubscribe,omitempty"`
	CommandResponse *CommandResponse `json:"command_response,omitempty"`
	FlowControl     *FlowControl     `json:"flow_control,omitempty"`
}

// ServerMessage is the sum type of everything the server may send on the
// subscription stream. Only Command is modeled; any other kind the server
// sends decodes as an empty ServerMessage and is ignored. Every Command
// received is enqueued, whether or not this client subscribed to its name.
type ServerMessage struct {
	Command *Command `json:"command,omitempty"`
}
