// Package audit publishes a best-effort record of every command dispatch
// completion - inbound (subscriber-handled) or outbound (Dispatch-issued) -
// to Kafka, independent of the command's own result delivery. This is a
// supplemental observability side-channel, separate from guaranteeing
// delivery or persistence of the commands themselves.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Goden-Gun/command-connector/pkg/kafka"
	"github.com/Goden-Gun/command-connector/pkg/localbus"
	"github.com/Goden-Gun/command-connector/pkg/logger"
)

// Direction distinguishes which side of the connector produced the record.
type Direction string

const (
	Inbound  Direction = "inbound"
	Outbound Direction = "outbound"
)

// Record is one audit entry, published as the JSON value of a Kafka message
// keyed by command name.
type Record struct {
	Direction     Direction `json:"direction"`
	CommandName   string    `json:"command_name"`
	MessageID     string    `json:"message_id"`
	ClientID      string    `json:"client_id,omitempty"`
	ComponentName string    `json:"component_name,omitempty"`
	Exceptional   bool      `json:"exceptional"`
	ErrorCode     string    `json:"error_code,omitempty"`
	DurationMS    int64     `json:"duration_ms"`
	Timestamp     time.Time `json:"timestamp"`
}

// Recorder publishes Records to Kafka via a kafka.Manager. A nil Recorder
// (or nil *kafka.Manager) is a valid no-op, so audit logging can be disabled
// without conditionals at every call site.
type Recorder struct {
	manager *kafka.Manager
	topic   string
	clock   func() time.Time
}

// NewRecorder builds a Recorder publishing to topic on manager. manager may
// be nil, in which case Record calls are no-ops.
func NewRecorder(manager *kafka.Manager, topic string) *Recorder {
	return &Recorder{manager: manager, topic: topic, clock: time.Now}
}

// RecordInbound publishes an audit record for a command this connector
// routed from the remote router to the local bus.
func (r *Recorder) RecordInbound(ctx context.Context, commandName, messageID string, result localbus.ResultMessage, duration time.Duration) {
	if r == nil || r.manager == nil {
		return
	}
	r.publish(ctx, Record{
		Direction:   Inbound,
		CommandName: commandName,
		MessageID:   messageID,
		Exceptional: result.Exceptional,
		ErrorCode:   errorCodeOf(result),
		DurationMS:  duration.Milliseconds(),
		Timestamp:   r.clock(),
	})
}

// RecordOutbound publishes an audit record for a command this connector
// dispatched to the remote router on the local bus's behalf.
func (r *Recorder) RecordOutbound(ctx context.Context, msg localbus.Message, clientID, componentName string, result localbus.ResultMessage, duration time.Duration) {
	if r == nil || r.manager == nil {
		return
	}
	r.publish(ctx, Record{
		Direction:     Outbound,
		CommandName:   msg.CommandName,
		MessageID:     msg.Identifier,
		ClientID:      clientID,
		ComponentName: componentName,
		Exceptional:   result.Exceptional,
		ErrorCode:     errorCodeOf(result),
		DurationMS:    duration.Milliseconds(),
		Timestamp:     r.clock(),
	})
}

func errorCodeOf(result localbus.ResultMessage) string {
	if !result.Exceptional || result.Exception == nil {
		return ""
	}
	return result.Exception.Code
}

func (r *Recorder) publish(ctx context.Context, rec Record) {
	if r == nil || r.manager == nil {
		return
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		logger.WithError(err).Warn("audit: failed to marshal record")
		return
	}
	if err := r.manager.Publish(ctx, r.topic, []byte(rec.CommandName), payload); err != nil {
		logger.WithError(err).Warn("audit: failed to publish record")
	}
}
