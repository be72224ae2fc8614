package wire

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/Goden-Gun/command-connector/pkg/codes"
	"github.com/Goden-Gun/command-connector/pkg/localbus"
)

// CodecName is the gRPC content-subtype this package's Codec registers
// under. The connection manager must dial with
// grpc.WithDefaultCallOptions(grpc.CallContentSubtype(wire.CodecName)) (or
// pass it per call) so RPCs use it.
const CodecName = "cmdrouterjson"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// jsonCodec is a grpc/encoding.Codec that marshals wire messages as JSON
// instead of protobuf binary. The wire protocol here has no compiled
// .proto/.pb.go pair (this environment cannot run protoc), so messages are
// plain Go structs and a custom codec - a documented gRPC extension point -
// carries them instead.
type jsonCodec struct{}

func (jsonCodec) Name() string { return CodecName }

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// EncodeCommand builds the wire Command for an outbound dispatch, attaching
// the routing key and priority computed by the caller's routing strategy and
// priority calculator.
func EncodeCommand(msg localbus.Message, routingKey string, priority int32) (*Command, error) {
	metadata, err := marshalMetadata(msg.Metadata)
	if err != nil {
		return nil, fmt.Errorf("wire: encode command metadata: %w", err)
	}
	return &Command{
		MessageID:   msg.Identifier,
		CommandName: msg.CommandName,
		RoutingKey:  routingKey,
		Priority:    priority,
		PayloadType: msg.PayloadType,
		Payload:     msg.Payload,
		Metadata:    metadata,
	}, nil
}

// DecodeCommand restores a localbus.Message from a wire Command received from
// the router.
func DecodeCommand(cmd *Command) (localbus.Message, error) {
	meta, err := unmarshalMetadata(cmd.Metadata)
	if err != nil {
		return localbus.Message{}, fmt.Errorf("wire: decode command metadata: %w", err)
	}
	return localbus.Message{
		Identifier:  cmd.MessageID,
		CommandName: cmd.CommandName,
		PayloadType: cmd.PayloadType,
		Payload:     cmd.Payload,
		Metadata:    meta,
	}, nil
}

// EncodeResult builds the wire CommandResponse for a local dispatch result,
// classifying an exceptional result onto the wire error-code taxonomy.
func EncodeResult(result localbus.ResultMessage, requestID, messageID string) *CommandResponse {
	resp := &CommandResponse{RequestID: requestID, MessageID: messageID}
	if !result.Exceptional {
		resp.PayloadType = result.PayloadType
		resp.Payload = result.Payload
		return resp
	}
	code := codes.CommandExecutionError
	if result.Exception != nil {
		if resolved, ok := codes.Lookup(result.Exception.Code); ok {
			code = resolved
		}
	}
	resp.ErrorCode = code.Symbol
	msg := code.Message
	if result.Exception != nil && result.Exception.Err != nil {
		msg = result.Exception.Err.Error()
	}
	resp.Error = &ErrorEnvelope{Message: msg}
	return resp
}

// EncodeDispatchError builds a CommandResponse for a failure attributable to
// the transport or client plumbing rather than the handler.
func EncodeDispatchError(requestID, messageID string, cause error) *CommandResponse {
	msg := "no result from command executor"
	if cause != nil {
		msg = cause.Error()
	}
	return &CommandResponse{
		RequestID: requestID,
		MessageID: messageID,
		ErrorCode: codes.CommandDispatchError.Symbol,
		Error:     &ErrorEnvelope{Message: msg},
	}
}

// DecodeResult converts a wire CommandResponse into a local ResultMessage.
// It never panics or errors to the caller. A nil response is turned into an
// exceptional ResultMessage carrying COMMAND_DISPATCH_ERROR, since no result
// reached the caller at all. A non-nil response without an error code
// decodes as a success, even when its payload is empty; its fields are not
// otherwise validated. A response the remote router marked exceptional keeps whatever
// error code the remote sent, so a caller can still distinguish a remote
// handler failure from a dispatch/transport failure.
func DecodeResult(resp *CommandResponse) localbus.ResultMessage {
	if resp == nil {
		return localbus.AsExceptionalResult(fmt.Errorf("wire: nil command response"), codes.CommandDispatchError.Symbol)
	}
	if resp.IsExceptional() {
		msg := resp.ErrorCode
		if resp.Error != nil && resp.Error.Message != "" {
			msg = resp.Error.Message
		}
		return localbus.AsExceptionalResult(fmt.Errorf("%s", msg), resp.ErrorCode)
	}
	return localbus.ResultMessage{PayloadType: resp.PayloadType, Payload: resp.Payload}
}

func marshalMetadata(s *structpb.Struct) (json.RawMessage, error) {
	if s == nil {
		return nil, nil
	}
	data, err := protojson.Marshal(s)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}

func unmarshalMetadata(raw json.RawMessage) (*structpb.Struct, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	s := &structpb.Struct{}
	if err := protojson.Unmarshal(raw, s); err != nil {
		return nil, err
	}
	return s, nil
}
