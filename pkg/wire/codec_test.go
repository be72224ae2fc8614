package wire

import (
	"testing"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/Goden-Gun/command-connector/pkg/codes"
	"github.com/Goden-Gun/command-connector/pkg/localbus"
)

func TestEncodeDecodeCommandRoundTrip(t *testing.T) {
	meta, err := structpb.NewStruct(map[string]interface{}{"tenant": "acme"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	msg := localbus.Message{
		Identifier:  "m-1",
		CommandName: "DoThing",
		PayloadType: "application/json",
		Payload:     []byte(`{"x":1}`),
		Metadata:    meta,
	}

	cmd, err := EncodeCommand(msg, "DoThing", 5)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if cmd.MessageID != "m-1" || cmd.CommandName != "DoThing" || cmd.Priority != 5 {
		t.Fatalf("unexpected encoded command: %+v", cmd)
	}

	decoded, err := DecodeCommand(cmd)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Identifier != msg.Identifier || decoded.CommandName != msg.CommandName {
		t.Fatalf("round trip mismatch: %+v", decoded)
	}
	if decoded.Metadata.GetFields()["tenant"].GetStringValue() != "acme" {
		t.Fatalf("metadata lost in round trip: %+v", decoded.Metadata)
	}
}

func TestEncodeResultClassifiesConcurrencyException(t *testing.T) {
	result := localbus.AsExceptionalResult(errBoom, codes.ConcurrencyException.Symbol)
	resp := EncodeResult(result, "req-1", "msg-1")
	if resp.ErrorCode != codes.ConcurrencyException.Symbol {
		t.Fatalf("expected concurrency exception code, got %s", resp.ErrorCode)
	}
}

func TestEncodeResultClassifiesExecutionError(t *testing.T) {
	result := localbus.AsExceptionalResult(errBoom, codes.CommandExecutionError.Symbol)
	resp := EncodeResult(result, "req-1", "msg-1")
	if resp.ErrorCode != codes.CommandExecutionError.Symbol {
		t.Fatalf("expected execution error code, got %s", resp.ErrorCode)
	}
}

func TestEncodeDispatchErrorDefaultsMessage(t *testing.T) {
	resp := EncodeDispatchError("req-1", "msg-1", nil)
	if resp.ErrorCode != codes.CommandDispatchError.Symbol {
		t.Fatalf("expected dispatch error code, got %s", resp.ErrorCode)
	}
	if resp.Error.Message != "no result from command executor" {
		t.Fatalf("unexpected default message: %s", resp.Error.Message)
	}
}

func TestDecodeResultNeverPanicsOnMalformedResponse(t *testing.T) {
	result := DecodeResult(nil)
	if !result.Exceptional {
		t.Fatalf("expected nil response to decode as exceptional")
	}
	if result.Exception.Code != codes.CommandDispatchError.Symbol {
		t.Fatalf("expected a nil response to decode as a dispatch error, got %s", result.Exception.Code)
	}

	malformed := &CommandResponse{RequestID: "r", MessageID: "m"}
	result = DecodeResult(malformed)
	if result.Exceptional {
		t.Fatalf("a response with no error code should decode as a (possibly empty) success")
	}
}

func TestDecodeResultKeepsRemoteHandlerErrorCodeDistinctFromDispatchError(t *testing.T) {
	remoteFailure := &CommandResponse{
		RequestID: "r", MessageID: "m",
		ErrorCode: codes.CommandExecutionError.Symbol,
		Error:     &ErrorEnvelope{Message: "handler blew up"},
	}
	result := DecodeResult(remoteFailure)
	if !result.Exceptional || result.Exception.Code != codes.CommandExecutionError.Symbol {
		t.Fatalf("expected a remote handler failure to keep COMMAND_EXECUTION_ERROR, got %+v", result.Exception)
	}

	transportFailure := DecodeResult(nil)
	if transportFailure.Exception.Code != codes.CommandDispatchError.Symbol {
		t.Fatalf("expected a transport failure to be COMMAND_DISPATCH_ERROR, got %s", transportFailure.Exception.Code)
	}
	if transportFailure.Exception.Code == result.Exception.Code {
		t.Fatalf("dispatch and execution failures must not collapse onto the same code")
	}
}

func TestDecodeResultSuccessPath(t *testing.T) {
	resp := &CommandResponse{PayloadType: "text/plain", Payload: []byte("ok")}
	result := DecodeResult(resp)
	if result.Exceptional {
		t.Fatalf("expected non-exceptional result")
	}
	if string(result.Payload) != "ok" {
		t.Fatalf("unexpected payload: %s", result.Payload)
	}
}

var errBoom = &stubError{"boom"}

type stubError struct{ msg string }

func (e *stubError) Error() string { return e.msg }
