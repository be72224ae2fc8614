package commandrouter_test

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	grpccodes "google.golang.org/grpc/codes"

	"github.com/Goden-Gun/command-connector/pkg/auth"
	"github.com/Goden-Gun/command-connector/pkg/commandrouter"
	"github.com/Goden-Gun/command-connector/pkg/localbus"
	"github.com/Goden-Gun/command-connector/pkg/wire"
)

// memoryVersionStore is an in-memory auth.TokenVersionStore: the real
// connector authenticates against Redis (pkg/auth/redis_store.go), but this
// in-process harness only needs the interface, not a running Redis.
type memoryVersionStore struct {
	mu       sync.Mutex
	versions map[int64]int64
}

func newMemoryVersionStore() *memoryVersionStore {
	return &memoryVersionStore{versions: make(map[int64]int64)}
}

func (s *memoryVersionStore) IncrVersion(_ context.Context, userID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.versions[userID]++
	return s.versions[userID], nil
}

func (s *memoryVersionStore) GetVersion(_ context.Context, userID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.versions[userID], nil
}

// harnessServer is a wire.Handler that gates both RPCs on a token carried
// as call metadata, verified with auth.VerifySimpleToken - this package
// has no server of its own, only the client half, so the test supplies a
// minimal stand-in the way a real router would authenticate a client.
type harnessServer struct {
	tokenCfg auth.SimpleTokenConfig
	store    auth.TokenVersionStore

	pushCommandName string

	subscribed chan string
	responses  chan *wire.CommandResponse
}

func (h *harnessServer) authenticate(ctx context.Context) error {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return status.Error(grpccodes.Unauthenticated, "missing metadata")
	}
	tokens := md.Get("authorization")
	if len(tokens) == 0 {
		return status.Error(grpccodes.Unauthenticated, "missing authorization token")
	}
	if _, err := auth.VerifySimpleToken(ctx, tokens[0], h.tokenCfg, h.store); err != nil {
		return status.Error(grpccodes.Unauthenticated, err.Error())
	}
	return nil
}

func (h *harnessServer) Dispatch(ctx context.Context, cmd *wire.Command) (*wire.CommandResponse, error) {
	if err := h.authenticate(ctx); err != nil {
		return nil, err
	}
	return &wire.CommandResponse{
		RequestID:   cmd.MessageID,
		MessageID:   cmd.MessageID,
		PayloadType: cmd.PayloadType,
		Payload:     append([]byte("unary:"), cmd.Payload...),
	}, nil
}

func (h *harnessServer) Stream(srv wire.StreamServer) error {
	if err := h.authenticate(srv.Context()); err != nil {
		return err
	}
	for {
		msg, err := srv.Recv()
		if err != nil {
			return nil
		}
		switch {
		case msg.Subscribe != nil:
			name := msg.Subscribe.CommandName
			h.subscribed <- name
			if name == h.pushCommandName {
				go func() {
					_ = srv.Send(&wire.ServerMessage{Command: &wire.Command{
						MessageID:   "inbound-1",
						CommandName: name,
						PayloadType: "text/plain",
						Payload:     []byte("ping"),
					}})
				}()
			}
		case msg.CommandResponse != nil:
			h.responses <- msg.CommandResponse
		case msg.Unsubscribe != nil, msg.FlowControl != nil:
			// Nothing to do: the harness only asserts on subscribe pushes
			// and command responses.
		}
	}
}

// bufconnManager is a ConnectionManager test double backed by an in-process
// bufconn channel instead of a real dialed socket - Dialer (dialer.go) only
// knows how to dial a real address, so this harness wires the same
// CommandStream receive-loop shape directly onto a bufconn connection.
type bufconnManager struct {
	conn *grpc.ClientConn
}

func (m *bufconnManager) Channel() grpc.ClientConnInterface { return m.conn }

func (m *bufconnManager) CommandStream(ctx context.Context, inbound commandrouter.InboundObserver) (wire.StreamClient, error) {
	stream, err := wire.NewStreamClient(ctx, m.conn)
	if err != nil {
		return nil, err
	}
	go func() {
		for {
			msg, err := stream.Recv()
			if err != nil {
				inbound.OnError(err)
				return
			}
			inbound.OnNext(msg)
		}
	}()
	return stream, nil
}

func (m *bufconnManager) AddReconnectListener(func())  {}
func (m *bufconnManager) AddDisconnectListener(func()) {}

// dialBufconn starts an in-process gRPC server backed by srv and returns a
// ConnectionManager dialed against it with token carried as call metadata,
// mirroring Dialer's metadataUnaryInterceptor/metadataStreamInterceptor.
func dialBufconn(t *testing.T, srv wire.Handler, token string) (*bufconnManager, func()) {
	t.Helper()
	const bufSize = 1024 * 1024
	lis := bufconn.Listen(bufSize)

	grpcServer := grpc.NewServer()
	grpcServer.RegisterService(&wire.ServiceDesc, srv)
	go func() {
		_ = grpcServer.Serve(lis)
	}()

	dialer := func(context.Context, string) (net.Conn, error) { return lis.Dial() }
	attach := func(ctx context.Context) context.Context {
		if token == "" {
			return ctx
		}
		md := metadata.New(map[string]string{"authorization": token})
		return metadata.NewOutgoingContext(ctx, md)
	}

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(dialer),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(wire.CodecName)),
		grpc.WithChainUnaryInterceptor(func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
			return invoker(attach(ctx), method, req, reply, cc, opts...)
		}),
		grpc.WithChainStreamInterceptor(func(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn, method string, streamer grpc.Streamer, opts ...grpc.CallOption) (grpc.ClientStream, error) {
			return streamer(attach(ctx), desc, cc, method, opts...)
		}),
	)
	if err != nil {
		t.Fatalf("dial bufconn: %v", err)
	}

	cleanup := func() {
		_ = conn.Close()
		grpcServer.Stop()
	}
	return &bufconnManager{conn: conn}, cleanup
}

func issueTestToken(t *testing.T, cfg auth.SimpleTokenConfig, store auth.TokenVersionStore) string {
	t.Helper()
	result, err := auth.GenerateSimpleToken(context.Background(), 1, "test-harness", cfg, store)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return result.Token
}

// TestRouterEndToEndOverBufconn exercises Subscribe -> inbound push ->
// local dispatch -> response, and an outbound Dispatch -> unary RPC ->
// result, against a real (in-process) gRPC stack gated by token
// verification, the way the reference Dialer would be driven in
// production.
func TestRouterEndToEndOverBufconn(t *testing.T) {
	store := newMemoryVersionStore()
	tokenCfg := auth.SimpleTokenConfig{Secret: "test-secret"}
	token := issueTestToken(t, tokenCfg, store)

	srv := &harnessServer{
		tokenCfg:        tokenCfg,
		store:           store,
		pushCommandName: "Echo",
		subscribed:      make(chan string, 4),
		responses:       make(chan *wire.CommandResponse, 4),
	}
	cm, cleanup := dialBufconn(t, srv, token)
	defer cleanup()

	bus := localbus.NewMemoryBus()
	cfg := commandrouter.Config{ClientID: "client-1", ComponentName: "test-component"}
	router := commandrouter.New(cm, bus, cfg)
	if err := router.Start(context.Background()); err != nil {
		t.Fatalf("start router: %v", err)
	}
	defer func() { _ = router.Disconnect() }()

	if _, err := router.Subscribe("Echo", func(ctx context.Context, msg localbus.Message, cb localbus.Callback) {
		cb(localbus.ResultMessage{PayloadType: msg.PayloadType, Payload: append([]byte("handled:"), msg.Payload...)})
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	select {
	case name := <-srv.subscribed:
		if name != "Echo" {
			t.Fatalf("unexpected subscribe: %s", name)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for subscribe frame")
	}

	select {
	case resp := <-srv.responses:
		if resp.ErrorCode != "" {
			t.Fatalf("unexpected error response: %+v", resp)
		}
		if string(resp.Payload) != "handled:ping" {
			t.Fatalf("unexpected response payload: %q", resp.Payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for inbound command response")
	}

	var got localbus.ResultMessage
	done := make(chan struct{})
	router.Dispatch(context.Background(), localbus.Message{CommandName: "DoThing", Payload: []byte("data")}, func(r localbus.ResultMessage) {
		got = r
		close(done)
	})
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for dispatch result")
	}
	if got.Exceptional {
		t.Fatalf("unexpected exceptional dispatch result: %+v", got.Exception)
	}
	if string(got.Payload) != "unary:data" {
		t.Fatalf("unexpected dispatch payload: %q", got.Payload)
	}
}

// TestRouterDispatchRejectsBadToken confirms an invalid token surfaces as an
// exceptional result rather than hanging or panicking.
func TestRouterDispatchRejectsBadToken(t *testing.T) {
	store := newMemoryVersionStore()
	tokenCfg := auth.SimpleTokenConfig{Secret: "test-secret"}

	srv := &harnessServer{
		tokenCfg:   tokenCfg,
		store:      store,
		subscribed: make(chan string, 1),
		responses:  make(chan *wire.CommandResponse, 1),
	}
	cm, cleanup := dialBufconn(t, srv, "not-a-real-token")
	defer cleanup()

	cfg := commandrouter.Config{ClientID: "client-1", ComponentName: "test-component"}
	router := commandrouter.New(cm, localbus.NewMemoryBus(), cfg)
	if err := router.Start(context.Background()); err != nil {
		t.Fatalf("start router: %v", err)
	}
	defer func() { _ = router.Disconnect() }()

	var got localbus.ResultMessage
	done := make(chan struct{})
	router.Dispatch(context.Background(), localbus.Message{CommandName: "DoThing"}, func(r localbus.ResultMessage) {
		got = r
		close(done)
	})
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for dispatch result")
	}
	if !got.Exceptional {
		t.Fatal("expected an exceptional result for an unauthenticated dispatch")
	}
}
