package commandrouter

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"github.com/Goden-Gun/command-connector/pkg/auth"
	"github.com/Goden-Gun/command-connector/pkg/tracing"
	"github.com/Goden-Gun/command-connector/pkg/wire"
)

// DialerOptions configures the reference gRPC ConnectionManager.
type DialerOptions struct {
	Address     string
	Insecure    bool
	TLSCertFile string
	TLSKeyFile  string
	DialTimeout time.Duration

	// Token and Context are attached as per-call metadata on every RPC,
	// matching the TokenAddingInterceptor / ContextAddingInterceptor pair
	// in the original Java connector.
	Token   string
	Context string
}

// Dialer is a ConnectionManager backed by a single gRPC channel. It watches
// the channel's connectivity state and fires reconnect/disconnect listeners
// on transitions into/out of Ready - simpler than a manual dial/reconnect
// loop because grpc-go's channel already retries transport-level connects
// on its own, so this only needs to observe state, not re-dial.
type Dialer struct {
	opts DialerOptions
	conn *grpc.ClientConn

	mu                   sync.Mutex
	reconnectListeners   []func()
	disconnectListeners  []func()

	cancel context.CancelFunc
}

// NewDialer dials opts.Address and starts watching its connectivity state.
func NewDialer(ctx context.Context, opts DialerOptions) (*Dialer, error) {
	if opts.Address == "" {
		return nil, fmt.Errorf("commandrouter: dial address is required")
	}
	creds := insecure.NewCredentials()
	if !opts.Insecure {
		tlsConf := &tls.Config{}
		if opts.TLSCertFile != "" || opts.TLSKeyFile != "" {
			cert, err := tls.LoadX509KeyPair(opts.TLSCertFile, opts.TLSKeyFile)
			if err != nil {
				return nil, fmt.Errorf("commandrouter: load tls cert: %w", err)
			}
			tlsConf.Certificates = []tls.Certificate{cert}
		}
		creds = credentials.NewTLS(tlsConf)
	}

	dialTimeout := opts.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 5 * time.Second
	}

	d := &Dialer{opts: opts}
	dctx, cancelDial := context.WithTimeout(ctx, dialTimeout)
	defer cancelDial()
	conn, err := grpc.DialContext(dctx, opts.Address,
		grpc.WithTransportCredentials(creds),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(wire.CodecName)),
		grpc.WithChainUnaryInterceptor(d.metadataUnaryInterceptor),
		grpc.WithChainStreamInterceptor(d.metadataStreamInterceptor),
	)
	if err != nil {
		return nil, fmt.Errorf("commandrouter: dial: %w", err)
	}
	d.conn = conn

	watchCtx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	go d.watch(watchCtx)
	return d, nil
}

// NewDialerWithSimpleToken mints a bearer token via auth.GenerateSimpleToken
// before dialing, then dials exactly like NewDialer with opts.Token set to
// the minted token. Login bumps the caller's token version, so any token
// this client previously held stops verifying the moment this call returns.
func NewDialerWithSimpleToken(ctx context.Context, opts DialerOptions, userID int64, sequence string, tokenCfg auth.SimpleTokenConfig, store auth.TokenVersionStore) (*Dialer, error) {
	result, err := auth.GenerateSimpleToken(ctx, userID, sequence, tokenCfg, store)
	if err != nil {
		return nil, fmt.Errorf("commandrouter: mint bearer token: %w", err)
	}
	opts.Token = "Bearer " + result.Token
	return NewDialer(ctx, opts)
}

func (d *Dialer) metadataUnaryInterceptor(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
	return invoker(d.withMetadata(ctx), method, req, reply, cc, opts...)
}

func (d *Dialer) metadataStreamInterceptor(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn, method string, streamer grpc.Streamer, opts ...grpc.CallOption) (grpc.ClientStream, error) {
	return streamer(d.withMetadata(ctx), desc, cc, method, opts...)
}

func (d *Dialer) withMetadata(ctx context.Context) context.Context {
	md := metadata.New(nil)
	if d.opts.Token != "" {
		md.Set("authorization", d.opts.Token)
	}
	if d.opts.Context != "" {
		md.Set("context", d.opts.Context)
	}
	md = tracing.InjectMetadata(ctx, md)
	return metadata.NewOutgoingContext(ctx, md)
}

func (d *Dialer) watch(ctx context.Context) {
	state := d.conn.GetState()
	for {
		if !d.conn.WaitForStateChange(ctx, state) {
			return
		}
		newState := d.conn.GetState()
		if newState == connectivity.Ready {
			d.fireReconnect()
		} else if state == connectivity.Ready {
			d.fireDisconnect()
		}
		state = newState
	}
}

func (d *Dialer) fireReconnect() {
	d.mu.Lock()
	listeners := append([]func(){}, d.reconnectListeners...)
	d.mu.Unlock()
	for _, cb := range listeners {
		cb()
	}
}

func (d *Dialer) fireDisconnect() {
	d.mu.Lock()
	listeners := append([]func(){}, d.disconnectListeners...)
	d.mu.Unlock()
	for _, cb := range listeners {
		cb()
	}
}

func (d *Dialer) Channel() grpc.ClientConnInterface { return d.conn }

func (d *Dialer) CommandStream(ctx context.Context, inbound InboundObserver) (wire.StreamClient, error) {
	stream, err := wire.NewStreamClient(ctx, d.conn)
	if err != nil {
		return nil, err
	}
	go func() {
		for {
			msg, err := stream.Recv()
			if err != nil {
				if err == io.EOF {
					inbound.OnCompleted()
					return
				}
				inbound.OnError(err)
				return
			}
			inbound.OnNext(msg)
		}
	}()
	return stream, nil
}

func (d *Dialer) AddReconnectListener(cb func()) {
	d.mu.Lock()
	d.reconnectListeners = append(d.reconnectListeners, cb)
	d.mu.Unlock()
}

func (d *Dialer) AddDisconnectListener(cb func()) {
	d.mu.Lock()
	d.disconnectListeners = append(d.disconnectListeners, cb)
	d.mu.Unlock()
}

// Close releases the underlying channel and stops the connectivity watcher.
func (d *Dialer) Close() error {
	if d.cancel != nil {
		d.cancel()
	}
	return d.conn.Close()
}
