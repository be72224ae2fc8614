package commandrouter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Goden-Gun/command-connector/pkg/audit"
	"github.com/Goden-Gun/command-connector/pkg/localbus"
	"github.com/Goden-Gun/command-connector/pkg/logger"
	"github.com/Goden-Gun/command-connector/pkg/queue"
	"github.com/Goden-Gun/command-connector/pkg/wire"
)

// pollTimeout bounds how long a worker blocks on an empty queue before
// re-checking for shutdown, matching the 1-second poll in the original
// Java connector's commandExecutor loop.
const pollTimeout = time.Second

// workerPool is C4: a fixed number of goroutines draining the shared
// priority queue, dispatching each command to the local bus, and returning
// its result on the flow-controlled stream.
type workerPool struct {
	bus    localbus.Bus
	queue  *queue.PriorityQueue
	stream func() (flowControlSender, error)
	audit  *audit.Recorder

	wg       sync.WaitGroup
	stopOnce sync.Once
	done     chan struct{}
}

// flowControlSender is the minimal surface workerPool needs from the
// subscriber's stream handle.
type flowControlSender interface {
	Send(*wire.ClientMessage) error
}

func newWorkerPool(bus localbus.Bus, q *queue.PriorityQueue, streamFn func() (flowControlSender, error), rec *audit.Recorder) *workerPool {
	return &workerPool{bus: bus, queue: q, stream: streamFn, audit: rec, done: make(chan struct{})}
}

// Start launches n worker goroutines.
func (p *workerPool) Start(n int) {
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go p.run()
	}
}

// Stop signals workers to exit once their current poll returns and waits
// for them to drain, without force-killing an in-flight dispatch.
func (p *workerPool) Stop() {
	p.stopOnce.Do(func() { close(p.done) })
	p.wg.Wait()
}

func (p *workerPool) run() {
	defer p.wg.Done()
	for {
		select {
		case <-p.done:
			return
		default:
		}

		cmd := p.queue.Poll(pollTimeout)
		if cmd == nil {
			continue
		}
		p.process(cmd)
	}
}

// process decodes and dispatches one command, recovering from a panicking
// handler rather than taking the whole worker down - the Go analogue of the
// original's catch of RuntimeException | OutOfDirectMemoryError around a
// single command's processing.
func (p *workerPool) process(cmd *wire.Command) {
	defer func() {
		if r := recover(); r != nil {
			logger.WithCommand(cmd.CommandName, cmd.MessageID).
				Errorf("recovered from panic while processing command: %v", r)
			p.respond(cmd, wire.EncodeDispatchError(cmd.MessageID, uuid.NewString(), fmt.Errorf("panic: %v", r)))
		}
	}()

	msg, err := wire.DecodeCommand(cmd)
	if err != nil {
		logger.WithCommand(cmd.CommandName, cmd.MessageID).WithError(err).Warn("failed to decode inbound command")
		p.respond(cmd, wire.EncodeDispatchError(cmd.MessageID, uuid.NewString(), err))
		return
	}

	ctx := context.Background()
	start := time.Now()
	var once sync.Once
	p.bus.Dispatch(ctx, msg, func(result localbus.ResultMessage) {
		once.Do(func() {
			p.audit.RecordInbound(ctx, cmd.CommandName, cmd.MessageID, result, time.Since(start))
			p.respond(cmd, wire.EncodeResult(result, cmd.MessageID, uuid.NewString()))
		})
	})
}

func (p *workerPool) respond(cmd *wire.Command, resp *wire.CommandResponse) {
	stream, err := p.stream()
	if err != nil {
		logger.WithCommand(cmd.CommandName, cmd.MessageID).WithError(err).
			Warn("dropping command response: no stream available")
		return
	}
	if err := stream.Send(&wire.ClientMessage{CommandResponse: resp}); err != nil {
		logger.WithCommand(cmd.CommandName, cmd.MessageID).WithError(err).Warn("failed to send command response")
	}
}
