package localbus

import (
	"context"
	"fmt"
	"sync"

	"github.com/Goden-Gun/command-connector/pkg/codes"
)

// MemoryBus is a minimal in-process command bus used by this repository's
// own tests in place of a real application bus. It runs at most one handler
// per command name and applies registered handler interceptors in
// registration order, the same contract a real bus is expected to honor.
type MemoryBus struct {
	mu           sync.RWMutex
	handlers     map[string]Handler
	interceptors []HandlerInterceptor
}

// NewMemoryBus constructs an empty MemoryBus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{handlers: make(map[string]Handler)}
}

func (b *MemoryBus) Subscribe(commandName string, handler Handler) (Registration, error) {
	if commandName == "" {
		return nil, fmt.Errorf("localbus: command name is empty")
	}
	b.mu.Lock()
	b.handlers[commandName] = handler
	b.mu.Unlock()
	return funcRegistration(func() error {
		b.mu.Lock()
		delete(b.handlers, commandName)
		b.mu.Unlock()
		return nil
	}), nil
}

func (b *MemoryBus) RegisterHandlerInterceptor(i HandlerInterceptor) Registration {
	b.mu.Lock()
	b.interceptors = append(b.interceptors, i)
	idx := len(b.interceptors) - 1
	b.mu.Unlock()
	return funcRegistration(func() error {
		b.mu.Lock()
		b.interceptors[idx] = nil
		b.mu.Unlock()
		return nil
	})
}

func (b *MemoryBus) Dispatch(ctx context.Context, msg Message, cb Callback) {
	b.mu.RLock()
	handler := b.handlers[msg.CommandName]
	chain := make([]HandlerInterceptor, 0, len(b.interceptors))
	for _, i := range b.interceptors {
		if i != nil {
			chain = append(chain, i)
		}
	}
	b.mu.RUnlock()

	if handler == nil {
		cb(AsExceptionalResult(fmt.Errorf("localbus: no handler for %q", msg.CommandName), codes.CommandDispatchError.Symbol))
		return
	}
	for i := len(chain) - 1; i >= 0; i-- {
		handler = chain[i](handler)
	}
	handler(ctx, msg, cb)
}
