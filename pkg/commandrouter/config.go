package commandrouter

import (
	"github.com/Goden-Gun/command-connector/pkg/routing"
)

// Config is the immutable-after-construction configuration described in
// the command router's configuration surface.
type Config struct {
	// ClientID identifies this client instance for server-side tracking.
	ClientID string
	// ComponentName is the logical service group this client belongs to.
	ComponentName string
	// Token is the per-call authentication token. Router does not read it:
	// per-call metadata is attached by the ConnectionManager (Dialer takes
	// it from DialerOptions.Token).
	Token string
	// Context is the per-call routing/tenancy context. Router does not read
	// it either; Dialer takes it from DialerOptions.Context.
	Context string

	// CommandThreads is the worker pool size. Must be > 0.
	CommandThreads int
	// InitialPermits is granted once per stream creation.
	InitialPermits int64
	// NewPermits is the size of each subsequent permit grant.
	NewPermits int64
	// NewPermitsThreshold is how many command responses trigger a new
	// permit grant. Must be <= InitialPermits.
	NewPermitsThreshold int64

	// RoutingKey computes the routing key for an outbound command.
	RoutingKey routing.KeyFunc
	// Priority computes the dispatch priority for an outbound command.
	Priority routing.PriorityFunc
}

// ApplyDefaults fills zero-valued fields with the library's defaults, in the
// style of pkg/config's per-type ApplyDefaults methods.
func (c *Config) ApplyDefaults() {
	if c.CommandThreads <= 0 {
		c.CommandThreads = 4
	}
	if c.InitialPermits <= 0 {
		c.InitialPermits = 5000
	}
	if c.NewPermits <= 0 {
		c.NewPermits = 2500
	}
	if c.NewPermitsThreshold <= 0 {
		c.NewPermitsThreshold = 2500
	}
	if c.RoutingKey == nil {
		c.RoutingKey = routing.ByCommandName
	}
	if c.Priority == nil {
		c.Priority = routing.DefaultPriority
	}
}
