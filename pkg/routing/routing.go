// Package routing declares the pluggable strategies the command router
// applies to each outbound command: a routing key (so the server-side
// router can pick a consistent target node) and a priority (so the
// receiving node's worker pool dispatches higher-priority work first).
// Both are pure functions over the local command message; routing/priority
// policy is treated as an external collaborator, so only the function
// shapes and a reasonable default live here.
package routing

import "github.com/Goden-Gun/command-connector/pkg/localbus"

// KeyFunc computes a routing key for a command message.
type KeyFunc func(msg localbus.Message) string

// PriorityFunc computes an integer priority for a command message. Higher
// values are dispatched earlier by the receiving worker pool.
type PriorityFunc func(msg localbus.Message) int32

// ByCommandName routes on the command name, the simplest strategy that
// still lets a server-side router keep identical commands on one node.
func ByCommandName(msg localbus.Message) string {
	return msg.CommandName
}

// ByIdentifier routes on the message's own identifier, effectively
// round-robining unrelated commands across nodes.
func ByIdentifier(msg localbus.Message) string {
	return msg.Identifier
}

// DefaultPriority assigns every command the same, neutral priority.
func DefaultPriority(localbus.Message) int32 {
	return 0
}
