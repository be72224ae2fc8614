package commandrouter

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// isUnavailable reports whether err is a transport-level UNAVAILABLE
// status, the one stream error the subscriber must NOT react to with an
// immediate resubscribe (the connection manager drives reconnection
// instead).
func isUnavailable(err error) bool {
	if err == nil {
		return false
	}
	st, ok := status.FromError(err)
	return ok && st.Code() == codes.Unavailable
}
