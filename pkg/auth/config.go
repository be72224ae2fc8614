package auth

// DefaultVersionKeyPrefix is the Redis key prefix for the per-user token
// version counter (auth:token:ver:{user_id}) that SimpleTokenConfig-based
// tokens are checked against on every verification.
const DefaultVersionKeyPrefix = "auth:token:ver:"
