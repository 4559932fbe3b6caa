package ports

import "context"

// Transport delivers a signed request document to a gateway endpoint and returns the raw reply.
// Implementations must not retry: a failed post is reported to the caller once.
type Transport interface {
	Post(ctx context.Context, endpoint string, body []byte) ([]byte, error)
}
