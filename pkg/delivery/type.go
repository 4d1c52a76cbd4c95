package delivery

import (
	"context"
	"time"

	"github.com/NotCoffee418/p1_forwarder/pkg/types"
)

type Config struct {
	URL      string
	Interval time.Duration
	Timeout  time.Duration

	// Failed batches are dropped unless RequeueOnFailure is set. When set,
	// they go back to the head of the queue, which is then trimmed to
	// RequeueCap readings (0 means no cap).
	RequeueOnFailure bool
	RequeueCap       int
}

// Authorizer supplies the Authorization header for collector requests.
type Authorizer interface {
	EnsureValid(ctx context.Context)
	AuthorizationHeader() string
}

type payload struct {
	Data []*types.Reading `json:"data"`
}
