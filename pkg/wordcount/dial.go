package wordcount

import (
	"context"
	"time"

	"github.com/cachemir/wordtally/pkg/client"
)

// DialTCP returns a Dialer that connects to a wordtally server at address,
// giving up after timeout.
func DialTCP(address string, timeout time.Duration) Dialer {
	return func(ctx context.Context) (Conn, error) {
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		c, err := client.Dial(ctx, address)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}
