// Package reachability answers "is the remote store reachable right now".
package reachability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

// Gate probes a URL through a circuit breaker. Repeated probe failures open
// the breaker, and while it is open the gate reports unreachable without
// touching the network. A Gate with no URL always reports reachable.
type Gate struct {
	url    string
	client *http.Client
	cb     *gobreaker.CircuitBreaker
}

// NewGate builds a gate that probes url with the given per-probe timeout.
func NewGate(url string, timeout time.Duration) *Gate {
	return &Gate{
		url:    url,
		client: &http.Client{Timeout: timeout},
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "reachability",
			MaxRequests: 1,
			Interval:    0,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				slog.Info("reachability changed", "breaker", name, "from", from.String(), "to", to.String())
			},
		}),
	}
}

// IsOnline reports whether the remote side answered the probe. Any HTTP
// response counts as reachable; only transport failures count as offline.
func (g *Gate) IsOnline(ctx context.Context) bool {
	if g.url == "" {
		return true
	}
	_, err := g.cb.Execute(func() (interface{}, error) {
		return nil, g.probe(ctx)
	})
	if err == nil {
		return true
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return false
	}
	slog.Debug("reachability probe failed", "url", g.url, "err", err)
	return false
}

func (g *Gate) probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, g.url, nil)
	if err != nil {
		return fmt.Errorf("build probe: %w", err)
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	return nil
}
