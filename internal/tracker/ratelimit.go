package tracker

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/steveyegge/dupsweep/internal/types"
)

// RateLimited wraps a Client so every call first takes a token from a
// shared bucket. Listings take one token per page.
type RateLimited struct {
	next    Client
	limiter *rate.Limiter
}

// Compile-time check that RateLimited implements Client
var _ Client = (*RateLimited)(nil)

// NewRateLimited allows rps calls per second with the given burst.
// rps <= 0 disables limiting and returns next unchanged.
func NewRateLimited(next Client, rps float64, burst int) Client {
	if rps <= 0 {
		return next
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{next: next, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (r *RateLimited) wait(ctx context.Context) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	return nil
}

// ListOpenIssues delegates with a page hook that waits for a token before
// every page request
func (r *RateLimited) ListOpenIssues(ctx context.Context, opts ListOptions) ([]types.IssueRecord, error) {
	prev := opts.PageWait
	opts.PageWait = func(ctx context.Context) error {
		if prev != nil {
			if err := prev(ctx); err != nil {
				return err
			}
		}
		return r.wait(ctx)
	}
	return r.next.ListOpenIssues(ctx, opts)
}

// GetIssue waits for a token before delegating
func (r *RateLimited) GetIssue(ctx context.Context, number int) (*types.IssueRecord, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	return r.next.GetIssue(ctx, number)
}

// CreateComment waits for a token before delegating
func (r *RateLimited) CreateComment(ctx context.Context, number int, body string) error {
	if err := r.wait(ctx); err != nil {
		return err
	}
	return r.next.CreateComment(ctx, number, body)
}

// AddLabels waits for a token before delegating
func (r *RateLimited) AddLabels(ctx context.Context, number int, labels []string) error {
	if err := r.wait(ctx); err != nil {
		return err
	}
	return r.next.AddLabels(ctx, number, labels)
}

// SetState waits for a token before delegating
func (r *RateLimited) SetState(ctx context.Context, number int, state types.State) error {
	if err := r.wait(ctx); err != nil {
		return err
	}
	return r.next.SetState(ctx, number, state)
}
