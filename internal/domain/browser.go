package domain

import (
	"context"
	"time"
)

// Browser is the minimal automation surface the authentication engine needs.
// Every operation takes an explicit timeout and returns ErrWaitTimeout on expiry.
type Browser interface {
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	Type(ctx context.Context, selector, text string, timeout time.Duration) error
	Click(ctx context.Context, selector string, timeout time.Duration) error
	WaitURL(ctx context.Context, match func(url string) bool, timeout time.Duration) error
	Evaluate(ctx context.Context, expression string, out interface{}, timeout time.Duration) error
	Close() error
}

// BrowserLauncher starts a fresh browser for one authentication attempt
type BrowserLauncher interface {
	Launch(ctx context.Context) (Browser, error)
}

// SessionProbe extracts the session object from a logged-in page. It is the
// platform-specific half of session extraction; retries live in the caller.
type SessionProbe interface {
	Extract(ctx context.Context, browser Browser, timeout time.Duration) (Session, error)
}

// Authenticator produces a valid session
type Authenticator interface {
	// Authenticate runs the login flow starting at url
	Authenticate(ctx context.Context, url string) (Session, error)
}
