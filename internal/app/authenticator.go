package app

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/destream-go/internal/domain"
	"github.com/yourusername/destream-go/pkg/logger"
)

// AuthState names one step of the login flow
type AuthState int

const (
	StateStart AuthState = iota
	StateNavigatedToLoginPage
	StateCredentialPromptDetected
	StateNoPromptDetected
	StateUsernameSubmitted
	StateWaitingForIdPRedirect
	StatePasswordSubmitted
	StateWaitingForFinalRedirect
	StateLoggedIn
	StateSessionExtracted
	StateFailed
)

var authStateNames = map[AuthState]string{
	StateStart:                    "start",
	StateNavigatedToLoginPage:     "navigated_to_login_page",
	StateCredentialPromptDetected: "credential_prompt_detected",
	StateNoPromptDetected:         "no_prompt_detected",
	StateUsernameSubmitted:        "username_submitted",
	StateWaitingForIdPRedirect:    "waiting_for_idp_redirect",
	StatePasswordSubmitted:        "password_submitted",
	StateWaitingForFinalRedirect:  "waiting_for_final_redirect",
	StateLoggedIn:                 "logged_in",
	StateSessionExtracted:         "session_extracted",
	StateFailed:                   "failed",
}

func (s AuthState) String() string {
	if name, ok := authStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// IsTerminal reports whether the flow stops in this state
func (s AuthState) IsTerminal() bool {
	return s == StateSessionExtracted || s == StateFailed
}

// AuthResultKind tags the outcome of an authentication run
type AuthResultKind int

const (
	AuthOK AuthResultKind = iota
	AuthTimedOut
	AuthInvalidCredentials
	AuthNoSessionInfo
	AuthCancelled
	AuthBrowserFailure
)

// AuthOutcome is the tagged result of one authentication run
type AuthOutcome struct {
	Kind    AuthResultKind
	Session domain.Session
	State   AuthState   // the state the failure happened in, or StateSessionExtracted
	Trace   []AuthState // every state visited, in order
	Cause   error
}

// Err converts a failed outcome into an error wrapping the matching sentinel
func (o AuthOutcome) Err() error {
	switch o.Kind {
	case AuthOK:
		return nil
	case AuthTimedOut:
		return fmt.Errorf("login step %s: %w", o.State, domain.ErrAuthTimeout)
	case AuthInvalidCredentials:
		return fmt.Errorf("login step %s: %w", o.State, domain.ErrCredentialsRequired)
	case AuthNoSessionInfo:
		return fmt.Errorf("%w: %v", domain.ErrNoSessionInfo, o.Cause)
	case AuthCancelled:
		return fmt.Errorf("login step %s: %w", o.State, domain.ErrInterrupted)
	default:
		return fmt.Errorf("%w: login step %s: %v", domain.ErrNoSessionInfo, o.State, o.Cause)
	}
}

// AuthPolicy holds the selectors, hosts and timing of the login flow
type AuthPolicy struct {
	LoginURL             string
	AppRootURL           string
	IdentityProviderHost string
	ProviderHost         string
	Username             string
	Password             string
	EmailSelector        string
	PasswordSelector     string
	SubmitSelector       string
	NavigateTimeout      time.Duration
	PromptTimeout        time.Duration
	StepTimeout          time.Duration
	LoginTimeout         time.Duration
	ExtractAttempts      int
	ExtractDelay         time.Duration
}

// AuthPolicyFromConfig builds the policy from configuration
func AuthPolicyFromConfig(config *domain.AuthConfig) AuthPolicy {
	return AuthPolicy{
		LoginURL:             config.LoginURL,
		AppRootURL:           config.AppRootURL,
		IdentityProviderHost: config.IdentityProviderHost,
		ProviderHost:         config.ProviderHost,
		Username:             config.Username,
		Password:             config.Password,
		EmailSelector:        `input[type="email"]`,
		PasswordSelector:     `input[type="password"]`,
		SubmitSelector:       `input[type="submit"]`,
		NavigateTimeout:      config.NavigateTimeout,
		PromptTimeout:        config.PromptTimeout,
		StepTimeout:          config.StepTimeout,
		LoginTimeout:         config.LoginTimeout,
		ExtractAttempts:      config.ExtractAttempts,
		ExtractDelay:         config.ExtractDelay,
	}
}

// AuthEngine drives a browser through the login flow and extracts the session
type AuthEngine struct {
	launcher domain.BrowserLauncher
	probe    domain.SessionProbe
	store    domain.SessionStore
	policy   AuthPolicy
	logger   *zap.Logger
	events   *logger.LoggerAdapter
}

// NewAuthEngine creates a new authentication engine
func NewAuthEngine(
	launcher domain.BrowserLauncher,
	probe domain.SessionProbe,
	store domain.SessionStore,
	policy AuthPolicy,
	log *zap.Logger,
	events *logger.LoggerAdapter,
) *AuthEngine {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthEngine{
		launcher: launcher,
		probe:    probe,
		store:    store,
		policy:   policy,
		logger:   log,
		events:   events,
	}
}

// Authenticate runs the login flow starting at target and returns the extracted session
func (e *AuthEngine) Authenticate(ctx context.Context, target string) (domain.Session, error) {
	outcome := e.Run(ctx, target)
	if outcome.Kind != AuthOK {
		return domain.Session{}, outcome.Err()
	}
	return outcome.Session, nil
}

// Run executes the state machine and reports a tagged outcome. The browser is
// launched here and closed on every exit path, after the session was stored.
func (e *AuthEngine) Run(ctx context.Context, target string) AuthOutcome {
	browser, err := e.launcher.Launch(ctx)
	if err != nil {
		kind := AuthBrowserFailure
		switch {
		case ctx.Err() != nil:
			kind = AuthCancelled
		case errors.Is(err, domain.ErrWaitTimeout):
			kind = AuthTimedOut
		}
		return AuthOutcome{Kind: kind, State: StateStart, Cause: fmt.Errorf("launch browser: %w", err)}
	}
	defer func() {
		if err := browser.Close(); err != nil {
			e.logger.Warn("Failed to close browser", zap.Error(err))
		}
	}()

	run := &authRun{
		engine:  e,
		browser: browser,
		target:  target,
		landing: e.landingURL(target),
		state:   StateStart,
	}
	return run.execute(ctx)
}

// landingURL is where a successful login ends: the app root for the login
// page, the requested page otherwise.
func (e *AuthEngine) landingURL(target string) string {
	if target == e.policy.LoginURL && e.policy.AppRootURL != "" {
		return e.policy.AppRootURL
	}
	return target
}

type authRun struct {
	engine  *AuthEngine
	browser domain.Browser
	target  string
	landing string
	state   AuthState
	trace   []AuthState
	outcome AuthOutcome
}

func (r *authRun) execute(ctx context.Context) AuthOutcome {
	log := r.engine.logger
	for !r.state.IsTerminal() {
		r.trace = append(r.trace, r.state)
		next := r.step(ctx)
		log.Debug("Login state transition",
			zap.Stringer("from", r.state),
			zap.Stringer("to", next))
		r.state = next
	}
	r.trace = append(r.trace, r.state)
	r.outcome.Trace = r.trace

	if r.outcome.Kind == AuthOK {
		r.outcome.State = StateSessionExtracted
		r.engine.events.LogSessionEvent("session_acquired", zap.String("url", r.target))
	} else {
		log.Error("Login failed",
			zap.Stringer("state", r.outcome.State),
			zap.Error(r.outcome.Err()))
		r.engine.events.LogAppError("login_failed",
			zap.String("url", r.target),
			zap.Stringer("state", r.outcome.State),
			zap.Error(r.outcome.Err()))
	}
	return r.outcome
}

func (r *authRun) step(ctx context.Context) AuthState {
	p := r.engine.policy

	switch r.state {
	case StateStart:
		if err := r.browser.Navigate(ctx, r.target, p.NavigateTimeout); err != nil {
			return r.fail(ctx, err)
		}
		return StateNavigatedToLoginPage

	case StateNavigatedToLoginPage:
		err := r.browser.WaitVisible(ctx, p.EmailSelector, p.PromptTimeout)
		if errors.Is(err, domain.ErrWaitTimeout) {
			// No prompt: the browser profile is still signed in
			return StateNoPromptDetected
		}
		if err != nil {
			return r.fail(ctx, err)
		}
		return StateCredentialPromptDetected

	case StateCredentialPromptDetected:
		if p.Username == "" || p.Password == "" {
			r.outcome = AuthOutcome{Kind: AuthInvalidCredentials, State: r.state, Cause: domain.ErrCredentialsRequired}
			return StateFailed
		}
		if err := r.submit(ctx, p.EmailSelector, p.Username); err != nil {
			return r.fail(ctx, err)
		}
		return StateUsernameSubmitted

	case StateUsernameSubmitted:
		return StateWaitingForIdPRedirect

	case StateWaitingForIdPRedirect:
		if err := r.browser.WaitURL(ctx, hostMatcher(p.IdentityProviderHost), p.StepTimeout); err != nil {
			return r.fail(ctx, err)
		}
		if err := r.browser.WaitVisible(ctx, p.PasswordSelector, p.StepTimeout); err != nil {
			return r.fail(ctx, err)
		}
		if err := r.submit(ctx, p.PasswordSelector, p.Password); err != nil {
			return r.fail(ctx, err)
		}
		return StatePasswordSubmitted

	case StatePasswordSubmitted, StateNoPromptDetected:
		return StateWaitingForFinalRedirect

	case StateWaitingForFinalRedirect:
		if err := r.browser.WaitURL(ctx, hostMatcher(p.ProviderHost), p.LoginTimeout); err != nil {
			return r.fail(ctx, err)
		}
		if err := r.browser.WaitURL(ctx, prefixMatcher(r.landing), p.StepTimeout); err != nil {
			return r.fail(ctx, err)
		}
		r.engine.logger.Info("Logged in", zap.String("url", r.landing))
		return StateLoggedIn

	case StateLoggedIn:
		session, err := r.extract(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return r.fail(ctx, err)
			}
			r.outcome = AuthOutcome{Kind: AuthNoSessionInfo, State: r.state, Cause: err}
			return StateFailed
		}
		r.persist(session)
		r.outcome = AuthOutcome{Kind: AuthOK, Session: session}
		return StateSessionExtracted
	}

	r.outcome = AuthOutcome{Kind: AuthBrowserFailure, State: r.state, Cause: fmt.Errorf("unexpected state %s", r.state)}
	return StateFailed
}

// submit types into a field and presses the submit button
func (r *authRun) submit(ctx context.Context, selector, value string) error {
	p := r.engine.policy
	if err := r.browser.Type(ctx, selector, value, p.StepTimeout); err != nil {
		return err
	}
	if err := r.browser.WaitVisible(ctx, p.SubmitSelector, p.StepTimeout); err != nil {
		return err
	}
	return r.browser.Click(ctx, p.SubmitSelector, p.StepTimeout)
}

// extract reads the in-page session object, retrying with a fixed delay
// while the application script has not populated it yet.
func (r *authRun) extract(ctx context.Context) (domain.Session, error) {
	p := r.engine.policy
	var lastErr error

	for attempt := 1; attempt <= p.ExtractAttempts; attempt++ {
		session, err := r.engine.probe.Extract(ctx, r.browser, p.StepTimeout)
		if err == nil {
			err = session.Validate()
		}
		if err == nil {
			return session, nil
		}
		lastErr = err

		r.engine.logger.Debug("Session info not available yet",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", p.ExtractAttempts),
			zap.Error(err))

		if attempt == p.ExtractAttempts {
			break
		}
		if err := sleepContext(ctx, p.ExtractDelay); err != nil {
			return domain.Session{}, err
		}
	}

	return domain.Session{}, fmt.Errorf("gave up after %d attempts: %w", p.ExtractAttempts, lastErr)
}

// persist writes the session to the store; failures only cost the cache
func (r *authRun) persist(session domain.Session) {
	if r.engine.store == nil {
		return
	}
	if err := r.engine.store.Write(session); err != nil {
		r.engine.logger.Warn("Failed to cache session, continuing with in-memory session", zap.Error(err))
		r.engine.events.LogAppError("session_cache_write_failed", zap.Error(err))
	}
}

// fail classifies a step error and moves to the failed state
func (r *authRun) fail(ctx context.Context, err error) AuthState {
	kind := AuthBrowserFailure
	switch {
	case ctx.Err() != nil:
		kind = AuthCancelled
	case errors.Is(err, domain.ErrWaitTimeout), errors.Is(err, context.DeadlineExceeded):
		kind = AuthTimedOut
	}
	r.outcome = AuthOutcome{Kind: kind, State: r.state, Cause: err}
	return StateFailed
}

// hostMatcher matches URLs whose host is host or a subdomain of it
func hostMatcher(host string) func(string) bool {
	host = strings.ToLower(host)
	return func(raw string) bool {
		u, err := url.Parse(raw)
		if err != nil {
			return false
		}
		h := strings.ToLower(u.Hostname())
		return h == host || strings.HasSuffix(h, "."+host)
	}
}

// prefixMatcher matches URLs starting with target, ignoring a trailing slash
func prefixMatcher(target string) func(string) bool {
	target = strings.TrimSuffix(target, "/")
	return func(raw string) bool {
		return strings.HasPrefix(raw, target)
	}
}

// sleepContext waits for d or until ctx is done
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
