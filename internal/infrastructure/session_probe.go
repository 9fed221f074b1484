package infrastructure

import (
	"context"
	"fmt"
	"time"

	"github.com/tidwall/gjson"

	"github.com/yourusername/destream-go/internal/domain"
)

// sessionInfoScript reads the session object the web app publishes on window
const sessionInfoScript = `(() => {
	const s = window.sessionInfo;
	if (!s) { return null; }
	return {
		AccessToken: s.AccessToken,
		ApiGatewayUri: s.ApiGatewayUri,
		ApiGatewayVersion: s.ApiGatewayVersion
	};
})()`

// PageSessionProbe implements domain.SessionProbe by reading the in-page
// sessionInfo global
type PageSessionProbe struct {
	script string
}

// NewPageSessionProbe creates a probe for the default sessionInfo global
func NewPageSessionProbe() *PageSessionProbe {
	return &PageSessionProbe{script: sessionInfoScript}
}

// Extract evaluates the probe script and builds a validated session
func (p *PageSessionProbe) Extract(ctx context.Context, browser domain.Browser, timeout time.Duration) (domain.Session, error) {
	var raw []byte
	if err := browser.Evaluate(ctx, p.script, &raw, timeout); err != nil {
		return domain.Session{}, fmt.Errorf("evaluate sessionInfo: %w", err)
	}
	return ParseSessionInfo(raw)
}

// ParseSessionInfo builds a session from the JSON the probe script returns
func ParseSessionInfo(raw []byte) (domain.Session, error) {
	if !gjson.ValidBytes(raw) {
		return domain.Session{}, fmt.Errorf("sessionInfo is not valid JSON")
	}
	info := gjson.ParseBytes(raw)
	if !info.IsObject() {
		return domain.Session{}, fmt.Errorf("sessionInfo is not available")
	}
	return domain.NewSession(
		info.Get("AccessToken").String(),
		info.Get("ApiGatewayUri").String(),
		info.Get("ApiGatewayVersion").String(),
	)
}
