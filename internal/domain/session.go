package domain

import (
	"fmt"
	"net/url"
	"strings"
)

// Session is the authenticated credential bundle needed to call the
// streaming platform's API. It is a value: a refresh produces a new Session,
// fields are never updated one at a time.
type Session struct {
	AccessToken       string `json:"AccessToken"`
	APIGatewayURI     string `json:"ApiGatewayUri"`
	APIGatewayVersion string `json:"ApiGatewayVersion"`
}

// NewSession creates a validated session
func NewSession(accessToken, apiGatewayURI, apiGatewayVersion string) (Session, error) {
	s := Session{
		AccessToken:       accessToken,
		APIGatewayURI:     apiGatewayURI,
		APIGatewayVersion: apiGatewayVersion,
	}
	if err := s.Validate(); err != nil {
		return Session{}, err
	}
	return s, nil
}

// Validate checks that all three fields are present and the gateway is an absolute URL
func (s Session) Validate() error {
	if strings.TrimSpace(s.AccessToken) == "" {
		return fmt.Errorf("session: access token is empty")
	}
	if strings.TrimSpace(s.APIGatewayVersion) == "" {
		return fmt.Errorf("session: api gateway version is empty")
	}
	u, err := url.Parse(s.APIGatewayURI)
	if err != nil {
		return fmt.Errorf("session: invalid api gateway uri: %w", err)
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("session: api gateway uri is not absolute: %q", s.APIGatewayURI)
	}
	return nil
}

// IsZero reports whether the session is empty
func (s Session) IsZero() bool {
	return s == Session{}
}

// AuthorizationHeader returns the bearer header value for API and stream requests
func (s Session) AuthorizationHeader() string {
	return "Bearer " + s.AccessToken
}
