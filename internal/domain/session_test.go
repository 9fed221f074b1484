package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSession(t *testing.T) {
	s, err := NewSession("tok", "https://euno-1.api.microsoftstream.com/api/", "1.4-private")
	require.NoError(t, err)

	assert.Equal(t, "tok", s.AccessToken)
	assert.Equal(t, "https://euno-1.api.microsoftstream.com/api/", s.APIGatewayURI)
	assert.Equal(t, "1.4-private", s.APIGatewayVersion)
	assert.False(t, s.IsZero())
	assert.Equal(t, "Bearer tok", s.AuthorizationHeader())
}

func TestSession_Validate(t *testing.T) {
	tests := []struct {
		name    string
		session Session
		wantErr string
	}{
		{"empty token", Session{APIGatewayURI: "https://api.example.com/", APIGatewayVersion: "1"}, "access token"},
		{"empty version", Session{AccessToken: "t", APIGatewayURI: "https://api.example.com/"}, "version"},
		{"relative uri", Session{AccessToken: "t", APIGatewayURI: "/api/", APIGatewayVersion: "1"}, "not absolute"},
		{"valid", Session{AccessToken: "t", APIGatewayURI: "https://api.example.com/", APIGatewayVersion: "1"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.session.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSession_IsZero(t *testing.T) {
	assert.True(t, Session{}.IsZero())
}
