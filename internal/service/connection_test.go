package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/labbook/internal/domain"
)

func fixedSecret() (string, error) { return "s3cret", nil }

func TestBuildConnectionValuesDefaults(t *testing.T) {
	cases := []struct {
		name string
		kind domain.ResourceType
		want map[string]any
	}{
		{"ssh", domain.ResourceTypeSSH, map[string]any{
			"host": "lab-abcdef12.example.com", "port": 22, "username": "labuser", "password": "s3cret",
		}},
		{"rdp", domain.ResourceTypeRDP, map[string]any{
			"host": "lab-abcdef12.example.com", "port": 3389, "username": "labuser", "password": "s3cret",
		}},
		{"web", domain.ResourceTypeWebURL, map[string]any{"url": "https://lab-abcdef12.example.com"}},
		{"vpn", domain.ResourceTypeVPN, map[string]any{"server": "vpn-abcdef12.example.com"}},
		{"api key", domain.ResourceTypeAPIKey, map[string]any{
			"api_key": "s3cret", "endpoint": "https://api-abcdef12.example.com",
		}},
		{"untyped falls back to ssh", "", map[string]any{
			"host": "lab-abcdef12.example.com", "port": 22, "username": "labuser", "password": "s3cret",
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			values, err := BuildConnectionValues(&domain.Resource{ID: "abcdef1234567890", Type: tc.kind}, fixedSecret)
			require.NoError(t, err)
			assert.Equal(t, tc.want, values)
		})
	}
}

func TestBuildConnectionValuesKeepsMetadataAndRotatesSecrets(t *testing.T) {
	resource := &domain.Resource{
		ID:   "res-1",
		Type: domain.ResourceTypeSSH,
		ConnectionMetadata: map[string]any{
			"ip":             "10.0.0.5",
			"port":           2222,
			"root_password":  "static",
			"client_secret":  "static",
			"jump_host_note": "via bastion",
		},
	}
	values, err := BuildConnectionValues(resource, fixedSecret)
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.5", values["ip"])
	assert.NotContains(t, values, "host")
	assert.Equal(t, 2222, values["port"])
	assert.Equal(t, "s3cret", values["root_password"])
	assert.Equal(t, "s3cret", values["client_secret"])
	assert.Equal(t, "via bastion", values["jump_host_note"])
	assert.Equal(t, "s3cret", values["password"])
	assert.Equal(t, "static", resource.ConnectionMetadata["root_password"], "metadata must not be mutated")
}

func TestBuildConnectionValuesSecretFailure(t *testing.T) {
	boom := errors.New("entropy exhausted")
	_, err := BuildConnectionValues(&domain.Resource{ID: "r", Type: domain.ResourceTypeAPIKey},
		func() (string, error) { return "", boom })
	assert.ErrorIs(t, err, boom)
}
