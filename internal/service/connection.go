package service

import (
	"fmt"
	"strings"

	"github.com/spec-kit/labbook/internal/auth"
	"github.com/spec-kit/labbook/internal/domain"
)

// secretKeyMarkers flag metadata keys whose value is regenerated per reservation.
var secretKeyMarkers = []string{"password", "secret", "api_key"}

func isSecretKey(key string) bool {
	lower := strings.ToLower(key)
	for _, marker := range secretKeyMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// BuildConnectionValues derives the per-reservation access values for a
// resource. Static metadata is copied, secrets are freshly generated and
// defaults for the resource type fill whatever the metadata omits.
func BuildConnectionValues(resource *domain.Resource, newSecret func() (string, error)) (map[string]any, error) {
	if newSecret == nil {
		newSecret = auth.NewSecret
	}
	values := make(map[string]any, len(resource.ConnectionMetadata)+4)
	for key, value := range resource.ConnectionMetadata {
		if isSecretKey(key) {
			secret, err := newSecret()
			if err != nil {
				return nil, err
			}
			values[key] = secret
			continue
		}
		values[key] = value
	}

	short := resource.ID
	if len(short) > 8 {
		short = short[:8]
	}
	has := func(keys ...string) bool {
		for _, k := range keys {
			if v, ok := values[k]; ok && v != nil && v != "" {
				return true
			}
		}
		return false
	}
	setSecret := func(key string) error {
		if has(key) {
			return nil
		}
		secret, err := newSecret()
		if err != nil {
			return err
		}
		values[key] = secret
		return nil
	}

	kind := resource.Type
	if kind == "" {
		kind = domain.ResourceTypeSSH
	}
	switch kind {
	case domain.ResourceTypeSSH, domain.ResourceTypeRDP:
		if !has("host", "ip") {
			values["host"] = fmt.Sprintf("lab-%s.example.com", short)
		}
		if !has("port") {
			if kind == domain.ResourceTypeSSH {
				values["port"] = 22
			} else {
				values["port"] = 3389
			}
		}
		if !has("username") {
			values["username"] = "labuser"
		}
		if err := setSecret("password"); err != nil {
			return nil, err
		}
	case domain.ResourceTypeWebURL:
		if !has("url", "base_url") {
			values["url"] = fmt.Sprintf("https://lab-%s.example.com", short)
		}
	case domain.ResourceTypeVPN:
		if !has("server") {
			values["server"] = fmt.Sprintf("vpn-%s.example.com", short)
		}
	case domain.ResourceTypeAPIKey:
		if err := setSecret("api_key"); err != nil {
			return nil, err
		}
		if !has("endpoint") {
			values["endpoint"] = fmt.Sprintf("https://api-%s.example.com", short)
		}
	}
	return values, nil
}
