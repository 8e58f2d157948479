package core

import (
	"encoding/base64"
	"fmt"
)

// AuthType represents the type of authentication.
type AuthType string

const (
	AuthTypeNone   AuthType = "none"
	AuthTypeBasic  AuthType = "basic"
	AuthTypeBearer AuthType = "bearer"
)

// BasicAuth holds username/password credentials.
type BasicAuth struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// BearerAuth holds a bearer token.
type BearerAuth struct {
	Token string `json:"token"`
}

// AuthConfig is the authentication configuration attached to a
// collection. The Type field selects which variant is in effect.
type AuthConfig struct {
	Type   AuthType    `json:"type"`
	Basic  *BasicAuth  `json:"basic,omitempty"`
	Bearer *BearerAuth `json:"bearer,omitempty"`
}

// NewBasicAuth creates a basic auth configuration.
func NewBasicAuth(username, password string) *AuthConfig {
	return &AuthConfig{
		Type:  AuthTypeBasic,
		Basic: &BasicAuth{Username: username, Password: password},
	}
}

// NewBearerAuth creates a bearer token auth configuration.
func NewBearerAuth(token string) *AuthConfig {
	return &AuthConfig{
		Type:   AuthTypeBearer,
		Bearer: &BearerAuth{Token: token},
	}
}

// IsConfigured returns true if the config selects an auth type other
// than none.
func (a *AuthConfig) IsConfigured() bool {
	if a == nil {
		return false
	}
	return a.Type != "" && a.Type != AuthTypeNone
}

// Validate checks that the selected variant carries its payload.
func (a *AuthConfig) Validate() error {
	if a == nil {
		return nil
	}
	switch a.Type {
	case "", AuthTypeNone:
		return nil
	case AuthTypeBasic:
		if a.Basic == nil {
			return fmt.Errorf("basic auth requires credentials")
		}
	case AuthTypeBearer:
		if a.Bearer == nil {
			return fmt.Errorf("bearer auth requires a token")
		}
	default:
		return fmt.Errorf("unknown auth type: %s", a.Type)
	}
	return nil
}

// Headers derives the authorization headers produced by this config.
// A variant with all fields left empty yields no header.
func (a *AuthConfig) Headers() map[string]string {
	headers := make(map[string]string)
	if !a.IsConfigured() {
		return headers
	}

	switch a.Type {
	case AuthTypeBasic:
		if a.Basic != nil && (a.Basic.Username != "" || a.Basic.Password != "") {
			credentials := base64.StdEncoding.EncodeToString(
				[]byte(a.Basic.Username + ":" + a.Basic.Password),
			)
			headers["Authorization"] = "Basic " + credentials
		}
	case AuthTypeBearer:
		if a.Bearer != nil && a.Bearer.Token != "" {
			headers["Authorization"] = "Bearer " + a.Bearer.Token
		}
	}

	return headers
}

// Clone creates a deep copy of the auth config.
func (a *AuthConfig) Clone() *AuthConfig {
	if a == nil {
		return nil
	}
	clone := &AuthConfig{Type: a.Type}
	if a.Basic != nil {
		basic := *a.Basic
		clone.Basic = &basic
	}
	if a.Bearer != nil {
		bearer := *a.Bearer
		clone.Bearer = &bearer
	}
	return clone
}

// Summary returns a brief description of the configuration.
func (a *AuthConfig) Summary() string {
	if !a.IsConfigured() {
		return "No authentication"
	}
	switch a.Type {
	case AuthTypeBasic:
		if a.Basic != nil {
			return fmt.Sprintf("Basic: %s", a.Basic.Username)
		}
		return "Basic"
	case AuthTypeBearer:
		if a.Bearer != nil && len(a.Bearer.Token) > 12 {
			return fmt.Sprintf("Bearer: %s...", a.Bearer.Token[:8])
		}
		return "Bearer: ****"
	default:
		return string(a.Type)
	}
}
