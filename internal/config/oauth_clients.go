package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// rawClient covers both the flat {"client_id","client_secret"} form and the
// inner object of Google's downloaded client_secret.json.
type rawClient struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	AuthURI      string `json:"auth_uri"`
	TokenURI     string `json:"token_uri"`

	Web       *rawClient `json:"web"`
	Installed *rawClient `json:"installed"`
}

func (r rawClient) flatten() OAuthClient {
	src := r
	switch {
	case r.Web != nil:
		src = *r.Web
	case r.Installed != nil:
		src = *r.Installed
	}
	return OAuthClient{
		ClientID:     src.ClientID,
		ClientSecret: SecretString(src.ClientSecret),
		AuthURL:      src.AuthURI,
		TokenURL:     src.TokenURI,
	}
}

// ParseOAuthClients decodes the client pool from a JSON array or a single
// JSON object. Duplicate client ids are rejected.
func ParseOAuthClients(data string) ([]OAuthClient, error) {
	trimmed := bytes.TrimSpace([]byte(data))
	if len(trimmed) == 0 {
		return nil, errors.New("empty client list")
	}

	var raws []rawClient
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &raws); err != nil {
			return nil, fmt.Errorf("decode client array: %w", err)
		}
	case '{':
		var one rawClient
		if err := json.Unmarshal(trimmed, &one); err != nil {
			return nil, fmt.Errorf("decode client object: %w", err)
		}
		raws = []rawClient{one}
	default:
		return nil, errors.New("expected a JSON array or object")
	}

	if len(raws) == 0 {
		return nil, errors.New("empty client list")
	}

	seen := make(map[string]struct{}, len(raws))
	clients := make([]OAuthClient, 0, len(raws))
	for i, r := range raws {
		c := r.flatten()
		if c.ClientID == "" || c.ClientSecret.IsEmpty() {
			return nil, fmt.Errorf("client #%d: client_id and client_secret are required", i)
		}
		if _, dup := seen[c.ClientID]; dup {
			return nil, fmt.Errorf("client #%d: duplicate client_id %q", i, c.ClientID)
		}
		seen[c.ClientID] = struct{}{}
		clients = append(clients, c)
	}
	return clients, nil
}
