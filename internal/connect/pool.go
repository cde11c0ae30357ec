// Package connect implements the three-legged OAuth flow that links a
// user's YouTube channel. Each flow is bound to one client identity drawn
// at random from a configured pool, so quota load spreads across Google
// Cloud projects.
package connect

import (
	"errors"
	"math/rand/v2"

	"tubepost/internal/config"
	"tubepost/internal/external"
)

// ClientPool is an immutable ordered set of OAuth client identities.
type ClientPool struct {
	clients []external.OAuthClientConfig
	byID    map[string]int
	intn    func(n int) int
}

// NewClientPool builds a pool from the configured clients.
func NewClientPool(clients []config.OAuthClient) (*ClientPool, error) {
	if len(clients) == 0 {
		return nil, errors.New("oauth client pool is empty")
	}
	p := &ClientPool{
		clients: make([]external.OAuthClientConfig, 0, len(clients)),
		byID:    make(map[string]int, len(clients)),
		intn:    rand.IntN,
	}
	for _, c := range clients {
		if _, dup := p.byID[c.ClientID]; dup {
			continue
		}
		p.byID[c.ClientID] = len(p.clients)
		p.clients = append(p.clients, external.OAuthClientConfig{
			ClientID:     c.ClientID,
			ClientSecret: c.ClientSecret.Unmask(),
			AuthURL:      c.AuthURL,
			TokenURL:     c.TokenURL,
		})
	}
	return p, nil
}

// Len returns the number of identities.
func (p *ClientPool) Len() int { return len(p.clients) }

// Pick returns one identity chosen uniformly at random.
func (p *ClientPool) Pick() external.OAuthClientConfig {
	return p.clients[p.intn(len(p.clients))]
}

// Lookup returns the identity with clientID.
func (p *ClientPool) Lookup(clientID string) (external.OAuthClientConfig, bool) {
	i, ok := p.byID[clientID]
	if !ok {
		return external.OAuthClientConfig{}, false
	}
	return p.clients[i], true
}
