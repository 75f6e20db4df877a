package studentdata

import (
	"context"
	"time"

	"snassist-backend/lib/scrapers/schulnetz"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Credentials is how the session cache obtains the portal password for
// a login name on a cache miss.
type Credentials interface {
	Lookup(ctx context.Context, login string) (password string, err error)
}

// SessionCache hands out logged-in portal clients, reusing live
// sessions so repeated fetches for the same account don't burn through
// logins. Entries expire after the portal's idle timeout would have
// killed the session anyway.
type SessionCache struct {
	cache       *expirable.LRU[string, *schulnetz.Client]
	baseUrl     string
	credentials Credentials
}

func NewSessionCache(baseUrl string, credentials Credentials) SessionCache {
	return SessionCache{
		cache:       expirable.NewLRU[string, *schulnetz.Client](2048, nil, time.Minute*15),
		baseUrl:     baseUrl,
		credentials: credentials,
	}
}

func (s SessionCache) Get(ctx context.Context, login string) (*schulnetz.Client, error) {
	cached, hit := s.cache.Get(login)
	if hit && cached.LoggedIn() {
		return cached, nil
	}

	password, err := s.credentials.Lookup(ctx, login)
	if err != nil {
		return nil, err
	}

	client, err := schulnetz.NewClient(ctx, schulnetz.ClientOptions{
		BaseUrl:  s.baseUrl,
		Login:    login,
		Password: password,
	})
	if err != nil {
		return nil, err
	}
	err = client.Login(ctx)
	if err != nil {
		return nil, err
	}

	s.cache.Add(login, client)
	return client, nil
}
