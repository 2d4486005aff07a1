// Package medapi holds the per-resource calls to the clinic backend. Each call
// only templates the URL and translates the wire shape; errors from the
// gateway are returned unchanged.
package medapi

import (
	"net/url"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/clinic-portal/internal/model"
	"github.com/jwalitptl/clinic-portal/pkg/apiclient"
)

type Client struct {
	gw        *apiclient.Client
	directory *cache.Cache
	logger    *zerolog.Logger
}

type Option func(*Client)

// WithDirectoryCache caches specialization and doctor lists for ttl.
// A zero ttl disables caching.
func WithDirectoryCache(ttl time.Duration) Option {
	return func(c *Client) {
		if ttl > 0 {
			c.directory = cache.New(ttl, 2*ttl)
		}
	}
}

func WithLogger(l *zerolog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func New(gw *apiclient.Client, opts ...Option) *Client {
	nop := zerolog.Nop()
	c := &Client{gw: gw, logger: &nop}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithToken returns a client acting for the holder of token. The directory
// cache is shared.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.gw = c.gw.WithToken(token)
	return &cp
}

func pathf(segments ...string) string {
	out := ""
	for _, s := range segments {
		out += "/" + url.PathEscape(s)
	}
	return out
}

func idPath(prefix string, id model.ID, suffix ...string) string {
	return prefix + pathf(append([]string{id.String()}, suffix...)...)
}
