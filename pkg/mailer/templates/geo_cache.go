package templates

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

// ErrNonPublicIP is returned for addresses no geo service can place.
var ErrNonPublicIP = errors.New("ip is not public")

// CachedResolver memoizes successful lookups of next and collapses
// concurrent lookups of the same IP into one call.
type CachedResolver struct {
	next  GeoResolver
	cache *expirable.LRU[string, Geo]
	group singleflight.Group
}

func NewCachedResolver(next GeoResolver, size int, ttl time.Duration) *CachedResolver {
	return &CachedResolver{next: next, cache: expirable.NewLRU[string, Geo](size, nil, ttl)}
}

func (r *CachedResolver) Lookup(ctx context.Context, ip string) (Geo, error) {
	ip = strings.TrimSpace(ip)
	addr := net.ParseIP(ip)
	if addr == nil {
		return Geo{}, errors.New("invalid ip")
	}
	if addr.IsLoopback() || addr.IsPrivate() || addr.IsUnspecified() || addr.IsLinkLocalUnicast() {
		return Geo{}, ErrNonPublicIP
	}
	key := addr.String()
	if g, ok := r.cache.Get(key); ok {
		return g, nil
	}
	v, err, _ := r.group.Do(key, func() (any, error) {
		g, err := r.next.Lookup(ctx, key)
		if err != nil {
			return Geo{}, err
		}
		r.cache.Add(key, g)
		return g, nil
	})
	if err != nil {
		return Geo{}, err
	}
	return v.(Geo), nil
}
