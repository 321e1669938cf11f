// Package repository implements the read-through caching layer between SDK
// callers and the backend. Reads are served from a TTL cache when fresh and
// fall back to stale entries when the backend cannot answer; writes always go
// to the backend and invalidate what they may have made stale.
package repository

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/storynest/storynest/client/internal/cache"
	apierrors "github.com/storynest/storynest/client/internal/errors"
)

// DefaultTTL is used when Options.TTL is not set.
const DefaultTTL = 5 * time.Minute

const (
	listPrefix    = "list:"
	itemPrefix    = "item:"
	pendingPrefix = "pending:"
)

// Options configures a repository.
type Options struct {
	TTL    time.Duration
	Now    func() time.Time
	Logger zerolog.Logger
}

func (o Options) withDefaults() Options {
	if o.TTL <= 0 {
		o.TTL = DefaultTTL
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// lists degrade on any HTTP failure, transport error or timeout.
func listFallback(err error) bool {
	var se *apierrors.StatusError
	return errors.As(err, &se) || unreachable(err)
}

// single items degrade only when the backend is unreachable.
func itemFallback(err error) bool { return unreachable(err) }

// unreachable reports a transport failure. A caller deadline that fires
// before the shared fetch answers counts as one; cancellation does not.
func unreachable(err error) bool {
	var te *apierrors.TransportError
	return errors.As(err, &te) || errors.Is(err, context.DeadlineExceeded)
}

// cloner is satisfied by the cached entities. Values leave the store only as
// clones so callers cannot reach into cached pointers or slices.
type cloner[T any] interface {
	Clone() T
}

func cloneAll[T cloner[T]](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	for i, v := range in {
		out[i] = v.Clone()
	}
	return out
}

// store holds the two caches of one resource plus the in-flight read group.
// Keys in lists are list:{owner} or pending:{user}; keys in items are item:{id}.
//
// Every write or invalidation bumps epoch. A fetch that started under an
// older epoch neither stores its result nor is joined by later readers, so
// an invalidation is never undone by a read that was already in flight.
type store[T cloner[T]] struct {
	resource string
	lists    *cache.Cache[[]T]
	items    *cache.Cache[T]
	group    singleflight.Group
	log      zerolog.Logger

	mu    sync.Mutex
	epoch uint64
}

func newStore[T cloner[T]](resource string, o Options) *store[T] {
	return &store[T]{
		resource: resource,
		lists:    cache.New[[]T](o.TTL, o.Now),
		items:    cache.New[T](o.TTL, o.Now),
		log:      o.Logger.With().Str("resource", resource).Logger(),
	}
}

func (s *store[T]) readList(ctx context.Context, key string, fetch func(context.Context) ([]T, error)) ([]T, error) {
	if v, ok := s.lists.Get(key); ok {
		s.outcome(key, outcomeHit)
		return cloneAll(v), nil
	}
	s.outcome(key, outcomeMiss)
	ep := s.currentEpoch()
	v, err := coalesce(ctx, &s.group, flightKey(key, ep), func(c context.Context) ([]T, error) {
		l, err := fetch(c)
		if err == nil {
			s.storeIfCurrent(ep, func() { s.lists.Set(key, l) })
		}
		return l, err
	})
	if err == nil {
		return cloneAll(v), nil
	}
	if listFallback(err) {
		if stale, ok := s.lists.GetStale(key); ok {
			s.staleServed(key, err)
			return cloneAll(stale), nil
		}
	}
	return nil, err
}

func (s *store[T]) readItem(ctx context.Context, id string, fetch func(context.Context) (T, error)) (T, error) {
	key := itemPrefix + id
	if v, ok := s.items.Get(key); ok {
		s.outcome(key, outcomeHit)
		return v.Clone(), nil
	}
	s.outcome(key, outcomeMiss)
	ep := s.currentEpoch()
	v, err := coalesce(ctx, &s.group, flightKey(key, ep), func(c context.Context) (T, error) {
		it, err := fetch(c)
		if err == nil {
			s.storeIfCurrent(ep, func() { s.items.Set(key, it) })
		}
		return it, err
	})
	if err == nil {
		return v.Clone(), nil
	}
	if itemFallback(err) {
		if stale, ok := s.items.GetStale(key); ok {
			s.staleServed(key, err)
			return stale.Clone(), nil
		}
	}
	var zero T
	return zero, err
}

// afterWrite stores the written entity and drops the list keys it may have
// changed. An empty owner means the owner is not known here, so every list
// of the resource goes.
func (s *store[T]) afterWrite(id string, v T, owner string, alsoPrefixes ...string) {
	s.mutate(func() {
		s.items.Set(itemPrefix+id, v.Clone())
		s.dropOwnerLocked(owner)
		for _, p := range alsoPrefixes {
			s.lists.InvalidatePrefix(p)
		}
	})
}

func (s *store[T]) afterDelete(id string, alsoPrefixes ...string) {
	n := 0
	s.mutate(func() {
		s.items.Invalidate(itemPrefix + id)
		n = s.lists.InvalidatePrefix(listPrefix)
		for _, p := range alsoPrefixes {
			n += s.lists.InvalidatePrefix(p)
		}
	})
	s.log.Debug().Str("id", id).Int("lists_dropped", n).Msg("cache invalidated after delete")
}

// afterCreate drops the lists that should now include the new entity.
func (s *store[T]) afterCreate(owners []string, alsoPrefixes ...string) {
	s.mutate(func() {
		for _, o := range owners {
			if o != "" {
				s.lists.Invalidate(listPrefix + o)
			}
		}
		for _, p := range alsoPrefixes {
			s.lists.InvalidatePrefix(p)
		}
	})
}

// dropOwned drops listKey, every item owned reports true for, and every list
// under alsoPrefixes.
func (s *store[T]) dropOwned(listKey string, owned func(T) bool, alsoPrefixes ...string) {
	n := 0
	s.mutate(func() {
		s.lists.Invalidate(listKey)
		n = s.items.InvalidateFunc(func(_ string, v T) bool { return owned(v) })
		for _, p := range alsoPrefixes {
			s.lists.InvalidatePrefix(p)
		}
	})
	s.log.Debug().Str("list", listKey).Int("items_dropped", n).Msg("owner cache invalidated")
}

func (s *store[T]) dropOwnerLocked(owner string) {
	if owner == "" {
		s.lists.InvalidatePrefix(listPrefix)
		return
	}
	s.lists.Invalidate(listPrefix + owner)
}

func (s *store[T]) dropList(key string) { s.mutate(func() { s.lists.Invalidate(key) }) }

func (s *store[T]) dropItem(id string) { s.mutate(func() { s.items.Invalidate(itemPrefix + id) }) }

func (s *store[T]) clear() {
	s.mutate(func() {
		s.lists.Clear()
		s.items.Clear()
	})
}

func (s *store[T]) mutate(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	fn()
}

func (s *store[T]) currentEpoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

func (s *store[T]) storeIfCurrent(ep uint64, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch == ep {
		fn()
	}
}

func flightKey(key string, ep uint64) string { return key + "#" + strconv.FormatUint(ep, 10) }

func (s *store[T]) outcome(key string, outcome string) {
	cacheLookupsTotal.WithLabelValues(s.resource, outcome).Inc()
	s.log.Debug().Str("key", key).Str("outcome", outcome).Msg("cache lookup")
}

func (s *store[T]) staleServed(key string, cause error) {
	cacheLookupsTotal.WithLabelValues(s.resource, outcomeStale).Inc()
	s.log.Warn().Err(cause).Str("key", key).Msg("backend read failed, serving stale entry")
}

// coalesce runs fn once per key among concurrent callers. The shared call is
// detached from the caller's cancellation so an abandoned read still fills
// the cache; each caller still returns as soon as its own ctx is done.
func coalesce[V any](ctx context.Context, g *singleflight.Group, key string, fn func(context.Context) (V, error)) (V, error) {
	var zero V
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	shared := context.WithoutCancel(ctx)
	ch := g.DoChan(key, func() (any, error) {
		return fn(shared)
	})
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return zero, r.Err
		}
		return r.Val.(V), nil
	}
}
