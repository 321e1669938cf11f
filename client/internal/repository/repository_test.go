package repository

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/storynest/storynest/client/internal/api"
	apierrors "github.com/storynest/storynest/client/internal/errors"
	"github.com/storynest/storynest/client/fakeapi"
	"github.com/storynest/storynest/client/internal/types"
)

const ttl = 300 * time.Second

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type harness struct {
	fake    *fakeapi.Server
	srv     *httptest.Server
	clock   *testClock
	kids    *KidRepository
	stories *StoryRepository
}

func newHarness(t *testing.T, opts ...fakeapi.Option) *harness {
	t.Helper()
	clk := &testClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	fake := fakeapi.New(append([]fakeapi.Option{fakeapi.WithClock(clk.Now)}, opts...)...)
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	tr := api.NewTransport(srv.URL, srv.Client(), zerolog.Nop())
	o := Options{TTL: ttl, Now: clk.Now, Logger: zerolog.Nop()}
	return &harness{
		fake:    fake,
		srv:     srv,
		clock:   clk,
		kids:    NewKids(tr, o),
		stories: NewStories(tr, o),
	}
}

func intp(v int) *int       { return &v }
func strp(v string) *string { return &v }

func ids(ks []types.Kid) []string {
	out := make([]string, 0, len(ks))
	for _, k := range ks {
		out = append(out, k.ID)
	}
	return out
}

// A list stored 10s ago with a 300s TTL is served without touching the network.
func TestListForOwner_FreshHitNoNetwork(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.fake.SeedKid(types.Kid{ID: "kid-1", UserID: "u1", Name: "Alice"})

	_, err := h.kids.ListForOwner(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, 1, h.fake.Requests(fakeapi.RouteListKids))

	h.clock.Advance(10 * time.Second)
	got, err := h.kids.ListForOwner(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, []string{"kid-1"}, ids(got))
	require.Equal(t, 1, h.fake.TotalRequests())
}

func TestListForOwner_ExpiresAtTTL(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.fake.SeedKid(types.Kid{ID: "kid-1", UserID: "u1", Name: "Alice"})

	_, err := h.kids.ListForOwner(ctx, "u1")
	require.NoError(t, err)

	h.clock.Advance(ttl - time.Second)
	_, err = h.kids.ListForOwner(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, 1, h.fake.Requests(fakeapi.RouteListKids))

	h.clock.Advance(time.Second)
	_, err = h.kids.ListForOwner(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, 2, h.fake.Requests(fakeapi.RouteListKids))
}

func TestListForOwner_StaleOnHTTPFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.fake.SeedKid(types.Kid{ID: "kid-1", UserID: "u1", Name: "Alice"})

	_, err := h.kids.ListForOwner(ctx, "u1")
	require.NoError(t, err)

	h.clock.Advance(ttl + time.Second)
	h.fake.Force(fakeapi.RouteListKids, http.StatusInternalServerError, "boom")
	got, err := h.kids.ListForOwner(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, []string{"kid-1"}, ids(got))
	require.Equal(t, 2, h.fake.Requests(fakeapi.RouteListKids), "a live fetch must be attempted first")
}

func TestListForOwner_StaleOnTransportFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.fake.SeedKid(types.Kid{ID: "kid-1", UserID: "u1", Name: "Alice"})

	_, err := h.kids.ListForOwner(ctx, "u1")
	require.NoError(t, err)

	h.clock.Advance(ttl + time.Second)
	h.srv.Close()
	got, err := h.kids.ListForOwner(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, []string{"kid-1"}, ids(got))
}

// An unreachable backend with nothing cached surfaces the transport error,
// never an empty list.
func TestListForOwner_UnreachableNoCache(t *testing.T) {
	h := newHarness(t)
	h.srv.Close()

	got, err := h.kids.ListForOwner(context.Background(), "u2")
	require.Nil(t, got)
	var te *apierrors.TransportError
	require.ErrorAs(t, err, &te)
	require.Equal(t, apierrors.OpFetch, te.Op)
}

func TestListForOwner_FetchErrorWithoutStale(t *testing.T) {
	h := newHarness(t)
	h.fake.Force(fakeapi.RouteListKids, http.StatusServiceUnavailable, "maintenance")

	_, err := h.kids.ListForOwner(context.Background(), "u1")
	require.ErrorIs(t, err, apierrors.ErrFetch)
	code, ok := apierrors.StatusCodeOf(err)
	require.True(t, ok)
	require.Equal(t, http.StatusServiceUnavailable, code)
}

func TestListForOwner_DecodeErrorNoFallback(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.fake.SeedKid(types.Kid{ID: "kid-1", UserID: "u1", Name: "Alice"})
	_, err := h.kids.ListForOwner(ctx, "u1")
	require.NoError(t, err)

	h.clock.Advance(ttl)
	h.fake.Force(fakeapi.RouteListKids, http.StatusOK, `{"kids":[{"name":"no id"}]}`)
	_, err = h.kids.ListForOwner(ctx, "u1")
	var de *apierrors.DecodeError
	require.ErrorAs(t, err, &de)
}

func TestListForOwner_ReturnsCopy(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.fake.SeedKid(types.Kid{ID: "kid-1", UserID: "u1", Name: "Alice"})

	got, err := h.kids.ListForOwner(ctx, "u1")
	require.NoError(t, err)
	got[0].Name = "mutated"

	again, err := h.kids.ListForOwner(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "Alice", again[0].Name)
}

func TestListForOwner_ReturnsDeepCopy(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.fake.SeedKid(types.Kid{ID: "kid-1", UserID: "u1", Name: "Alice", Age: intp(7), FavoriteGenres: []string{"space"}})

	got, err := h.kids.ListForOwner(ctx, "u1")
	require.NoError(t, err)
	*got[0].Age = 99
	got[0].FavoriteGenres[0] = "mutated"

	again, err := h.kids.ListForOwner(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, 7, *again[0].Age)
	require.Equal(t, []string{"space"}, again[0].FavoriteGenres)
	require.Equal(t, 1, h.fake.Requests(fakeapi.RouteListKids))

	k, err := h.kids.Get(ctx, "kid-1")
	require.NoError(t, err)
	*k.Age = 42
	k, err = h.kids.Get(ctx, "kid-1")
	require.NoError(t, err)
	require.Equal(t, 7, *k.Age)
}

// A caller deadline that fires before a slow backend answers is a transport
// failure: the expired list is served.
func TestListForOwner_StaleOnDeadline(t *testing.T) {
	h := newHarness(t)
	h.fake.SeedKid(types.Kid{ID: "kid-1", UserID: "u1", Name: "Alice"})
	_, err := h.kids.ListForOwner(context.Background(), "u1")
	require.NoError(t, err)

	h.clock.Advance(ttl + time.Second)
	h.fake.SetDelay(300 * time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	got, err := h.kids.ListForOwner(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, []string{"kid-1"}, ids(got))
}

func TestGet_StaleOnDeadline(t *testing.T) {
	h := newHarness(t)
	h.fake.SeedKid(types.Kid{ID: "kid-1", UserID: "u1", Name: "Alice"})
	_, err := h.kids.Get(context.Background(), "kid-1")
	require.NoError(t, err)

	h.clock.Advance(ttl + time.Second)
	h.fake.SetDelay(300 * time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	k, err := h.kids.Get(ctx, "kid-1")
	require.NoError(t, err)
	require.Equal(t, "Alice", k.Name)
}

// Creating a kid drops the owner's list so the next read goes to the network.
func TestCreate_InvalidatesOwnerList(t *testing.T) {
	h := newHarness(t, fakeapi.WithIDGenerator(func() string { return "k9" }))
	ctx := context.Background()

	_, err := h.kids.ListForOwner(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, 1, h.fake.Requests(fakeapi.RouteListKids))

	created, err := h.kids.Create(ctx, types.CreateKidRequest{UserID: "u1", Name: "Alice", Age: intp(7)})
	require.NoError(t, err)
	require.Equal(t, "k9", created.ID)
	require.Equal(t, 7, *created.Age)
	require.True(t, created.CreatedAt.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))

	got, err := h.kids.ListForOwner(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, 2, h.fake.Requests(fakeapi.RouteListKids))
	require.Equal(t, []string{"k9"}, ids(got))
}

func TestCreate_FailureLeavesCache(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.kids.ListForOwner(ctx, "u1")
	require.NoError(t, err)

	h.fake.Force(fakeapi.RouteCreateKid, http.StatusBadRequest, "nope")
	_, err = h.kids.Create(ctx, types.CreateKidRequest{UserID: "u1", Name: "Alice"})
	require.ErrorIs(t, err, apierrors.ErrCreate)

	_, err = h.kids.ListForOwner(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, 1, h.fake.Requests(fakeapi.RouteListKids))
}

// A failed update keeps whatever item:{id} held before the call.
func TestUpdate_NotFoundLeavesItemCache(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.fake.SeedKid(types.Kid{ID: "k9", UserID: "u1", Name: "Alice"})

	before, err := h.kids.Get(ctx, "k9")
	require.NoError(t, err)

	h.fake.Force(fakeapi.RouteUpdateKid, http.StatusNotFound, "")
	_, err = h.kids.Update(ctx, "k9", types.UpdateKidRequest{Name: strp("Alicia")})
	require.ErrorIs(t, err, apierrors.ErrUpdate)
	code, _ := apierrors.StatusCodeOf(err)
	require.Equal(t, http.StatusNotFound, code)

	after, err := h.kids.Get(ctx, "k9")
	require.NoError(t, err)
	require.Equal(t, before, after)
	require.Equal(t, 1, h.fake.Requests(fakeapi.RouteGetKid))
}

func TestUpdate_PartialPreservesFields(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.fake.SeedKid(types.Kid{ID: "k9", UserID: "u1", Name: "Alice", Age: intp(7), FavoriteGenres: []string{"space"}})

	got, err := h.kids.Update(ctx, "k9", types.UpdateKidRequest{Name: strp("Alicia")})
	require.NoError(t, err)
	require.Equal(t, "Alicia", got.Name)
	require.NotNil(t, got.Age)
	require.Equal(t, 7, *got.Age)
	require.Equal(t, []string{"space"}, got.FavoriteGenres)

	cached, err := h.kids.Get(ctx, "k9")
	require.NoError(t, err)
	require.Equal(t, "Alicia", cached.Name)
	require.Zero(t, h.fake.Requests(fakeapi.RouteGetKid), "update stores item:{id}")
}

func TestUpdate_InvalidatesOnlyOwnerList(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.fake.SeedKid(types.Kid{ID: "k1", UserID: "u1", Name: "A"})
	h.fake.SeedKid(types.Kid{ID: "k2", UserID: "u2", Name: "B"})

	_, err := h.kids.ListForOwner(ctx, "u1")
	require.NoError(t, err)
	_, err = h.kids.ListForOwner(ctx, "u2")
	require.NoError(t, err)

	_, err = h.kids.Update(ctx, "k1", types.UpdateKidRequest{Name: strp("AA")})
	require.NoError(t, err)

	_, err = h.kids.ListForOwner(ctx, "u2")
	require.NoError(t, err)
	require.Equal(t, 2, h.fake.Requests(fakeapi.RouteListKids))

	got, err := h.kids.ListForOwner(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, 3, h.fake.Requests(fakeapi.RouteListKids))
	require.Equal(t, "AA", got[0].Name)
}

func TestDelete_InvalidatesItemAndAllLists(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.fake.SeedKid(types.Kid{ID: "k1", UserID: "u1", Name: "A"})
	h.fake.SeedKid(types.Kid{ID: "k2", UserID: "u2", Name: "B"})
	_, _ = h.kids.ListForOwner(ctx, "u1")
	_, _ = h.kids.ListForOwner(ctx, "u2")
	_, _ = h.kids.Get(ctx, "k1")

	require.NoError(t, h.kids.Delete(ctx, "k1"))

	_, err := h.kids.Get(ctx, "k1")
	require.ErrorIs(t, err, apierrors.ErrFetch)
	_, _ = h.kids.ListForOwner(ctx, "u1")
	_, _ = h.kids.ListForOwner(ctx, "u2")
	require.Equal(t, 4, h.fake.Requests(fakeapi.RouteListKids))
}

func TestDelete_FailurePropagates(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.fake.SeedKid(types.Kid{ID: "k1", UserID: "u1", Name: "A"})
	_, _ = h.kids.Get(ctx, "k1")

	h.fake.Force(fakeapi.RouteDeleteKid, http.StatusForbidden, "")
	err := h.kids.Delete(ctx, "k1")
	require.ErrorIs(t, err, apierrors.ErrDelete)

	_, err = h.kids.Get(ctx, "k1")
	require.NoError(t, err)
	require.Equal(t, 1, h.fake.Requests(fakeapi.RouteGetKid))
}

func TestGet_NoStaleOnHTTPFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.fake.SeedKid(types.Kid{ID: "k1", UserID: "u1", Name: "A"})
	_, err := h.kids.Get(ctx, "k1")
	require.NoError(t, err)

	h.clock.Advance(ttl)
	h.fake.Force(fakeapi.RouteGetKid, http.StatusInternalServerError, "")
	_, err = h.kids.Get(ctx, "k1")
	require.ErrorIs(t, err, apierrors.ErrFetch)
}

func TestGet_StaleOnTransportFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.fake.SeedKid(types.Kid{ID: "k1", UserID: "u1", Name: "A"})
	_, err := h.kids.Get(ctx, "k1")
	require.NoError(t, err)

	h.clock.Advance(ttl)
	h.srv.Close()
	got, err := h.kids.Get(ctx, "k1")
	require.NoError(t, err)
	require.Equal(t, "A", got.Name)
}

func TestValidation_NoNetwork(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	var ve *apierrors.ValidationError

	_, err := h.kids.ListForOwner(ctx, "")
	require.ErrorAs(t, err, &ve)
	_, err = h.kids.Get(ctx, " ")
	require.ErrorAs(t, err, &ve)
	_, err = h.kids.Update(ctx, "k1", types.UpdateKidRequest{})
	require.ErrorAs(t, err, &ve)
	_, err = h.kids.Create(ctx, types.CreateKidRequest{UserID: "u1", Name: "A", PreferredLanguage: strp("not a tag!")})
	require.ErrorAs(t, err, &ve)
	_, err = h.stories.Generate(ctx, types.GenerateStoryRequest{})
	require.ErrorAs(t, err, &ve)
	require.Zero(t, h.fake.TotalRequests())
}

func TestCanceledContext(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := h.kids.ListForOwner(ctx, "u1")
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, h.fake.TotalRequests())
}

func TestClearCaches(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.fake.SeedKid(types.Kid{ID: "k1", UserID: "u1", Name: "A"})
	_, _ = h.kids.ListForOwner(ctx, "u1")
	_, _ = h.kids.Get(ctx, "k1")

	h.kids.ClearEntityCache("k1")
	_, _ = h.kids.Get(ctx, "k1")
	require.Equal(t, 2, h.fake.Requests(fakeapi.RouteGetKid))
	_, _ = h.kids.ListForOwner(ctx, "u1")
	require.Equal(t, 1, h.fake.Requests(fakeapi.RouteListKids))

	h.kids.ClearOwnerCache("u1")
	_, _ = h.kids.ListForOwner(ctx, "u1")
	require.Equal(t, 2, h.fake.Requests(fakeapi.RouteListKids))

	h.kids.ClearCache()
	_, _ = h.kids.ListForOwner(ctx, "u1")
	_, _ = h.kids.Get(ctx, "k1")
	require.Equal(t, 3, h.fake.Requests(fakeapi.RouteListKids))
	require.Equal(t, 3, h.fake.Requests(fakeapi.RouteGetKid))
}

func TestConcurrentReadsCoalesce(t *testing.T) {
	h := newHarness(t)
	h.fake.SeedKid(types.Kid{ID: "k1", UserID: "u1", Name: "A"})
	h.fake.SeedKid(types.Kid{ID: "k2", UserID: "u1", Name: "B"})
	h.fake.SetDelay(200 * time.Millisecond)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := h.kids.ListForOwner(context.Background(), "u1")
			if err == nil && len(got) != 2 {
				err = errors.New("unexpected list length")
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	require.Equal(t, 1, h.fake.Requests(fakeapi.RouteListKids))
}

// A caller that gives up still leaves the fetched list in the cache.
func TestAbandonedReadStillPopulatesCache(t *testing.T) {
	h := newHarness(t)
	h.fake.SeedKid(types.Kid{ID: "k1", UserID: "u1", Name: "A"})
	h.fake.SetDelay(100 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := h.kids.ListForOwner(ctx, "u1")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	require.Eventually(t, func() bool {
		_, ok := h.kids.s.lists.Get("list:u1")
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	got, err := h.kids.ListForOwner(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, 1, h.fake.Requests(fakeapi.RouteListKids))
}

// A read in flight when the cache is cleared must not repopulate it.
func TestInvalidationWinsOverInFlightRead(t *testing.T) {
	h := newHarness(t)
	h.fake.SeedKid(types.Kid{ID: "k1", UserID: "u1", Name: "A"})
	h.fake.SetDelay(100 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = h.kids.ListForOwner(context.Background(), "u1")
	}()
	require.Eventually(t, func() bool { return h.fake.Requests(fakeapi.RouteListKids) == 1 }, time.Second, 5*time.Millisecond)

	h.kids.ClearOwnerCache("u1")
	<-done
	h.fake.SetDelay(0)

	_, err := h.kids.ListForOwner(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, 2, h.fake.Requests(fakeapi.RouteListKids))
}
