package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/storynest/storynest/client/fakeapi"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func newFakeBackend(t *testing.T, opts ...fakeapi.Option) (*fakeapi.Server, *httptest.Server) {
	t.Helper()
	fake := fakeapi.New(opts...)
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return fake, srv
}

func newTestClient(t *testing.T, baseURL string, opts ...Option) *Client {
	t.Helper()
	c, err := New(baseURL, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestNew_EmptyBaseURL(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatal("expected error for empty base URL")
	}
}

func TestNew_FailingOption(t *testing.T) {
	_, err := New("http://example.com", WithHTTPTimeout(0))
	if err == nil {
		t.Fatal("expected option error")
	}
}

func TestClient_ReadsThroughCache(t *testing.T) {
	fake, srv := newFakeBackend(t)
	fake.SeedKid(Kid{ID: "k1", UserID: "u1", Name: "Alice"})
	c := newTestClient(t, srv.URL)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		kids, err := c.Kids().ListForOwner(ctx, "u1")
		if err != nil {
			t.Fatalf("ListForOwner: %v", err)
		}
		if len(kids) != 1 || kids[0].Name != "Alice" {
			t.Fatalf("unexpected kids: %+v", kids)
		}
	}
	if n := fake.Requests(fakeapi.RouteListKids); n != 1 {
		t.Fatalf("expected one backend request, got %d", n)
	}
}

func TestClient_DeleteKidDropsStoryList(t *testing.T) {
	fake, srv := newFakeBackend(t)
	fake.SeedKid(Kid{ID: "k1", UserID: "u1", Name: "Alice"})
	fake.SeedStory(Story{ID: "s1", KidID: "k1", Title: "Moon", Status: StoryApproved})
	c := newTestClient(t, srv.URL)
	ctx := context.Background()

	if _, err := c.Stories().ListForOwner(ctx, "k1"); err != nil {
		t.Fatalf("ListForOwner: %v", err)
	}
	if err := c.DeleteKid(ctx, "k1"); err != nil {
		t.Fatalf("DeleteKid: %v", err)
	}
	stories, err := c.Stories().ListForOwner(ctx, "k1")
	if err != nil {
		t.Fatalf("ListForOwner after delete: %v", err)
	}
	if len(stories) != 0 {
		t.Fatalf("expected stories to be refetched and empty, got %+v", stories)
	}
	if n := fake.Requests(fakeapi.RouteListStories); n != 2 {
		t.Fatalf("expected 2 story list requests, got %d", n)
	}
}

func TestClient_DeleteKidDropsCascadedStories(t *testing.T) {
	fake, srv := newFakeBackend(t)
	fake.SeedKid(Kid{ID: "k1", UserID: "u1", Name: "Alice"})
	fake.SeedStory(Story{ID: "s1", KidID: "k1", Title: "Moon", Status: StoryPending})
	c := newTestClient(t, srv.URL)
	ctx := context.Background()

	if _, err := c.Stories().Get(ctx, "s1"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if pending, err := c.Stories().ListPending(ctx, "u1"); err != nil || len(pending) != 1 {
		t.Fatalf("ListPending: %v %+v", err, pending)
	}
	if err := c.DeleteKid(ctx, "k1"); err != nil {
		t.Fatalf("DeleteKid: %v", err)
	}

	if _, err := c.Stories().Get(ctx, "s1"); !IsNotFound(err) {
		t.Fatalf("expected deleted story to be refetched as 404, got %v", err)
	}
	pending, err := c.Stories().ListPending(ctx, "u1")
	if err != nil {
		t.Fatalf("ListPending after delete: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no pending stories, got %+v", pending)
	}
	if n := fake.Requests(fakeapi.RouteListPending); n != 2 {
		t.Fatalf("expected 2 pending list requests, got %d", n)
	}
}

func TestClient_DeleteKidFailureKeepsCache(t *testing.T) {
	fake, srv := newFakeBackend(t)
	fake.SeedKid(Kid{ID: "k1", UserID: "u1", Name: "Alice"})
	c := newTestClient(t, srv.URL)
	ctx := context.Background()

	if _, err := c.Stories().ListForOwner(ctx, "k1"); err != nil {
		t.Fatalf("ListForOwner: %v", err)
	}
	fake.Force(fakeapi.RouteDeleteKid, http.StatusInternalServerError, "boom")
	err := c.DeleteKid(ctx, "k1")
	if !IsDeleteError(err) {
		t.Fatalf("expected delete error, got %v", err)
	}
	if _, err := c.Stories().ListForOwner(ctx, "k1"); err != nil {
		t.Fatalf("ListForOwner: %v", err)
	}
	if n := fake.Requests(fakeapi.RouteListStories); n != 1 {
		t.Fatalf("story list should still be cached, got %d requests", n)
	}
}

func TestClient_SignOutClearsCaches(t *testing.T) {
	fake, srv := newFakeBackend(t)
	fake.SeedKid(Kid{ID: "k1", UserID: "u1", Name: "Alice"})
	c := newTestClient(t, srv.URL)
	ctx := context.Background()

	if err := c.Session().SignIn("u1", "tok"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if _, err := c.Kids().ListForOwner(ctx, "u1"); err != nil {
		t.Fatalf("ListForOwner: %v", err)
	}
	c.Session().SignOut()
	if _, err := c.Kids().ListForOwner(ctx, "u1"); err != nil {
		t.Fatalf("ListForOwner: %v", err)
	}
	if n := fake.Requests(fakeapi.RouteListKids); n != 2 {
		t.Fatalf("expected refetch after sign out, got %d requests", n)
	}
}

func TestClient_ErrorHelpers(t *testing.T) {
	fake, srv := newFakeBackend(t)
	c := newTestClient(t, srv.URL)
	ctx := context.Background()

	_, err := c.Kids().Get(ctx, "missing")
	if !IsFetchError(err) || !IsNotFound(err) {
		t.Fatalf("expected fetch 404, got %v", err)
	}
	if code, ok := StatusCode(err); !ok || code != http.StatusNotFound {
		t.Fatalf("StatusCode = %d, %v", code, ok)
	}
	if IsRetryable(err) {
		t.Fatal("404 must not be retryable")
	}

	fake.Force(fakeapi.RouteCreateKid, http.StatusServiceUnavailable, "busy")
	_, err = c.Kids().Create(ctx, CreateKidRequest{UserID: "u1", Name: "Bo"})
	if !IsCreateError(err) || !IsRetryable(err) {
		t.Fatalf("expected retryable create error, got %v", err)
	}

	_, err = c.Kids().Update(ctx, "k1", UpdateKidRequest{})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestClient_TransportErrorHelper(t *testing.T) {
	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return nil, context.DeadlineExceeded
	})
	c := newTestClient(t, "http://example.com", WithHTTPClient(&http.Client{Transport: rt}))
	_, err := c.Stories().Get(context.Background(), "s1")
	if !IsTransportError(err) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("transport error should unwrap to the cause, got %v", err)
	}
}

func TestClient_CloseIdempotent(t *testing.T) {
	c, err := New("http://example.com")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestClient_CacheTTLOption(t *testing.T) {
	fake, srv := newFakeBackend(t)
	fake.SeedKid(Kid{ID: "k1", UserID: "u1", Name: "Alice"})
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := newTestClient(t, srv.URL, WithCacheTTL(time.Minute), WithClock(func() time.Time { return now }))
	ctx := context.Background()

	if _, err := c.Kids().Get(ctx, "k1"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	now = now.Add(59 * time.Second)
	if _, err := c.Kids().Get(ctx, "k1"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	now = now.Add(time.Second)
	if _, err := c.Kids().Get(ctx, "k1"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if n := fake.Requests(fakeapi.RouteGetKid); n != 2 {
		t.Fatalf("expected 2 requests across the TTL boundary, got %d", n)
	}
}
