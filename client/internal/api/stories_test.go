package api

import (
	"context"
	"errors"
	"net/http"
	"testing"

	apierrors "github.com/storynest/storynest/client/internal/errors"
	"github.com/storynest/storynest/client/internal/types"
)

const storyJSON = `{"id":"s5","kid_id":"k1","title":"The Moon Fox","content":"Once...","status":"approved","is_favourite":true,"created_at":"2024-02-01T08:00:00Z"}`

func TestListStories_Success(t *testing.T) {
	t.Parallel()
	tr, rec := newServer(t, http.StatusOK, `{"stories":[`+storyJSON+`]}`)
	got, err := ListStories(context.Background(), tr, "k1")
	if err != nil || len(got) != 1 || got[0].Title != "The Moon Fox" {
		t.Fatalf("ListStories unexpected: got=%+v err=%v", got, err)
	}
	if _, uri, _, _ := rec.snapshot(); uri != "/stories/kid/k1" {
		t.Fatalf("unexpected uri %s", uri)
	}
}

func TestListPendingStories_Query(t *testing.T) {
	t.Parallel()
	tr, rec := newServer(t, http.StatusOK, `{"stories":[]}`)
	got, err := ListPendingStories(context.Background(), tr, "u1")
	if err != nil || got == nil || len(got) != 0 {
		t.Fatalf("ListPendingStories unexpected: got=%+v err=%v", got, err)
	}
	if _, uri, _, _ := rec.snapshot(); uri != "/stories?status=pending&user_id=u1" {
		t.Fatalf("unexpected uri %s", uri)
	}
}

func TestGetStory_Success(t *testing.T) {
	t.Parallel()
	tr, _ := newServer(t, http.StatusOK, storyJSON)
	got, err := GetStory(context.Background(), tr, "s5")
	if err != nil || got.ID != "s5" || got.Status != types.StoryApproved || !got.IsFavourite {
		t.Fatalf("GetStory unexpected: got=%+v err=%v", got, err)
	}
}

func TestSetFavourite_Body(t *testing.T) {
	t.Parallel()
	tr, rec := newServer(t, http.StatusOK, storyJSON)
	got, err := SetFavourite(context.Background(), tr, "s5", true)
	if err != nil || !got.IsFavourite {
		t.Fatalf("SetFavourite unexpected: got=%+v err=%v", got, err)
	}
	method, uri, body, _ := rec.snapshot()
	if method != http.MethodPut || uri != "/stories/s5/favourite" || body != `{"is_favourite":true}` {
		t.Fatalf("unexpected request %s %s %s", method, uri, body)
	}
}

func TestGenerateStory_Success(t *testing.T) {
	t.Parallel()
	tr, rec := newServer(t, http.StatusCreated, storyJSON)
	genre := "adventure"
	got, err := GenerateStory(context.Background(), tr, types.GenerateStoryRequest{KidID: "k1", Genre: &genre})
	if err != nil || got.ID != "s5" {
		t.Fatalf("GenerateStory unexpected: got=%+v err=%v", got, err)
	}
	method, uri, body, _ := rec.snapshot()
	if method != http.MethodPost || uri != "/stories/generate" || body != `{"kid_id":"k1","genre":"adventure"}` {
		t.Fatalf("unexpected request %s %s %s", method, uri, body)
	}
}

func TestUpdateStory_AndDelete(t *testing.T) {
	t.Parallel()
	tr, rec := newServer(t, http.StatusOK, storyJSON)
	title := "The Sun Fox"
	if _, err := UpdateStory(context.Background(), tr, "s5", types.UpdateStoryRequest{Title: &title}); err != nil {
		t.Fatalf("UpdateStory error: %v", err)
	}
	if _, _, body, _ := rec.snapshot(); body != `{"title":"The Sun Fox"}` {
		t.Fatalf("unexpected body %s", body)
	}
	if err := DeleteStory(context.Background(), tr, "s5"); err != nil {
		t.Fatalf("DeleteStory error: %v", err)
	}
}

func TestStories_Errors(t *testing.T) {
	t.Parallel()
	tr, _ := newServer(t, http.StatusInternalServerError, "boom")
	if _, err := SetFavourite(context.Background(), tr, "s5", true); !errors.Is(err, apierrors.ErrUpdate) {
		t.Fatalf("expected update error, got %v", err)
	}
	_, err := GenerateStory(context.Background(), tr, types.GenerateStoryRequest{KidID: "k1"})
	if !errors.Is(err, apierrors.ErrCreate) || apierrors.IsIrrecoverable(err) {
		t.Fatalf("expected recoverable create error, got %v", err)
	}
	if err := DeleteStory(context.Background(), tr, "s5"); !errors.Is(err, apierrors.ErrDelete) {
		t.Fatalf("expected delete error, got %v", err)
	}
	if _, err := ListStories(context.Background(), unreachable(), "k1"); err == nil {
		t.Fatal("expected transport error")
	}
}

func TestGenerateStory_Validation(t *testing.T) {
	t.Parallel()
	tr, rec := newServer(t, http.StatusCreated, storyJSON)
	length := "epic"
	var ve *apierrors.ValidationError
	if _, err := GenerateStory(context.Background(), tr, types.GenerateStoryRequest{KidID: "k1", Length: &length}); !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := GenerateStory(context.Background(), tr, types.GenerateStoryRequest{}); !errors.As(err, &ve) {
		t.Fatalf("expected validation error for missing kid, got %v", err)
	}
	if method, _, _, _ := rec.snapshot(); method != "" {
		t.Fatalf("no request expected, got %s", method)
	}
}
