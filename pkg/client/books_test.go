package client

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/shelfhaven/shelfsync/internal/testutil"
)

func TestListOptions_Values(t *testing.T) {
	opts := ListOptions{Page: 2, Limit: 20, Scope: "private", Sort: "title", Order: "asc"}
	params := opts.Values()

	if got := params.Get("page"); got != "2" {
		t.Errorf("page = %q", got)
	}
	if got := params.Get("limit"); got != "20" {
		t.Errorf("limit = %q", got)
	}
	if got := params.Get("scope"); got != "private" {
		t.Errorf("scope = %q", got)
	}

	// Zero values are omitted so cache keys stay stable
	empty := ListOptions{}.Values()
	if len(empty) != 0 {
		t.Errorf("Expected empty params, got %v", empty)
	}
}

func TestClient_ListBooks(t *testing.T) {
	mock := testutil.NewMockLibrary()
	defer mock.Close()

	mock.SetBooks("/books", `[{"id":"b1","title":"X","author":"A"},{"id":"b2","title":"Y"}]`, 2)

	c := newTestClient(t, mock)

	list, err := c.ListBooks(context.Background(), ListOptions{Page: 1, Limit: 20})
	if err != nil {
		t.Fatalf("ListBooks failed: %v", err)
	}

	if len(list.Books) != 2 {
		t.Fatalf("Expected 2 books, got %d", len(list.Books))
	}
	if list.Books[0].Title != "X" {
		t.Errorf("Title = %q", list.Books[0].Title)
	}
	if list.Pagination.Total != 2 {
		t.Errorf("Total = %d", list.Pagination.Total)
	}
	if mock.LastRequestQuery["page"] != "1" || mock.LastRequestQuery["limit"] != "20" {
		t.Errorf("Query params not sent: %v", mock.LastRequestQuery)
	}
}

func TestClient_RecentBooks(t *testing.T) {
	mock := testutil.NewMockLibrary()
	defer mock.Close()

	mock.SetBooks("/books/recent", `[{"id":"b9","title":"New"}]`, 1)

	c := newTestClient(t, mock)

	list, err := c.RecentBooks(context.Background(), 5)
	if err != nil {
		t.Fatalf("RecentBooks failed: %v", err)
	}
	if len(list.Books) != 1 || list.Books[0].ID != "b9" {
		t.Errorf("Unexpected list: %+v", list.Books)
	}
	if mock.LastRequestQuery["limit"] != "5" {
		t.Errorf("limit not sent: %v", mock.LastRequestQuery)
	}
}

func TestClient_PrivateBooks_ForcesScope(t *testing.T) {
	mock := testutil.NewMockLibrary()
	defer mock.Close()

	mock.SetBooks("/books", `[]`, 0)

	c := newTestClient(t, mock)

	if _, err := c.PrivateBooks(context.Background(), ListOptions{Scope: "public"}); err != nil {
		t.Fatalf("PrivateBooks failed: %v", err)
	}
	if mock.LastRequestQuery["scope"] != "private" {
		t.Errorf("scope = %q, want private", mock.LastRequestQuery["scope"])
	}
}

func TestClient_GetProgress(t *testing.T) {
	mock := testutil.NewMockLibrary()
	defer mock.Close()

	mock.SetResponse("/reading/progress", testutil.MockResponse{
		Body: `{"bookId":"b1","ratio":0.42,"locator":"chap3"}`,
	})

	c := newTestClient(t, mock)

	progress, err := c.GetProgress(context.Background(), "b1")
	if err != nil {
		t.Fatalf("GetProgress failed: %v", err)
	}
	if progress.Ratio != 0.42 {
		t.Errorf("Ratio = %v", progress.Ratio)
	}
	if progress.Locator != "chap3" {
		t.Errorf("Locator = %q", progress.Locator)
	}
}

func TestClient_GetProgress_NotFound(t *testing.T) {
	mock := testutil.NewMockLibrary()
	defer mock.Close()

	mock.SetResponse("/reading/progress", testutil.MockResponse{
		StatusCode: http.StatusNotFound,
		Body:       `{}`,
	})

	c := newTestClient(t, mock)

	_, err := c.GetProgress(context.Background(), "missing")
	if !errors.Is(err, ErrNoProgress) {
		t.Errorf("Expected ErrNoProgress, got %v", err)
	}
}

func TestClient_PutProgress(t *testing.T) {
	mock := testutil.NewMockLibrary()
	defer mock.Close()

	var gotMethod, gotBody string
	mock.SetHandler("/reading/progress", func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		buf := make([]byte, r.ContentLength)
		r.Body.Read(buf)
		gotBody = string(buf)
		w.WriteHeader(http.StatusNoContent)
	})

	c := newTestClient(t, mock)

	err := c.PutProgress(context.Background(), ReadingProgress{
		BookID: "b1",
		Ratio:  0.5,
	})
	if err != nil {
		t.Fatalf("PutProgress failed: %v", err)
	}
	if gotMethod != http.MethodPut {
		t.Errorf("Method = %q", gotMethod)
	}
	if gotBody == "" {
		t.Error("Empty request body")
	}
}
