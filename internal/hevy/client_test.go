package hevy

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/meltforce/gzclp/internal/models"
)

// newTestServer routes requests to handlers keyed by "METHOD path" and checks
// that every request carries the API key.
func newTestServer(t *testing.T, handlers map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("api-key"); got != "secret" {
			t.Errorf("api-key = %q, want secret", got)
		}
		h, ok := handlers[r.Method+" "+r.URL.Path]
		if !ok {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			http.NotFound(w, r)
			return
		}
		h(w, r)
	}))
}

func writeTestJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Fatal(err)
	}
}

func testClient(url string) *Client {
	c := NewClient(url, "secret")
	c.pageSize = 2
	c.backoff = time.Millisecond
	return c
}

// TestListRoutines_AllPages verifies that every page is read before the
// routines are returned.
func TestListRoutines_AllPages(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"GET /v1/routines": func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("pageSize"); got != "2" {
				t.Errorf("pageSize = %q, want 2", got)
			}
			page, _ := strconv.Atoi(r.URL.Query().Get("page"))
			routines := map[int][]models.Routine{
				1: {{ID: "r1"}, {ID: "r2"}},
				2: {{ID: "r3"}},
			}[page]
			writeTestJSON(t, w, routinesPage{Page: page, PageCount: 2, Routines: routines})
		},
	})
	defer ts.Close()

	got, err := testClient(ts.URL).ListRoutines(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[2].ID != "r3" {
		t.Errorf("got %+v, want r1..r3", got)
	}
}

// TestGetRoutine_NotFound verifies that a 404 maps to ErrNotFound.
func TestGetRoutine_NotFound(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"GET /v1/routines/missing": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		},
	})
	defer ts.Close()

	_, err := testClient(ts.URL).GetRoutine(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

// TestUpdateRoutine_Retry verifies that 5xx responses are retried and the
// body is wrapped in {"routine": ...} without a folder id.
func TestUpdateRoutine_Retry(t *testing.T) {
	var calls atomic.Int32
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"PUT /v1/routines/r1": func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				http.Error(w, "busy", http.StatusBadGateway)
				return
			}
			body, _ := io.ReadAll(r.Body)
			var env map[string]map[string]any
			if err := json.Unmarshal(body, &env); err != nil {
				t.Errorf("decoding body: %v", err)
				return
			}
			if _, ok := env["routine"]["folder_id"]; ok {
				t.Error("folder_id must not be sent on update")
			}
			if env["routine"]["title"] != "A1" {
				t.Errorf("title = %v, want A1", env["routine"]["title"])
			}
			writeTestJSON(t, w, map[string]any{"routine": []any{}})
		},
	})
	defer ts.Close()

	folder := 7
	err := testClient(ts.URL).UpdateRoutine(context.Background(), "r1", RoutineUpdate{Title: "A1", FolderID: &folder})
	if err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

// TestUpdateRoutine_ClientErrorNotRetried verifies that 4xx responses fail
// immediately.
func TestUpdateRoutine_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"PUT /v1/routines/r1": func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			http.Error(w, "bad", http.StatusBadRequest)
		},
	})
	defer ts.Close()

	if err := testClient(ts.URL).UpdateRoutine(context.Background(), "r1", RoutineUpdate{}); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

// TestCreateRoutine verifies both response shapes Hevy uses for creates.
func TestCreateRoutine(t *testing.T) {
	tests := []struct {
		name string
		resp any
	}{
		{"object", map[string]any{"routine": map[string]any{"id": "new-id"}}},
		{"array", map[string]any{"routine": []any{map[string]any{"id": "new-id"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, map[string]http.HandlerFunc{
				"POST /v1/routines": func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusCreated)
					writeTestJSON(t, w, tt.resp)
				},
			})
			defer ts.Close()

			id, err := testClient(ts.URL).CreateRoutine(context.Background(), RoutineUpdate{Title: "GZCLP A1"})
			if err != nil {
				t.Fatal(err)
			}
			if id != "new-id" {
				t.Errorf("id = %q, want new-id", id)
			}
		})
	}
}

// TestListWorkouts_StopsAtSince verifies that paging stops at the first
// workout not newer than since and that results come back oldest first.
func TestListWorkouts_StopsAtSince(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2026, 3, d, 18, 0, 0, 0, time.UTC) }
	var pages atomic.Int32
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"GET /v1/workouts": func(w http.ResponseWriter, r *http.Request) {
			pages.Add(1)
			page, _ := strconv.Atoi(r.URL.Query().Get("page"))
			workouts := map[int][]models.Workout{
				1: {{ID: "w5", StartTime: day(5)}, {ID: "w4", StartTime: day(4)}},
				2: {{ID: "w3", StartTime: day(3)}, {ID: "w2", StartTime: day(2)}},
				3: {{ID: "w1", StartTime: day(1)}},
			}[page]
			writeTestJSON(t, w, workoutsPage{Page: page, PageCount: 3, Workouts: workouts})
		},
	})
	defer ts.Close()

	got, err := testClient(ts.URL).ListWorkouts(context.Background(), day(2))
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, w := range got {
		ids = append(ids, w.ID)
	}
	if len(ids) != 3 || ids[0] != "w3" || ids[2] != "w5" {
		t.Errorf("ids = %v, want [w3 w4 w5]", ids)
	}
	if pages.Load() != 2 {
		t.Errorf("pages fetched = %d, want 2", pages.Load())
	}
}
