// Package hevy talks to the Hevy public API and converts between Hevy
// routines and program targets.
package hevy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/meltforce/gzclp/internal/models"
)

// DefaultBaseURL is the Hevy public API.
const DefaultBaseURL = "https://api.hevyapp.com"

// ErrNotFound is returned when a routine does not exist.
var ErrNotFound = errors.New("not found")

// Client calls the Hevy API with a personal API key.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	pageSize   int
	backoff    time.Duration
}

// NewClient creates a Hevy client. An empty baseURL uses DefaultBaseURL.
func NewClient(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		pageSize:   10,
		backoff:    time.Second,
	}
}

// RoutineUpdate is the body of a routine create or update.
type RoutineUpdate struct {
	Title     string           `json:"title"`
	FolderID  *int             `json:"folder_id,omitempty"`
	Notes     string           `json:"notes,omitempty"`
	Exercises []UpdateExercise `json:"exercises"`
}

// UpdateExercise is one exercise of a RoutineUpdate.
type UpdateExercise struct {
	ExerciseTemplateID string      `json:"exercise_template_id"`
	SupersetID         *int        `json:"superset_id"`
	RestSeconds        *int        `json:"rest_seconds,omitempty"`
	Notes              string      `json:"notes,omitempty"`
	Sets               []UpdateSet `json:"sets"`
}

// UpdateSet is one set of an UpdateExercise.
type UpdateSet struct {
	Type     models.SetType   `json:"type"`
	WeightKg *float64         `json:"weight_kg"`
	Reps     *int             `json:"reps"`
	RepRange *models.RepRange `json:"rep_range,omitempty"`
}

type routineEnvelope struct {
	Routine RoutineUpdate `json:"routine"`
}

type routinesPage struct {
	Page      int              `json:"page"`
	PageCount int              `json:"page_count"`
	Routines  []models.Routine `json:"routines"`
}

type workoutsPage struct {
	Page      int              `json:"page"`
	PageCount int              `json:"page_count"`
	Workouts  []models.Workout `json:"workouts"`
}

// statusError is a non-2xx response.
type statusError struct {
	path   string
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("hevy: %s returned %d: %s", e.path, e.status, e.body)
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, body []byte) ([]byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return nil, fmt.Errorf("hevy: create request: %w", err)
	}
	req.Header.Set("api-key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("hevy: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("hevy: read body: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("hevy: %s: %w", path, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &statusError{path: path, status: resp.StatusCode, body: string(data)}
	}
	return data, nil
}

// doWithRetry retries network errors and 5xx responses up to 3 times with
// exponential backoff. Client errors are returned immediately.
func (c *Client) doWithRetry(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var lastErr error
	for attempt := range 3 {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.backoff * time.Duration(1<<uint(attempt-1))):
			}
		}

		data, err := c.do(ctx, method, path, nil, body)
		if err == nil {
			return data, nil
		}
		lastErr = err

		var se *statusError
		if errors.As(err, &se) && se.status < 500 {
			return nil, err
		}
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("after 3 attempts: %w", lastErr)
}

// ListRoutines returns every routine. All pages are read before returning so
// callers never see a partial snapshot.
func (c *Client) ListRoutines(ctx context.Context) ([]models.Routine, error) {
	var all []models.Routine
	for page := 1; ; page++ {
		params := url.Values{
			"page":     {strconv.Itoa(page)},
			"pageSize": {strconv.Itoa(c.pageSize)},
		}
		data, err := c.do(ctx, http.MethodGet, "/v1/routines", params, nil)
		if err != nil {
			if errors.Is(err, ErrNotFound) && page > 1 {
				break
			}
			return nil, fmt.Errorf("listing routines page %d: %w", page, err)
		}

		var p routinesPage
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decoding routines page %d: %w", page, err)
		}
		all = append(all, p.Routines...)
		if page >= p.PageCount || len(p.Routines) == 0 {
			break
		}
	}
	return all, nil
}

// GetRoutine fetches one routine.
func (c *Client) GetRoutine(ctx context.Context, id string) (*models.Routine, error) {
	data, err := c.do(ctx, http.MethodGet, "/v1/routines/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("getting routine %s: %w", id, err)
	}
	var env struct {
		Routine models.Routine `json:"routine"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decoding routine %s: %w", id, err)
	}
	return &env.Routine, nil
}

// UpdateRoutine replaces a routine's exercises.
func (c *Client) UpdateRoutine(ctx context.Context, id string, r RoutineUpdate) error {
	r.FolderID = nil
	body, err := json.Marshal(routineEnvelope{Routine: r})
	if err != nil {
		return fmt.Errorf("marshaling routine: %w", err)
	}
	if _, err := c.doWithRetry(ctx, http.MethodPut, "/v1/routines/"+url.PathEscape(id), body); err != nil {
		return fmt.Errorf("updating routine %s: %w", id, err)
	}
	return nil
}

// CreateRoutine creates a routine and returns its id.
func (c *Client) CreateRoutine(ctx context.Context, r RoutineUpdate) (string, error) {
	body, err := json.Marshal(routineEnvelope{Routine: r})
	if err != nil {
		return "", fmt.Errorf("marshaling routine: %w", err)
	}
	data, err := c.doWithRetry(ctx, http.MethodPost, "/v1/routines", body)
	if err != nil {
		return "", fmt.Errorf("creating routine %q: %w", r.Title, err)
	}
	return decodeCreatedID(data)
}

// decodeCreatedID accepts both {"routine": {...}} and {"routine": [{...}]}.
func decodeCreatedID(data []byte) (string, error) {
	var env struct {
		Routine json.RawMessage `json:"routine"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return "", fmt.Errorf("decoding created routine: %w", err)
	}

	var one models.Routine
	if err := json.Unmarshal(env.Routine, &one); err == nil && one.ID != "" {
		return one.ID, nil
	}
	var many []models.Routine
	if err := json.Unmarshal(env.Routine, &many); err == nil && len(many) > 0 {
		return many[0].ID, nil
	}
	return "", fmt.Errorf("decoding created routine: no id in %s", data)
}

// ListWorkouts returns workouts started after since, oldest first. Hevy
// lists newest first, so paging stops at the first older workout.
func (c *Client) ListWorkouts(ctx context.Context, since time.Time) ([]models.Workout, error) {
	var newer []models.Workout
	for page := 1; ; page++ {
		params := url.Values{
			"page":     {strconv.Itoa(page)},
			"pageSize": {strconv.Itoa(c.pageSize)},
		}
		data, err := c.do(ctx, http.MethodGet, "/v1/workouts", params, nil)
		if err != nil {
			if errors.Is(err, ErrNotFound) && page > 1 {
				break
			}
			return nil, fmt.Errorf("listing workouts page %d: %w", page, err)
		}

		var p workoutsPage
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decoding workouts page %d: %w", page, err)
		}

		done := false
		for _, w := range p.Workouts {
			if !w.StartTime.After(since) {
				done = true
				break
			}
			newer = append(newer, w)
		}
		if done || page >= p.PageCount || len(p.Workouts) == 0 {
			break
		}
	}

	for i, j := 0, len(newer)-1; i < j; i, j = i+1, j-1 {
		newer[i], newer[j] = newer[j], newer[i]
	}
	return newer, nil
}
