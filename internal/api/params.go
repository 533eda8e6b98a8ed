package api

import (
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

const dateLayout = "2006-01-02"

// urlID parses a positive integer path parameter. It writes a 404 for
// anything else, since no such resource can exist.
func urlID(w http.ResponseWriter, r *http.Request, name string, notFound string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusNotFound, CodeNotFound, notFound)
		return 0, false
	}
	return id, true
}

// queryParams collects typed query values and the per-field errors met
// while parsing them.
type queryParams struct {
	r      *http.Request
	errors map[string][]string
}

func newQueryParams(r *http.Request) *queryParams {
	return &queryParams{r: r, errors: map[string][]string{}}
}

func (q *queryParams) fail(name, message string) {
	q.errors[name] = append(q.errors[name], message)
}

func (q *queryParams) String(name string) string {
	return q.r.URL.Query().Get(name)
}

// OneOf returns the value when it is empty or one of allowed.
func (q *queryParams) OneOf(name string, allowed ...string) string {
	raw := q.String(name)
	if raw == "" || slices.Contains(allowed, raw) {
		return raw
	}
	q.fail(name, "The selected "+name+" is invalid.")
	return ""
}

func (q *queryParams) Int(name string, min int) int {
	raw := q.String(name)
	if raw == "" {
		return 0
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		q.fail(name, "The "+name+" must be an integer.")
		return 0
	}
	if v < min {
		q.fail(name, "The "+name+" must be at least "+strconv.Itoa(min)+".")
		return 0
	}
	return v
}

func (q *queryParams) Int64Ptr(name string) *int64 {
	raw := q.String(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		q.fail(name, "The "+name+" must be an integer.")
		return nil
	}
	return &v
}

func (q *queryParams) Date(name string) *time.Time {
	raw := q.String(name)
	if raw == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		q.fail(name, "The "+name+" is not a valid date.")
		return nil
	}
	return &t
}

// Valid writes a 422 when any parameter failed to parse.
func (q *queryParams) Valid(w http.ResponseWriter) bool {
	if len(q.errors) == 0 {
		return true
	}
	respondValidation(w, q.errors)
	return false
}
