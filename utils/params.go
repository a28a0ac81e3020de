package utils

import (
	"net/http"
	"strconv"
	"strings"
)

const MaxPageSize = 100

type QueryOptions struct {
	Page  int
	Limit int
}

func ParseQueryOptions(r *http.Request) QueryOptions {
	q := r.URL.Query()

	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}

	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit < 1 {
		limit = 10
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	return QueryOptions{Page: page, Limit: limit}
}

// QueryFlag reports whether the named query parameter is "true" or "1".
func QueryFlag(r *http.Request, name string) bool {
	v := strings.ToLower(r.URL.Query().Get(name))
	return v == "true" || v == "1"
}

// CollapseWhitespace replaces every run of whitespace, line breaks included,
// with one space and trims the ends. Raw line breaks inside string literals
// of hand-edited or generated JSON become parseable spaces.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
