package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/yummy-rest/apiserver/internal/services"
	"github.com/yummy-rest/apiserver/types"
)

var errBadPagination = errors.New("page and per_page must be positive integers")

// PageDetails describes where a page sits in the full result set.
type PageDetails struct {
	Pages        int     `json:"pages"`
	PreviousPage *string `json:"previous_page"`
	NextPage     *string `json:"next_page"`
	ItemCount    int     `json:"item_count"`
}

// parsePagination reads q, page and per_page from the query string.
// Missing values fall back to the service defaults.
func parsePagination(r *http.Request) (types.PageRequest, error) {
	query := r.URL.Query()
	req := types.PageRequest{Query: strings.TrimSpace(query.Get("q"))}

	var err error
	if req.Page, err = positiveParam(query, "page"); err != nil {
		return types.PageRequest{}, err
	}
	if req.PerPage, err = positiveParam(query, "per_page"); err != nil {
		return types.PageRequest{}, err
	}
	return services.NormalizePage(req), nil
}

func positiveParam(query url.Values, key string) (int, error) {
	raw := strings.TrimSpace(query.Get(key))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, errBadPagination
	}
	return n, nil
}

func pageDetails[T any](r *http.Request, page types.Page[T], req types.PageRequest) PageDetails {
	details := PageDetails{Pages: page.Pages(), ItemCount: len(page.Items)}
	if page.HasPrev() {
		u := pageURL(r, req, page.Page-1)
		details.PreviousPage = &u
	}
	if page.HasNext() {
		u := pageURL(r, req, page.Page+1)
		details.NextPage = &u
	}
	return details
}

// pageURL builds the absolute URL of another page of the current listing.
func pageURL(r *http.Request, req types.PageRequest, page int) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	switch proto := strings.ToLower(r.Header.Get("X-Forwarded-Proto")); proto {
	case "http", "https":
		scheme = proto
	}

	values := url.Values{}
	if req.Query != "" {
		values.Set("q", req.Query)
	}
	values.Set("page", strconv.Itoa(page))
	values.Set("per_page", strconv.Itoa(req.PerPage))

	u := url.URL{
		Scheme:   scheme,
		Host:     r.Host,
		Path:     r.URL.Path,
		RawQuery: values.Encode(),
	}
	return u.String()
}
