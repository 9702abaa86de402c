package places

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, Client) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient("test-api-key", WithBaseURL(srv.URL))
	return srv, c
}

func TestTextSearch(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/textsearch/json", r.URL.Path)

		q := r.URL.Query()
		assert.Equal(t, "plumbing in Tulsa, OK", q.Get("query"))
		assert.Equal(t, "establishment", q.Get("type"))
		assert.Equal(t, "test-api-key", q.Get("key"))
		assert.Empty(t, q.Get("pagetoken"))

		json.NewEncoder(w).Encode(TextSearchResponse{
			Status:        StatusOK,
			NextPageToken: "tok-2",
			Results: []PlaceResult{
				{PlaceID: "p1", Name: "Acme Plumbing", FormattedAddress: "123 Main St, Tulsa, OK 74101, USA", Rating: 4.5, UserRatingsTotal: 80},
			},
		})
	})

	resp, err := c.TextSearch(context.Background(), TextSearchRequest{Query: "plumbing in Tulsa, OK"})
	require.NoError(t, err)
	assert.Equal(t, StatusOK, resp.Status)
	assert.Equal(t, "tok-2", resp.NextPageToken)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "Acme Plumbing", resp.Results[0].Name)
}

func TestTextSearch_PageToken(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tok-2", r.URL.Query().Get("pagetoken"))
		json.NewEncoder(w).Encode(TextSearchResponse{Status: StatusOK})
	})

	_, err := c.TextSearch(context.Background(), TextSearchRequest{Query: "plumbing", PageToken: "tok-2"})
	require.NoError(t, err)
}

func TestTextSearch_ZeroResults(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(TextSearchResponse{Status: StatusZeroResults})
	})

	resp, err := c.TextSearch(context.Background(), TextSearchRequest{Query: "nothing here"})
	require.NoError(t, err)
	assert.Equal(t, StatusZeroResults, resp.Status)
	assert.Empty(t, resp.Results)
}

func TestDetails(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/details/json", r.URL.Path)

		q := r.URL.Query()
		assert.Equal(t, "p1", q.Get("place_id"))
		assert.Contains(t, q.Get("fields"), "website")
		assert.Contains(t, q.Get("fields"), "formatted_phone_number")
		assert.Equal(t, "test-api-key", q.Get("key"))

		json.NewEncoder(w).Encode(DetailsResponse{
			Status: StatusOK,
			Result: PlaceDetails{
				Name:           "Acme Plumbing",
				Website:        "https://acme.dev",
				FormattedPhone: "(918) 555-0100",
				Rating:         4.6,
			},
		})
	})

	resp, err := c.Details(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "https://acme.dev", resp.Result.Website)
	assert.Equal(t, "(918) 555-0100", resp.Result.FormattedPhone)
}

func TestTextSearch_HTTPError(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`upstream unavailable`))
	})

	_, err := c.TextSearch(context.Background(), TextSearchRequest{Query: "plumbing"})
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 503, apiErr.StatusCode)
}

func TestDetails_HTTPError(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`denied`))
	})

	_, err := c.Details(context.Background(), "p1")
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 403, apiErr.StatusCode)
}

func TestContextCancellation(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request should have been cancelled")
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.TextSearch(ctx, TextSearchRequest{Query: "plumbing"})
	require.Error(t, err)
}

func TestMalformedJSON(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not json`))
	})

	_, err := c.TextSearch(context.Background(), TextSearchRequest{Query: "plumbing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
}

func TestAPIError_Error(t *testing.T) {
	t.Parallel()
	e := &APIError{StatusCode: 500, Body: "boom"}
	assert.Equal(t, "places: HTTP 500: boom", e.Error())
}

func TestWithHTTPClient(t *testing.T) {
	t.Parallel()
	customClient := &http.Client{}
	c := NewClient("key", WithHTTPClient(customClient))
	hc := c.(*httpClient)
	assert.Equal(t, customClient, hc.http)
}
