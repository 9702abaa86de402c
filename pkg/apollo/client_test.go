package apollo

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

func TestPeopleSearch(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/mixed_people/search", r.URL.Path)
		assert.Equal(t, "test-api-key", r.Header.Get("X-Api-Key"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req PeopleSearchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "acme.dev", req.OrganizationDomains)
		assert.Equal(t, []string{"Owner", "CEO"}, req.PersonTitles)
		assert.Equal(t, 5, req.PerPage)

		json.NewEncoder(w).Encode(PeopleSearchResponse{
			People: []Person{
				{Name: "Bo Boss", Title: "Owner", Email: "bo@acme.dev", LinkedInURL: "https://linkedin.com/in/bo"},
				{Name: "Pat Lee", Title: "CEO"},
			},
		})
	})

	resp, err := c.PeopleSearch(context.Background(), PeopleSearchRequest{
		OrganizationDomains: "acme.dev",
		PersonTitles:        []string{"Owner", "CEO"},
		PerPage:             5,
	})
	require.NoError(t, err)
	require.Len(t, resp.People, 2)
	assert.Equal(t, "bo@acme.dev", resp.People[0].Email)
	assert.Equal(t, "https://linkedin.com/in/bo", resp.People[0].LinkedInURL)
}

func TestPeopleSearch_APIError(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":"insufficient credits"}`))
	})

	_, err := c.PeopleSearch(context.Background(), PeopleSearchRequest{OrganizationDomains: "acme.dev"})
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 422, apiErr.StatusCode)
}

func TestContextCancellation(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request should have been cancelled")
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.PeopleSearch(ctx, PeopleSearchRequest{OrganizationDomains: "acme.dev"})
	require.Error(t, err)
}

func TestMalformedJSON(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not json`))
	})

	_, err := c.PeopleSearch(context.Background(), PeopleSearchRequest{OrganizationDomains: "acme.dev"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal response")
}

func TestAPIError_Error(t *testing.T) {
	t.Parallel()
	e := &APIError{StatusCode: 403, Body: "forbidden"}
	assert.Equal(t, "apollo: HTTP 403: forbidden", e.Error())
}

func TestWithHTTPClient(t *testing.T) {
	t.Parallel()
	customClient := &http.Client{}
	c := NewClient("key", WithHTTPClient(customClient))
	hc := c.(*httpClient)
	assert.Equal(t, customClient, hc.http)
}
