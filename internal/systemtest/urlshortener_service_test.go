package systemtest

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type response struct {
	code     int
	body     string
	location string
	header   http.Header
}

func call(t *testing.T, method, path string, query url.Values, headers map[string]string) response {
	t.Helper()
	target := baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(context.Background(), method, target, nil)
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	res, err := httpClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return response{
		code:     res.StatusCode,
		body:     strings.TrimSpace(string(body)),
		location: res.Header.Get("Location"),
		header:   res.Header,
	}
}

func TestURLShorteningService(t *testing.T) {
	// aliases outlive a run in the shared store, so each run claims its own
	suffix := strconv.FormatInt(time.Now().UnixNano(), 36)
	mine := "system-mine-" + suffix
	protected := "system-protected-" + suffix

	tests := []struct {
		name   string
		assert func(t *testing.T)
	}{
		{
			name: "Shorten/generated_key_redirects",
			assert: func(t *testing.T) {
				res := call(t, http.MethodGet, "/api/v1/shorten", url.Values{"url": {"http://example.com"}}, nil)
				require.Equal(t, http.StatusOK, res.code)
				require.Len(t, res.body, 8)

				fetched := call(t, http.MethodGet, "/api/v1/fetch", url.Values{"s": {res.body}}, nil)
				assert.Equal(t, http.StatusFound, fetched.code)
				assert.Equal(t, "http://example.com", fetched.location)

				short := call(t, http.MethodGet, "/", url.Values{"s": {res.body}}, nil)
				assert.Equal(t, http.StatusFound, short.code)
				assert.Equal(t, "http://example.com", short.location)
			},
		},
		{
			name: "Shorten/unprotected_alias_is_immutable",
			assert: func(t *testing.T) {
				res := call(t, http.MethodGet, "/api/v1/shorten", url.Values{"url": {"http://a.com"}, "alias": {mine}}, nil)
				require.Equal(t, http.StatusOK, res.code)
				assert.Equal(t, mine, res.body)

				res = call(t, http.MethodGet, "/api/v1/shorten", url.Values{"url": {"http://b.com"}, "alias": {mine}}, nil)
				assert.Equal(t, http.StatusForbidden, res.code)
			},
		},
		{
			name: "Shorten/protected_alias_accepts_password",
			assert: func(t *testing.T) {
				query := url.Values{"url": {"http://a.com"}, "alias": {protected}}
				res := call(t, http.MethodGet, "/api/v1/shorten", query, map[string]string{"password": "secret"})
				require.Equal(t, http.StatusOK, res.code)

				query.Set("url", "http://b.com")
				res = call(t, http.MethodGet, "/api/v1/shorten", query, map[string]string{"password": "guess"})
				assert.Equal(t, http.StatusForbidden, res.code)

				res = call(t, http.MethodGet, "/api/v1/shorten", query, map[string]string{"password": "secret"})
				require.Equal(t, http.StatusOK, res.code)

				fetched := call(t, http.MethodGet, "/api/v1/fetch", url.Values{"s": {protected}}, nil)
				assert.Equal(t, "http://b.com", fetched.location)
			},
		},
		{
			name: "Shorten/missing_url",
			assert: func(t *testing.T) {
				res := call(t, http.MethodGet, "/api/v1/shorten", nil, nil)
				assert.Equal(t, http.StatusBadRequest, res.code)
				assert.Equal(t, "No url provided in user request", res.body)
			},
		},
		{
			name: "Fetch/not_found",
			assert: func(t *testing.T) {
				res := call(t, http.MethodGet, "/api/v1/fetch", url.Values{"s": {"doesnotexist"}}, nil)
				assert.Equal(t, http.StatusNotFound, res.code)
			},
		},
		{
			name: "Preflight/both_endpoints",
			assert: func(t *testing.T) {
				for _, path := range []string{"/api/v1/shorten", "/api/v1/fetch"} {
					res := call(t, http.MethodOptions, path, url.Values{"url": {"http://a.com"}}, nil)
					assert.Equal(t, http.StatusNoContent, res.code, path)
					assert.Equal(t, "GET", res.header.Get("Access-Control-Allow-Methods"), path)
					assert.Equal(t, "*", res.header.Get("Access-Control-Allow-Headers"), path)
				}
			},
		},
		{
			name: "WrongMethod",
			assert: func(t *testing.T) {
				for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
					res := call(t, method, "/api/v1/shorten", url.Values{"url": {"http://a.com"}}, nil)
					assert.Equal(t, http.StatusMethodNotAllowed, res.code, method)
					assert.Equal(t, "GET method expected", res.body, method)
				}
			},
		},
		{
			name: "Health/http_and_grpc",
			assert: func(t *testing.T) {
				res := call(t, http.MethodGet, "/healthz", nil, nil)
				assert.Equal(t, http.StatusOK, res.code)

				check, err := healthClient.Check(context.Background(), &healthpb.HealthCheckRequest{})
				require.NoError(t, err)
				assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check.GetStatus())
			},
		},
		{
			name: "Root/redirects_to_docs",
			assert: func(t *testing.T) {
				res := call(t, http.MethodGet, "/", nil, nil)
				assert.Equal(t, http.StatusFound, res.code)
				assert.Equal(t, "/docs/", res.location)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, tt.assert)
	}
}
