package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostJSON_JoinsBasePathAndDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/idp/v1/verify", r.URL.Path)
		assert.Equal(t, "eeg-test", r.Header.Get("User-Agent"))
		assert.Equal(t, "abc", r.Header.Get("X-Api-Key"))
		_ = json.NewEncoder(w).Encode(map[string]string{"ok": "yes"})
	}))
	defer srv.Close()

	c, err := New(Options{BaseURL: srv.URL + "/idp/", UserAgent: "eeg-test"})
	require.NoError(t, err)

	var out map[string]string
	require.NoError(t, c.PostJSON(context.Background(), "/v1/verify", map[string]string{"X-Api-Key": "abc"}, map[string]string{}, &out))
	assert.Equal(t, "yes", out["ok"])
}

func TestPostJSON_StatusErrorIsTruncated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, strings.Repeat("t", 1000), http.StatusForbidden)
	}))
	defer srv.Close()

	c, err := New(Options{BaseURL: srv.URL})
	require.NoError(t, err)

	err = c.PostJSON(context.Background(), "x", nil, nil, nil)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.True(t, se.Rejected())
	assert.LessOrEqual(t, len(se.Body), maxErrorBody+3)
}

func TestNew_Validation(t *testing.T) {
	c, err := New(Options{})
	require.NoError(t, err)
	assert.False(t, c.HasBaseURL())
	assert.ErrorIs(t, c.PostJSON(context.Background(), "/x", nil, nil, nil), ErrNoBaseURL)

	_, err = New(Options{BaseURL: "ftp://idp.local"})
	assert.Error(t, err)
	_, err = New(Options{BaseURL: "not a url"})
	assert.Error(t, err)
}
