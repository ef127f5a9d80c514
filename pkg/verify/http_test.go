package verify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func membershipServer(t *testing.T, members map[string]bool) *httptest.Server {
	t.Helper()

	// Go 1.21's ServeMux lacks method/wildcard patterns and r.PathValue, so
	// route the two endpoints by hand.
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		switch {
		case len(parts) == 4 && parts[0] == "v1" && parts[1] == "projects" && parts[3] == "members":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"members": ["sarah.chen@corp.com", "outsider@vendor.com"]}`))
		case len(parts) == 5 && parts[0] == "v1" && parts[1] == "projects" && parts[3] == "members":
			member, known := members[parts[4]]
			if !known {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			if member {
				w.Write([]byte(`{"member": true}`))
			} else {
				w.Write([]byte(`{"member": false}`))
			}
		default:
			http.NotFound(w, r)
		}
	})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPVerifierVerify(t *testing.T) {
	srv := membershipServer(t, map[string]bool{
		"sarah.chen@corp.com": true,
		"former@corp.com":     false,
	})
	v := NewHTTPVerifier("chat", srv.URL, time.Second)

	assert.Equal(t, "chat", v.Name())

	ok, err := v.Verify(context.Background(), "proj-1", "sarah.chen@corp.com")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = v.Verify(context.Background(), "proj-1", "former@corp.com")
	require.NoError(t, err)
	assert.False(t, ok)

	// Unknown person is a clean negative, not an error.
	ok, err = v.Verify(context.Background(), "proj-1", "nobody@corp.com")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHTTPVerifierServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	v := NewHTTPVerifier("chat", srv.URL, time.Second)
	_, err := v.Verify(context.Background(), "proj-1", "sarah.chen@corp.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 500")
}

func TestHTTPVerifierUnreachable(t *testing.T) {
	v := NewHTTPVerifier("chat", "http://127.0.0.1:1", 100*time.Millisecond)

	_, err := v.Verify(context.Background(), "proj-1", "sarah.chen@corp.com")
	require.Error(t, err)
}

func TestHTTPVerifierParticipants(t *testing.T) {
	srv := membershipServer(t, nil)
	v := NewHTTPVerifier("chat", srv.URL, time.Second)

	members, err := v.Participants(context.Background(), "proj-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"sarah.chen@corp.com", "outsider@vendor.com"}, members)
}

func TestFuncAdapter(t *testing.T) {
	var gotProject, gotEmail string
	f := Func{
		SourceName: "inline",
		VerifyFn: func(_ context.Context, projectID, email string) (bool, error) {
			gotProject, gotEmail = projectID, email
			return true, nil
		},
	}

	assert.Equal(t, "inline", f.Name())
	ok, err := f.Verify(context.Background(), "proj-1", "sarah.chen@corp.com")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "proj-1", gotProject)
	assert.Equal(t, "sarah.chen@corp.com", gotEmail)
}
