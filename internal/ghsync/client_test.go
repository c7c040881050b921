package ghsync

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/quotakeeper/internal/models"
)

// fakeTokenSource implements TokenSource for testing
type fakeTokenSource struct {
	data  *models.TokenData
	valid bool
}

func (f *fakeTokenSource) GetToken(ctx context.Context) *models.TokenData {
	return f.data
}

func (f *fakeTokenSource) IsTokenValid(ctx context.Context) bool {
	return f.valid
}

func validSource() *fakeTokenSource {
	return &fakeTokenSource{
		data: &models.TokenData{
			Token:      "ghp_testtoken",
			Repository: "org/repo",
		},
		valid: true,
	}
}

func TestTestConnection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/org/repo", r.URL.Path)
		assert.Equal(t, "Bearer ghp_testtoken", r.Header.Get("Authorization"))
		assert.Equal(t, "application/vnd.github.v3+json", r.Header.Get("Accept"))
		assert.Equal(t, "Xerox-System-v2.0.0", r.Header.Get("User-Agent"))
		assert.Equal(t, "2022-11-28", r.Header.Get("X-GitHub-Api-Version"))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"full_name": "org/repo",
			"private":   true,
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, validSource())

	result := client.TestConnection(context.Background())
	assert.True(t, result.Success, "error: %s", result.Error)
	assert.Equal(t, "org/repo", result.Repository)
	assert.True(t, result.Private)
}

func TestTestConnectionWithoutToken(t *testing.T) {
	client := NewClient("http://unused", &fakeTokenSource{valid: false})

	result := client.TestConnection(context.Background())
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "token")
}

func TestTestConnectionHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL, validSource())

	result := client.TestConnection(context.Background())
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "404")
}

func TestPushSnapshotCreatesNewFile(t *testing.T) {
	var putBody map[string]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/org/repo/contents/data/roster.json", r.URL.Path)

		switch r.Method {
		case http.MethodGet:
			// Файла еще нет
			w.WriteHeader(http.StatusNotFound)
		case http.MethodPut:
			require.NoError(t, json.NewDecoder(r.Body).Decode(&putBody))
			w.WriteHeader(http.StatusCreated)
		default:
			t.Fatalf("unexpected method %s", r.Method)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, validSource())

	snapshot := []byte(`{"users":[]}`)
	err := client.PushSnapshot(context.Background(), "data/roster.json", "sync roster", snapshot)
	require.NoError(t, err)

	assert.Equal(t, "sync roster", putBody["message"])
	assert.Equal(t, base64.StdEncoding.EncodeToString(snapshot), putBody["content"])
	assert.NotContains(t, putBody, "sha", "new file must not carry a sha")
}

func TestPushSnapshotUpdatesExistingFile(t *testing.T) {
	var putBody map[string]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			_ = json.NewEncoder(w).Encode(map[string]string{"sha": "abc123"})
		case http.MethodPut:
			require.NoError(t, json.NewDecoder(r.Body).Decode(&putBody))
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, validSource())

	err := client.PushSnapshot(context.Background(), "data/roster.json", "sync roster", []byte("{}"))
	require.NoError(t, err)
	assert.Equal(t, "abc123", putBody["sha"])
}

func TestPushSnapshotWithoutToken(t *testing.T) {
	client := NewClient("http://unused", &fakeTokenSource{valid: false})

	err := client.PushSnapshot(context.Background(), "p", "m", nil)
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestPushSnapshotServerRejects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.WriteHeader(http.StatusNotFound)
		case http.MethodPut:
			w.WriteHeader(http.StatusForbidden)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, validSource())

	err := client.PushSnapshot(context.Background(), "p", "m", []byte("{}"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}
