package httpapi

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

	"contactbot/bot/storage"
)

type fakeStore struct {
	inserted [][2]string
	rows     []storage.Submission
	ids      []int64
	err      error
}

func (f *fakeStore) Insert(ctx context.Context, fullName, phoneNumber string) error {
	if f.err != nil {
		return f.err
	}
	f.inserted = append(f.inserted, [2]string{fullName, phoneNumber})
	return nil
}

func (f *fakeStore) List(ctx context.Context) ([]storage.Submission, error) {
	return f.rows, f.err
}

func (f *fakeStore) ListUserIDs(ctx context.Context) ([]int64, error) {
	return f.ids, f.err
}

func newTestServer(store *fakeStore) *httptest.Server {
	s := NewServer("127.0.0.1:0", store)
	return httptest.NewServer(s.http.Handler)
}

func TestSubmitStoresRow(t *testing.T) {
	store := &fakeStore{}
	ts := newTestServer(store)
	defer ts.Close()

	body := `{"full_name":"John Doe","phone_number":"+123456789012"}`
	resp, err := http.Post(ts.URL+"/submit", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, true, out["success"])
	assert.Equal(t, "Data submitted successfully", out["message"])

	require.Len(t, store.inserted, 1)
	assert.Equal(t, [2]string{"John Doe", "+123456789012"}, store.inserted[0])
}

func TestSubmitRejectsMissingFields(t *testing.T) {
	store := &fakeStore{}
	ts := newTestServer(store)
	defer ts.Close()

	for _, body := range []string{
		`{}`,
		`{"full_name":"John Doe"}`,
		`{"phone_number":"+123456789012"}`,
		`{"full_name":"  ","phone_number":"+123456789012"}`,
	} {
		resp, err := http.Post(ts.URL+"/submit", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "body: %s", body)

		var out map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		resp.Body.Close()
		assert.Equal(t, false, out["success"])
		assert.Equal(t, "Missing data fields", out["message"])
	}
	assert.Empty(t, store.inserted)
}

func TestSubmitRejectsBadJSON(t *testing.T) {
	ts := newTestServer(&fakeStore{})
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/submit", "application/json", strings.NewReader("{broken"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSubmitDatabaseError(t *testing.T) {
	ts := newTestServer(&fakeStore{err: errors.New("db down")})
	defer ts.Close()

	body := `{"full_name":"John Doe","phone_number":"+123456789012"}`
	resp, err := http.Post(ts.URL+"/submit", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestDataListsRows(t *testing.T) {
	store := &fakeStore{rows: []storage.Submission{
		{ID: 1, FullName: "John Doe", PhoneNumber: "+123456789012"},
		{ID: 2, FullName: "Anna Lee", PhoneNumber: "+210987654321"},
	}}
	ts := newTestServer(store)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/data")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rows []storage.Submission
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rows))
	assert.Equal(t, store.rows, rows)
}

func TestUsersListsIDs(t *testing.T) {
	ts := newTestServer(&fakeStore{ids: []int64{7, 42}})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/users")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		UserIDs []int64 `json:"user_ids"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, []int64{7, 42}, out.UserIDs)
}

func TestRequestIDHeader(t *testing.T) {
	ts := newTestServer(&fakeStore{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(&fakeStore{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
