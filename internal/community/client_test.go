package community

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rss-scn/internal/fetch"
	"rss-scn/internal/model"
)

type recorder struct {
	mu       sync.Mutex
	outcomes []string
}

func (r *recorder) observe(outcome string, _ time.Duration) {
	r.mu.Lock()
	r.outcomes = append(r.outcomes, outcome)
	r.mu.Unlock()
}

func newClient(t *testing.T, h http.HandlerFunc, rec *recorder) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	cl, err := fetch.New(fetch.Options{Timeout: 2 * time.Second})
	require.NoError(t, err)
	var obs Observer
	if rec != nil {
		obs = rec.observe
	}
	return New(cl, Options{BaseURL: srv.URL + "/api/2.0/search", Timeout: time.Second, Observe: obs})
}

func TestSearch_Success(t *testing.T) {
	var gotQ string
	rec := &recorder{}
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQ = r.URL.Query().Get("q")
		assert.Equal(t, "/api/2.0/search", r.URL.Path)
		_, _ = w.Write([]byte(`{"status":"success","data":{"items":[{"id":"1","subject":"s","author":{"login":"me"},"metrics":{"views":5}}]}}`))
	}, rec)

	q := "select id from messages WHERE author.id = 'o\\'x' ORDER BY id DESC LIMIT 25"
	resp, err := c.Search(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, q, gotQ)
	require.Len(t, resp.Data.Items, 1)
	assert.Equal(t, model.Message{ID: "1", Subject: "s", Author: model.Author{Login: "me"}, Metrics: model.Metrics{Views: 5}}, resp.Data.Items[0])
	assert.Equal(t, []string{"success"}, rec.outcomes)
}

func TestSearch_UpstreamStatus(t *testing.T) {
	rec := &recorder{}
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"error","message":"invalid query"}`))
	}, rec)
	_, err := c.Search(context.Background(), "select")
	var ue *model.UpstreamError
	require.True(t, errors.As(err, &ue), "got %v", err)
	assert.Equal(t, "invalid query", ue.Message)
	assert.Equal(t, []string{"upstream_error"}, rec.outcomes)
}

func TestSearch_Failures(t *testing.T) {
	tests := []struct {
		name string
		h    http.HandlerFunc
	}{
		{"http 500", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) }},
		{"bad json", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("<html>")) }},
		{"timeout", func(w http.ResponseWriter, r *http.Request) { time.Sleep(1500 * time.Millisecond) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			c := newClient(t, tt.h, rec)
			_, err := c.Search(context.Background(), "select")
			require.Error(t, err)
			var ue *model.UpstreamError
			assert.False(t, errors.As(err, &ue), "transport failures are not upstream errors")
			assert.Equal(t, []string{"failure"}, rec.outcomes)
		})
	}
}

func TestAuthorID(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		if strings.HasSuffix(q, "'404'") {
			_, _ = w.Write([]byte(`{"status":"success","data":{"items":[]}}`))
			return
		}
		assert.Equal(t, "select author.id from messages WHERE id = '13576'", q)
		_, _ = w.Write([]byte(`{"status":"success","data":{"items":[{"author":{"id":"61"}}]}}`))
	}, nil)

	id, err := c.AuthorID(context.Background(), "13576")
	require.NoError(t, err)
	assert.Equal(t, "61", id)

	_, err = c.AuthorID(context.Background(), "404")
	assert.ErrorIs(t, err, ErrNoAuthor)
}
