package chatrelay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	advisorerrors "github.com/campushq/advisor/internal/errors"
)

func TestPostMessage(t *testing.T) {
	t.Run("NewThread", func(t *testing.T) {
		var got postRequest
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/v1/messages", r.URL.Path)
			assert.Equal(t, "tok", r.Header.Get("X-Auth-Token"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			json.NewEncoder(w).Encode(postResponse{ThreadID: "th-42"})
		}))
		defer srv.Close()

		client := NewClient(srv.URL, "tok", "handbook-bot", time.Second)
		threadID, err := client.PostMessage(context.Background(), "cs-advisor", "hello", "")
		require.NoError(t, err)
		assert.Equal(t, "th-42", threadID)
		assert.Equal(t, "cs-advisor", got.Destination)
		assert.Empty(t, got.ReplyToThread)
	})

	t.Run("ReplyInThread", func(t *testing.T) {
		var got postRequest
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			json.NewEncoder(w).Encode(postResponse{ThreadID: got.ReplyToThread})
		}))
		defer srv.Close()

		client := NewClient(srv.URL, "tok", "handbook-bot", time.Second)
		threadID, err := client.PostMessage(context.Background(), "student1", "answer", "th-7")
		require.NoError(t, err)
		assert.Equal(t, "th-7", threadID)
	})

	t.Run("NonSuccessStatusIsTransient", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
		}))
		defer srv.Close()

		client := NewClient(srv.URL, "tok", "handbook-bot", time.Second)
		_, err := client.PostMessage(context.Background(), "u", "t", "")
		require.Error(t, err)
		assert.True(t, advisorerrors.IsCode(err, advisorerrors.ErrCodeTransientUpstream))
	})

	t.Run("MissingThreadIDIsMalformed", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{}`))
		}))
		defer srv.Close()

		client := NewClient(srv.URL, "tok", "handbook-bot", time.Second)
		_, err := client.PostMessage(context.Background(), "u", "t", "")
		require.Error(t, err)
		assert.True(t, advisorerrors.IsCode(err, advisorerrors.ErrCodeMalformedResponse))
	})
}

func TestFetchNewMessages(t *testing.T) {
	t.Run("CursorAdvances", func(t *testing.T) {
		var cursors []string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cursors = append(cursors, r.URL.Query().Get("cursor"))
			json.NewEncoder(w).Encode(fetchResponse{
				Messages: []Message{{UserID: "advisor", Text: "reply", ThreadID: "th-1"}},
				Cursor:   "c-2",
			})
		}))
		defer srv.Close()

		client := NewClient(srv.URL, "tok", "handbook-bot", time.Second)

		msgs, err := client.FetchNewMessages(context.Background())
		require.NoError(t, err)
		require.Len(t, msgs, 1)
		assert.Equal(t, "th-1", msgs[0].ThreadID)

		_, err = client.FetchNewMessages(context.Background())
		require.NoError(t, err)

		require.Len(t, cursors, 2)
		assert.Empty(t, cursors[0])
		assert.Equal(t, "c-2", cursors[1])
	})

	t.Run("EmptyBatch", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(fetchResponse{})
		}))
		defer srv.Close()

		client := NewClient(srv.URL, "tok", "handbook-bot", time.Second)
		msgs, err := client.FetchNewMessages(context.Background())
		require.NoError(t, err)
		assert.Empty(t, msgs)
	})

	t.Run("UpstreamFailureIsTransient", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "down", http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		client := NewClient(srv.URL, "tok", "handbook-bot", time.Second)
		_, err := client.FetchNewMessages(context.Background())
		require.Error(t, err)
		assert.True(t, advisorerrors.IsCode(err, advisorerrors.ErrCodeTransientUpstream))
	})
}
