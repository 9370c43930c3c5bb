// Package mockservers provides fake servers for the external services the
// assistant talks to.
package mockservers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// GeminiMockServer fakes the generateContent endpoint. Each call returns the
// next queued reply as the candidate text; the last reply repeats.
type GeminiMockServer struct {
	Server *httptest.Server
	// Status overrides the HTTP status when non-zero.
	Status int

	mu       sync.Mutex
	replies  []string
	Requests []string
}

// NewGeminiMockServer starts a server answering with replies.
func NewGeminiMockServer(t *testing.T, replies ...string) *GeminiMockServer {
	t.Helper()

	mock := &GeminiMockServer{replies: replies}

	mock.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, ":generateContent") {
			writeGoogleError(w, http.StatusNotFound, "Not Found")
			return
		}
		if r.URL.Query().Get("key") == "" {
			writeGoogleError(w, http.StatusForbidden, "API key missing")
			return
		}

		var body struct {
			Contents []struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"contents"`
		}
		json.NewDecoder(r.Body).Decode(&body)

		mock.mu.Lock()
		var user string
		if len(body.Contents) > 0 && len(body.Contents[0].Parts) > 0 {
			user = body.Contents[0].Parts[0].Text
		}
		mock.Requests = append(mock.Requests, user)
		reply := ""
		if n := len(mock.replies); n > 0 {
			i := len(mock.Requests) - 1
			if i >= n {
				i = n - 1
			}
			reply = mock.replies[i]
		}
		status := mock.Status
		mock.mu.Unlock()

		if status != 0 && status != http.StatusOK {
			writeGoogleError(w, status, http.StatusText(status))
			return
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"candidates": []map[string]interface{}{
				{
					"content": map[string]interface{}{
						"role":  "model",
						"parts": []map[string]interface{}{{"text": reply}},
					},
					"finishReason": "STOP",
				},
			},
		})
	}))

	t.Cleanup(func() {
		mock.Server.Close()
	})

	return mock
}

// URL returns the server base URL.
func (m *GeminiMockServer) URL() string {
	return m.Server.URL
}

func writeGoogleError(w http.ResponseWriter, code int, msg string) {
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]interface{}{
			"code":    code,
			"message": msg,
		},
	})
}

// Calls returns the user messages received so far.
func (m *GeminiMockServer) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Requests...)
}
