package syncclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/yaxxsin/task-management-prod-sub001/internal/model"
)

// SharedView is the server-computed overlay of resources granted to the
// caller by other owners.
type SharedView struct {
	Spaces  []model.Item `json:"spaces"`
	Folders []model.Item `json:"folders"`
	Lists   []model.Item `json:"lists"`
	Tasks   []model.Item `json:"tasks"`
}

// RemoteStore is the engine's view of the server. Absence and failure look
// the same to the merge: "no remote document".
type RemoteStore interface {
	// Get returns the remote document for a key, or nil when absent or
	// unreachable.
	Get(ctx context.Context, key string) json.RawMessage
	// Put overwrites the remote document for a key.
	Put(ctx context.Context, key string, doc json.RawMessage) error
	// Shared returns the shared view, or nil when unavailable.
	Shared(ctx context.Context) *SharedView
}

// HTTPRemote talks to the sync server over its REST API.
type HTTPRemote struct {
	baseURL string
	client  *http.Client
	session *Session
	log     *zap.Logger
}

// NewHTTPRemote constructs a remote store client.
func NewHTTPRemote(baseURL string, client *http.Client, session *Session, log *zap.Logger) *HTTPRemote {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPRemote{baseURL: baseURL, client: client, session: session, log: log}
}

func (r *HTTPRemote) do(req *http.Request) (*http.Response, error) {
	if tok, ok := r.session.Token(); ok {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	return r.client.Do(req)
}

// Get fetches the stored document. Network failures, non-200 statuses, and
// malformed payloads are all degraded to "no remote document" so local-only
// operation continues.
func (r *HTTPRemote) Get(ctx context.Context, key string) json.RawMessage {
	u := r.baseURL + "/api/storage/" + url.PathEscape(key)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil
	}
	resp, err := r.do(req)
	if err != nil {
		r.log.Warn("remote get failed", zap.String("key", key), zap.Error(err))
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		r.log.Warn("remote get status", zap.String("key", key), zap.Int("status", resp.StatusCode))
		return nil
	}
	var body struct {
		Document json.RawMessage `json:"document"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		r.log.Warn("remote get decode failed", zap.String("key", key), zap.Error(err))
		return nil
	}
	if len(body.Document) == 0 || bytes.Equal(body.Document, []byte("null")) {
		return nil
	}
	return body.Document
}

// Put overwrites the remote copy with the full serialized document.
func (r *HTTPRemote) Put(ctx context.Context, key string, doc json.RawMessage) error {
	u := r.baseURL + "/api/storage/" + url.PathEscape(key)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(doc))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := r.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("remote put %s: status %d: %s", key, resp.StatusCode, b)
	}
	return nil
}

// Shared fetches the computed shared view; nil when unavailable.
func (r *HTTPRemote) Shared(ctx context.Context) *SharedView {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/api/shared", nil)
	if err != nil {
		return nil
	}
	resp, err := r.do(req)
	if err != nil {
		r.log.Warn("shared view fetch failed", zap.Error(err))
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil
	}
	var view SharedView
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		r.log.Warn("shared view decode failed", zap.Error(err))
		return nil
	}
	return &view
}
