// Package browser implements fetch_url and search_web: a plain net/http
// client bounded by the policy's domain/egress checks at the gate layer,
// plus a pluggable search backend (the search provider itself is a
// boundary contract, not this kernel's concern).
package browser

import (
	"io"
	"net/http"
	"time"

	"github.com/dawsonblock/rfsn-kernel/internal/capability"
)

// SearchBackend is implemented by whatever web-search provider a
// deployment wires in. No concrete provider ships with the kernel.
type SearchBackend interface {
	Search(query string, limit int) ([]string, error)
}

type Handlers struct {
	client  *http.Client
	search  SearchBackend
	maxBody int
}

func NewHandlers(search SearchBackend, maxBody int) *Handlers {
	if maxBody <= 0 {
		maxBody = 200_000
	}
	return &Handlers{
		client:  &http.Client{Timeout: 15 * time.Second},
		search:  search,
		maxBody: maxBody,
	}
}

func (h *Handlers) FetchURL(_ *capability.ExecutionContext, args map[string]any) capability.Result {
	url, _ := args["url"].(string)
	resp, err := h.client.Get(url)
	if err != nil {
		return capability.Result{Success: false, Error: "tool:fetch_failed: " + err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, int64(h.maxBody)))
	if err != nil {
		return capability.Result{Success: false, Error: "tool:fetch_read_failed: " + err.Error()}
	}
	return capability.Result{Success: true, Output: map[string]any{
		"status": resp.StatusCode,
		"body":   string(body),
	}}
}

func (h *Handlers) SearchWeb(_ *capability.ExecutionContext, args map[string]any) capability.Result {
	if h.search == nil {
		return capability.Result{Success: false, Error: "tool:no_search_backend_configured"}
	}
	query, _ := args["query"].(string)
	limit := 10
	if v, ok := args["limit"].(float64); ok && int(v) > 0 {
		limit = int(v)
	}
	results, err := h.search.Search(query, limit)
	if err != nil {
		return capability.Result{Success: false, Error: "tool:search_failed: " + err.Error()}
	}
	return capability.Result{Success: true, Output: results}
}
