package reader

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/starford/novelcipher/internal/apperr"
	"github.com/starford/novelcipher/internal/chapter"
)

// Source delivers sealed chapters.
type Source interface {
	Fetch(ctx context.Context, number int) (*chapter.Detail, error)
}

// HTTPSource fetches chapters from the REST API.
type HTTPSource struct {
	// BaseURL is the server root, e.g. http://localhost:8080.
	BaseURL string
	Client  *http.Client
}

// Fetch implements Source.
func (s *HTTPSource) Fetch(ctx context.Context, number int) (*chapter.Detail, error) {
	url := fmt.Sprintf("%s/api/chapters/%d", strings.TrimRight(s.BaseURL, "/"), number)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("reader: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reader: fetch chapter %d: %w", number, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("chapter %d: %w", number, apperr.ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("reader: fetch chapter %d: unexpected status %s", number, resp.Status)
	}

	var d chapter.Detail
	if err := json.NewDecoder(resp.Body).Decode(&d); err != nil {
		return nil, fmt.Errorf("reader: decode chapter %d: %w", number, err)
	}
	return &d, nil
}

// ServiceSource reads chapters from an in-process chapter service.
type ServiceSource struct {
	Service *chapter.Service
}

// Fetch implements Source.
func (s ServiceSource) Fetch(ctx context.Context, number int) (*chapter.Detail, error) {
	return s.Service.GetChapter(ctx, number)
}
