package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	internalErrors "github.com/gcbaptista/go-book-indexer/internal/errors"
	"github.com/gcbaptista/go-book-indexer/model"
)

// maxPayloadBytes caps the size of a fetched collection.
const maxPayloadBytes = 64 << 20

// HTTPOptions configures HTTPSource.
type HTTPOptions struct {
	Client  *http.Client
	Timeout time.Duration // per attempt, 0 means no extra timeout
	Retry   RetryConfig
}

// HTTPSource fetches a JSON document collection with GET, retrying transport
// errors and 5xx/429 responses with exponential backoff.
type HTTPSource struct {
	URL  string
	opts HTTPOptions
}

// NewHTTPSource creates an HTTPSource for url.
func NewHTTPSource(url string, opts HTTPOptions) *HTTPSource {
	if opts.Client == nil {
		opts.Client = http.DefaultClient
	}
	return &HTTPSource{URL: url, opts: opts}
}

func (s *HTTPSource) Name() string { return s.URL }

// Load fetches and parses the collection.
func (s *HTTPSource) Load(ctx context.Context) ([]model.Document, error) {
	var docs []model.Document
	err := retry(ctx, "fetch "+s.URL, s.opts.Retry, func() error {
		var err error
		docs, err = s.fetch(ctx)
		return err
	})
	if err != nil {
		return nil, internalErrors.NewLoadError(s.URL, err)
	}
	return docs, nil
}

func (s *HTTPSource) fetch(ctx context.Context) ([]model.Document, error) {
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, permanent(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.opts.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		statusErr := fmt.Errorf("unexpected status %d", resp.StatusCode)
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, statusErr
		}
		return nil, permanent(statusErr)
	}

	docs, err := Decode(io.LimitReader(resp.Body, maxPayloadBytes))
	if err != nil {
		return nil, permanent(err)
	}
	return docs, nil
}
