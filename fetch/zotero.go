// Package fetch retrieves source data: the Zotero Web API for json and
// rdf load modes, the local filesystem for manual imports. Fetching is
// strictly separated from mapping; a fetch failure for one library never
// touches another library's data.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/ch-sander/zotero-rdf-server/config"
)

// ErrUnavailable marks a source that could not be reached or kept
// answering with errors after retries. The caller aborts the library's
// refresh and keeps its previous graph contents.
var ErrUnavailable = errors.New("fetch: source unavailable")

// pageLimit is the Zotero API maximum page size.
const pageLimit = 100

// Client is a paginated Zotero Web API client.
type Client struct {
	http   *http.Client
	logger *slog.Logger
	ctx    config.Context
}

// NewClient creates an API client. logger may be nil.
func NewClient(ctx config.Context, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		http:   &http.Client{Timeout: 60 * time.Second},
		logger: logger,
		ctx:    ctx,
	}
}

// Items fetches all items of the library, following pagination until a
// short page. Raw item JSON objects are returned in API order.
func (c *Client) Items(ctx context.Context, lib config.Library) ([]map[string]any, error) {
	return c.paginate(ctx, lib, "items", map[string]string{"include": "data"})
}

// Collections fetches all collections of the library.
func (c *Client) Collections(ctx context.Context, lib config.Library) ([]map[string]any, error) {
	return c.paginate(ctx, lib, "collections", nil)
}

func (c *Client) paginate(ctx context.Context, lib config.Library, resource string, extra map[string]string) ([]map[string]any, error) {
	var all []map[string]any
	start := 0
	for {
		page, err := c.fetchPage(ctx, lib, resource, start, extra)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < pageLimit {
			return all, nil
		}
		start += pageLimit

		// Cancellation between pages keeps a shutdown from hanging on a
		// large library.
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
}

// fetchPage retrieves one page, retrying transient failures (429, 5xx,
// network errors) with exponential backoff.
func (c *Client) fetchPage(ctx context.Context, lib config.Library, resource string, start int, extra map[string]string) ([]map[string]any, error) {
	u := c.pageURL(lib, resource, start, extra)

	op := func() ([]map[string]any, error) {
		body, err := c.get(ctx, u, lib.APIKey, "application/json")
		if err != nil {
			return nil, err
		}
		defer body.Close()

		var page []map[string]any
		if err := json.NewDecoder(body).Decode(&page); err != nil {
			// A malformed body will not improve on retry.
			return nil, backoff.Permanent(fmt.Errorf("%w: decoding %s: %v", ErrUnavailable, resource, err))
		}
		return page, nil
	}

	page, err := backoff.RetryWithData(op, c.policy(ctx))
	if err != nil {
		return nil, err
	}
	c.logger.Debug("fetched page",
		"library", lib.Name, "resource", resource, "start", start, "count", len(page))
	return page, nil
}

// RDFExport retrieves the library's full RDF export in its configured
// format. The caller is responsible for closing the reader.
func (c *Client) RDFExport(ctx context.Context, lib config.Library) (io.ReadCloser, error) {
	q := url.Values{}
	q.Set("format", exportFormatParam(lib.RDFExportFormat))
	q.Set("limit", fmt.Sprint(pageLimit))
	for k, v := range lib.APIQueryParams {
		q.Set(k, v)
	}
	// Encode sorts keys, so the URL is stable across runs.
	u := lib.APIBase(c.ctx) + "/items?" + q.Encode()

	op := func() (io.ReadCloser, error) {
		return c.get(ctx, u, lib.APIKey, "")
	}
	return backoff.RetryWithData(op, c.policy(ctx))
}

func (c *Client) pageURL(lib config.Library, resource string, start int, extra map[string]string) string {
	q := url.Values{}
	q.Set("limit", fmt.Sprint(pageLimit))
	q.Set("start", fmt.Sprint(start))
	for k, v := range extra {
		q.Set(k, v)
	}
	for k, v := range lib.APIQueryParams {
		q.Set(k, v)
	}
	return lib.APIBase(c.ctx) + "/" + resource + "?" + q.Encode()
}

// get performs one authenticated request. Retryable statuses map to plain
// errors, permanent ones (auth failures, missing libraries) are marked so
// the backoff loop stops immediately.
func (c *Client) get(ctx context.Context, u, apiKey, accept string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	if apiKey != "" {
		req.Header.Set("Zotero-API-Key", apiKey)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return resp.Body, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, resp.Status)
	default:
		resp.Body.Close()
		return nil, backoff.Permanent(fmt.Errorf("%w: %s", ErrUnavailable, resp.Status))
	}
}

func (c *Client) policy(ctx context.Context) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxElapsedTime = 2 * time.Minute
	return backoff.WithContext(backoff.WithMaxRetries(b, 5), ctx)
}

// exportFormatParam maps configured export format names onto the API's
// format parameter values.
func exportFormatParam(format string) string {
	switch format {
	case "", "rdf_zotero":
		return "rdf_zotero"
	case "rdf_dc", "rdf_bibliontology", "mods", "biblatex", "bibtex":
		return format
	default:
		return format
	}
}
