// Package remote persists the ledger through the JSON HTTP API served by
// ledgerd. Loading fetches every record; saving pushes or deletes single
// records to reconcile the server with the local ledger.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"ledgerbook/internal/api"
	"ledgerbook/internal/core"
	"ledgerbook/internal/log"
)

const (
	expensesPath = "/api/expenses"
	maxBodyBytes = 4 << 20
)

// Config is supplied by the caller; the client holds no global state.
type Config struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	MaxRetries uint
	// RetryInterval is the first backoff delay; zero keeps the library default.
	RetryInterval time.Duration
	HTTPClient    *http.Client
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.Path, e.Code, e.Body)
}

type Client struct {
	base       *url.URL
	token      string
	maxRetries uint
	retryEvery time.Duration
	http       *http.Client
	logger     *log.Logger

	mu    sync.Mutex
	known []core.ExpenseRecord // server state after the last load or save
}

func NewClient(cfg Config, logger *log.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid base url %q: scheme must be http or https", cfg.BaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = log.Discard()
	}
	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 1
	}

	return &Client{
		base:       base,
		token:      cfg.Token,
		maxRetries: maxRetries,
		retryEvery: cfg.RetryInterval,
		http:       httpClient,
		logger:     logger.WithComponent(log.ComponentRemote),
	}, nil
}

// Load fetches every record. Transport errors and 5xx responses are retried
// with exponential backoff. Records that fail validation are dropped.
func (c *Client) Load(ctx context.Context) ([]core.ExpenseRecord, error) {
	op := func() ([]api.Record, error) {
		var wire []api.Record
		if err := c.do(ctx, http.MethodGet, expensesPath, nil, &wire); err != nil {
			return nil, retryable(err)
		}
		return wire, nil
	}

	b := backoff.NewExponentialBackOff()
	if c.retryEvery > 0 {
		b.InitialInterval = c.retryEvery
	}
	wire, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(c.maxRetries))
	if err != nil {
		return nil, fmt.Errorf("fetch expenses: %w", err)
	}

	// known keeps one entry per server position. A dropped record is held as
	// the zero record, which never matches a valid local one, so the next
	// Save deletes it from the server.
	records := make([]core.ExpenseRecord, 0, len(wire))
	known := make([]core.ExpenseRecord, len(wire))
	skipped := 0
	for i, w := range wire {
		r := w.Core()
		if err := r.Validate(); err != nil {
			skipped++
			continue
		}
		known[i] = r
		records = append(records, r)
	}
	if skipped > 0 {
		c.logger.WarnContext(ctx, "Skipped invalid remote expenses",
			log.FieldSkipped, skipped,
			log.FieldErrorType, log.ErrorTypeValidation)
	}

	c.mu.Lock()
	c.known = known
	c.mu.Unlock()

	c.logger.DebugContext(ctx, "Fetched remote ledger", log.FieldCount, len(records))
	return records, nil
}

// Save reconciles the server with records: entries gone from the local
// ledger are deleted, highest index first, then new entries are pushed oldest
// first so the server's prepend order matches the local order.
func (c *Client) Save(ctx context.Context, records []core.ExpenseRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed, added := reconcile(c.known, records)

	for _, idx := range removed {
		path := expensesPath + "/" + strconv.Itoa(idx)
		if err := c.do(ctx, http.MethodDelete, path, nil, nil); err != nil {
			c.logger.WarnContext(ctx, "Failed to delete remote expense",
				log.NewFields().WithOperation(log.OpDelete).With(log.FieldIndex, idx).
					WithErrorType(errorType(err)).WithError(err).ToSlice()...)
			return fmt.Errorf("delete expense %d: %w", idx, err)
		}
		c.known = append(c.known[:idx], c.known[idx+1:]...)
		c.logger.DebugContext(ctx, "Deleted remote expense",
			log.NewFields().WithOperation(log.OpDelete).With(log.FieldIndex, idx).ToSlice()...)
	}

	for i := len(added) - 1; i >= 0; i-- {
		r := records[added[i]]
		if err := c.do(ctx, http.MethodPost, expensesPath, api.FromCore(r), nil); err != nil {
			c.logger.WarnContext(ctx, "Failed to push remote expense",
				log.NewFields().WithOperation(log.OpPush).WithRecord(r.Title, r.Amount.String(), r.Category).
					WithErrorType(errorType(err)).WithError(err).ToSlice()...)
			return fmt.Errorf("push expense %q: %w", r.Title, err)
		}
		c.known = append([]core.ExpenseRecord{r}, c.known...)
		c.logger.DebugContext(ctx, "Pushed remote expense",
			log.NewFields().WithOperation(log.OpPush).WithRecord(r.Title, r.Amount.String(), r.Category).ToSlice()...)
	}
	return nil
}

// reconcile matches the local ledger against the known server state from the
// end. Local records are new entries in front of a subsequence of known, so a
// greedy backwards match finds which known positions disappeared and which
// local positions must be pushed. removed is in descending order; added is in
// ascending local order.
func reconcile(known, local []core.ExpenseRecord) (removed, added []int) {
	i, j := len(local)-1, len(known)-1
	for i >= 0 && j >= 0 {
		if local[i].Equal(known[j]) {
			i--
			j--
			continue
		}
		removed = append(removed, j)
		j--
	}
	for ; j >= 0; j-- {
		removed = append(removed, j)
	}
	for k := 0; k <= i; k++ {
		added = append(added, k)
	}
	return removed, added
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("marshal body: %w", err))
		}
		reader = bytes.NewReader(data)
	}

	u := c.base.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Token "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: strings.TrimSpace(string(payload))}
	}
	if out != nil {
		if err := json.Unmarshal(payload, out); err != nil {
			return backoff.Permanent(fmt.Errorf("decode response: %w", err))
		}
	}
	return nil
}

// errorType classifies a request failure for logging.
func errorType(err error) string {
	var se *StatusError
	switch {
	case errors.As(err, &se) && se.Code == http.StatusNotFound:
		return log.ErrorTypeNotFound
	case errors.As(err, &se) && se.Code == http.StatusBadRequest:
		return log.ErrorTypeValidation
	case errors.As(err, &se):
		return log.ErrorTypeInternal
	default:
		return log.ErrorTypeNetwork
	}
}

// retryable marks 4xx responses as permanent; everything else may be retried.
func retryable(err error) error {
	var se *StatusError
	if errors.As(err, &se) && se.Code < 500 {
		return backoff.Permanent(err)
	}
	return err
}
