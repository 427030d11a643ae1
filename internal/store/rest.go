package store

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
)

const restPrefix = "/rest/v1/"

// REST talks to a PostgREST endpoint (Supabase) with the project key.
type REST struct {
	baseURL string
	key     string
	client  *retryablehttp.Client
	log     *slog.Logger
}

type RESTOptions struct {
	// HTTPClient is the underlying client; a 20s-timeout client is used when nil.
	HTTPClient *http.Client
	// RetryMax is the number of retries on 5xx/429 and transport errors. Zero disables retries.
	RetryMax int
	Logger   *slog.Logger
}

func NewREST(baseURL, key string, opts RESTOptions) *REST {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 20 * time.Second}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	rc := retryablehttp.NewClient()
	rc.HTTPClient = opts.HTTPClient
	rc.RetryMax = opts.RetryMax
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.Logger = opts.Logger
	// Hand non-2xx responses back untouched so the status and body reach UpstreamError.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &REST{
		baseURL: strings.TrimRight(baseURL, "/"),
		key:     key,
		client:  rc,
		log:     opts.Logger,
	}
}

func (c *REST) Insert(ctx context.Context, table string, rows ...Row) error {
	if len(rows) == 0 {
		return nil
	}
	// PostgREST requires every object in a bulk insert to carry the same keys.
	cols := columnsOf(rows)
	batch := make([]Row, len(rows))
	for i, r := range rows {
		full := make(Row, len(cols))
		for _, col := range cols {
			full[col] = r[col]
		}
		batch[i] = full
	}
	body, err := json.Marshal(batch)
	if err != nil {
		return errors.Wrapf(err, "encode %s rows", table)
	}
	return c.do(ctx, http.MethodPost, table, nil, body, nil)
}

func (c *REST) Select(ctx context.Context, table string, filter Filter, order ...Order) ([]Row, error) {
	q := filterQuery(filter)
	q.Set("select", "*")
	if len(order) > 0 {
		parts := make([]string, 0, len(order))
		for _, o := range order {
			dir := "asc"
			if o.Desc {
				dir = "desc"
			}
			parts = append(parts, o.Column+"."+dir)
		}
		q.Set("order", strings.Join(parts, ","))
	}
	var out []Row
	if err := c.do(ctx, http.MethodGet, table, q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *REST) DeleteWhere(ctx context.Context, table string, filter Filter) error {
	if len(filter) == 0 {
		return ErrEmptyFilter
	}
	return c.do(ctx, http.MethodDelete, table, filterQuery(filter), nil, nil)
}

func (c *REST) do(ctx context.Context, method, table string, q url.Values, body []byte, out *[]Row) error {
	u := c.baseURL + restPrefix + url.PathEscape(table)
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return errors.Wrap(err, "build store request")
	}
	req.Header.Set("apikey", c.key)
	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet {
		req.Header.Set("Prefer", "return=minimal")
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "store %s %s", method, table)
	}
	defer resp.Body.Close()
	c.log.Debug("store request", "method", method, "table", table, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &UpstreamError{Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	if out == nil {
		return nil
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return errors.Wrapf(err, "decode %s rows", table)
	}
	return nil
}

func filterQuery(filter Filter) url.Values {
	q := url.Values{}
	for _, col := range sortedKeys(filter) {
		if filter[col] == nil {
			q.Set(col, "is.null")
			continue
		}
		q.Set(col, "eq."+formatValue(filter[col]))
	}
	return q
}

func formatValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return strings.Trim(string(b), `"`)
	}
}
