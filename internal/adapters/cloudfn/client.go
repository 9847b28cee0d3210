// internal/adapters/cloudfn/client.go
package cloudfn

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
	"time"

	"github.com/rs/zerolog/log"

	"dealership/internal/adapters/observability"
	"dealership/internal/domain"
)

const (
	service   = "cloudfn"
	userAgent = "dealership-reviews/1.0"
	maxBody   = 4 << 20 // 4MB guard
)

type Client struct {
	hc  *http.Client
	key string
}

// New returns a client whose every call is bounded by timeout.
// key is optional; when set it is sent as basic auth ("apikey", key).
func New(key string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		hc:  &http.Client{Timeout: timeout},
		key: key,
	}
}

// ---- Backend shapes ----

// FetchDealers expects [{"doc": {...}}, ...] and returns the doc objects.
// Rows that are not a {"doc": object} wrapper are logged and come back as nil
// entries so the caller can skip them per record.
func (c *Client) FetchDealers(ctx context.Context, u string) ([]map[string]any, error) {
	v, err := c.Get(ctx, u, nil)
	if err != nil {
		return nil, err
	}
	rows, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: dealers: expected array, got %s", domain.ErrBadResponse, kindOf(v))
	}
	out := make([]map[string]any, 0, len(rows))
	for i, row := range rows {
		var doc map[string]any
		w, ok := row.(map[string]any)
		switch {
		case !ok:
			log.Warn().Int("row", i).Str("kind", kindOf(row)).Msg("dealer row is not an object")
		default:
			if doc, ok = w["doc"].(map[string]any); !ok {
				log.Warn().Int("row", i).Str("doc", kindOf(w["doc"])).Msg("dealer row has no doc wrapper object")
			}
		}
		out = append(out, doc)
	}
	return out, nil
}

// FetchDealer expects a plain array of dealer objects filtered by dealerId.
func (c *Client) FetchDealer(ctx context.Context, u string, dealerID int64) ([]map[string]any, error) {
	v, err := c.Get(ctx, u, dealerParams(dealerID))
	if err != nil {
		return nil, err
	}
	rows, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: dealer %d: expected array, got %s", domain.ErrBadResponse, dealerID, kindOf(v))
	}
	return asRecords(rows), nil
}

// FetchReviews expects {"data": {"docs": [...]}}.
func (c *Client) FetchReviews(ctx context.Context, u string, dealerID int64) ([]map[string]any, error) {
	v, err := c.Get(ctx, u, dealerParams(dealerID))
	if err != nil {
		return nil, err
	}
	root, _ := v.(map[string]any)
	data, _ := root["data"].(map[string]any)
	docs, ok := data["docs"].([]any)
	if !ok {
		return nil, fmt.Errorf("%w: reviews for dealer %d: missing data.docs array", domain.ErrBadResponse, dealerID)
	}
	return asRecords(docs), nil
}

// ---- Request helpers ----

// Get issues a JSON GET and returns the decoded body.
// A transport failure never falls through to reading a response:
// it returns ErrUnavailable. 404 is ErrNotFound, 5xx ErrUnavailable,
// any other non-2xx or a non-JSON body ErrBadResponse.
func (c *Client) Get(ctx context.Context, rawURL string, params url.Values) (any, error) {
	u, err := withQuery(rawURL, params)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	path := req.URL.Path
	switch {
	case resp.StatusCode == http.StatusNotFound:
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))
		return nil, fmt.Errorf("%w: GET %s", domain.ErrNotFound, path)

	case resp.StatusCode >= 500:
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))
		return nil, fmt.Errorf("%w: GET %s: remote %d", domain.ErrUnavailable, path, resp.StatusCode)

	case resp.StatusCode < 200 || resp.StatusCode > 299:
		// read a small error body for diagnostics
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: GET %s: status %d: %s", domain.ErrBadResponse, path, resp.StatusCode, strings.TrimSpace(string(b)))
	}

	b, err := readAllLimit(resp.Body, maxBody)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %w", domain.ErrBadResponse, path, err)
	}
	out, err := decodeJSON(b)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: decode: %w", domain.ErrBadResponse, path, err)
	}
	return out, nil
}

// Post sends payload as JSON and hands back the raw response, whatever its
// status. The caller owns resp.Body. Only transport failures are errors.
func (c *Client) Post(ctx context.Context, rawURL string, payload any, params url.Values) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	u, err := withQuery(rawURL, params)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)
	return c.do(req)
}

// ---- Internals ----

func (c *Client) do(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveExternal(service, req.URL.Path, 0, time.Since(start))
		log.Warn().Err(err).
			Str("method", req.Method).
			Str("url", req.URL.Redacted()).
			Msg("cloud function request failed")
		return nil, fmt.Errorf("%w: %s %s: %w", domain.ErrUnavailable, req.Method, req.URL.Path, err)
	}
	observability.ObserveExternal(service, req.URL.Path, resp.StatusCode, time.Since(start))
	return resp, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if c.key != "" {
		req.SetBasicAuth("apikey", c.key)
	}
}

func withQuery(rawURL string, params url.Values) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", rawURL, err)
	}
	if len(params) > 0 {
		q := u.Query()
		for k, vs := range params {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func dealerParams(id int64) url.Values {
	return url.Values{"dealerId": {strconv.FormatInt(id, 10)}}
}

// asRecords keeps positions stable; non-object rows become nil.
func asRecords(rows []any) []map[string]any {
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		m, _ := row.(map[string]any)
		out = append(out, m)
	}
	return out
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case float64, json.Number:
		return "number"
	case bool:
		return "bool"
	}
	return fmt.Sprintf("%T", v)
}

// decodeJSON keeps numbers as json.Number so ids past 2^53 survive intact.
func decodeJSON(b []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("trailing data after JSON value")
	}
	return out, nil
}

func readAllLimit(r io.Reader, limit int64) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > limit {
		return nil, errors.New("payload too large")
	}
	return b, nil
}
