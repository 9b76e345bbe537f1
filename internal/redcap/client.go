// Package redcap is a minimal client for the REDCap API surface the alert
// system needs: bulk record export, categorical field metadata, and bulk
// record import with an overwrite mode. The API is a form-encoded POST
// endpoint authenticated by a per-project token carried in the request body.
package redcap

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithMaxRetries sets the number of retry attempts on transport errors and
// 5xx responses.
func WithMaxRetries(n int) Option {
	return func(cl *Client) { cl.maxRetries = n }
}

// WithSeparators overrides the choice and code separators REDCap uses when
// exporting categorical field metadata.
func WithSeparators(choiceSep, codeSep string) Option {
	return func(cl *Client) {
		cl.choiceSep = choiceSep
		cl.codeSep = codeSep
	}
}

// WithObserver registers a callback invoked once per API call with the
// content type and "ok" or "error". Used to feed request metrics.
func WithObserver(fn func(content, outcome string)) Option {
	return func(cl *Client) { cl.observe = fn }
}

// Client talks to one REDCap project.
type Client struct {
	apiURL     string
	token      string
	httpClient *http.Client
	maxRetries int
	retryDelay time.Duration
	choiceSep  string
	codeSep    string
	observe    func(content, outcome string)
	log        zerolog.Logger
}

// New creates a client for one project. The token is kept out of every log
// line and error message.
func New(apiURL, token string, log zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		apiURL:     apiURL,
		token:      token,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		maxRetries: 3,
		retryDelay: 2 * time.Second,
		choiceSep:  " | ",
		codeSep:    ", ",
		log:        log.With().Str("component", "redcap").Logger(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ExportRecords pulls the participant-visit table as flat rows limited to
// the given fields. Every cell comes back as a string; blank means NULL.
func (c *Client) ExportRecords(ctx context.Context, fields []string) ([]map[string]string, error) {
	form := url.Values{}
	form.Set("content", "record")
	form.Set("format", "json")
	form.Set("type", "flat")
	form.Set("rawOrLabel", "raw")
	form.Set("returnFormat", "json")
	if len(fields) > 0 {
		form.Set("fields", strings.Join(fields, ","))
	}

	body, err := c.post(ctx, form)
	if err != nil {
		return nil, fmt.Errorf("export records: %w", err)
	}

	var raw []map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("export records: decode response: %w", err)
	}
	records := make([]map[string]string, 0, len(raw))
	for _, rec := range raw {
		row := make(map[string]string, len(rec))
		for k, v := range rec {
			row[k] = decodeCell(v)
		}
		records = append(records, row)
	}
	c.log.Debug().Int("records", len(records)).Msg("records exported")
	return records, nil
}

// ExportFieldChoices pulls the metadata of one categorical field and returns
// its code-to-label map. Choices arrive as a single string, entries split by
// the choice separator and each entry split into code and label by the code
// separator.
func (c *Client) ExportFieldChoices(ctx context.Context, field string) (map[string]string, error) {
	form := url.Values{
		"content":      {"metadata"},
		"format":       {"json"},
		"fields":       {field},
		"returnFormat": {"json"},
	}

	body, err := c.post(ctx, form)
	if err != nil {
		return nil, fmt.Errorf("export metadata for %q: %w", field, err)
	}

	var meta []struct {
		FieldName string `json:"field_name"`
		Choices   string `json:"select_choices_or_calculations"`
	}
	if err := json.Unmarshal(body, &meta); err != nil {
		return nil, fmt.Errorf("export metadata for %q: decode response: %w", field, err)
	}
	for _, m := range meta {
		if m.FieldName != field {
			continue
		}
		return c.parseChoices(m.Choices), nil
	}
	return nil, fmt.Errorf("export metadata: field %q not found", field)
}

func (c *Client) parseChoices(choices string) map[string]string {
	out := make(map[string]string)
	for _, entry := range strings.Split(choices, c.choiceSep) {
		code, label, found := strings.Cut(entry, c.codeSep)
		if !found {
			continue
		}
		out[strings.TrimSpace(code)] = strings.TrimSpace(label)
	}
	return out
}

// FieldUpdate is one (record, field value) upsert.
type FieldUpdate struct {
	RecordID string
	Field    string
	Value    string
}

// ImportRecords upserts field values in bulk and returns how many records
// REDCap reports as applied. With overwrite enabled, blank values erase the
// remote cell instead of being ignored; that is how alerts are removed.
func (c *Client) ImportRecords(ctx context.Context, updates []FieldUpdate, overwrite bool) (int, error) {
	if len(updates) == 0 {
		return 0, nil
	}

	rows := make([]map[string]string, 0, len(updates))
	for _, u := range updates {
		rows = append(rows, map[string]string{
			"record_id": u.RecordID,
			u.Field:     u.Value,
		})
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return 0, fmt.Errorf("import records: encode payload: %w", err)
	}

	form := url.Values{
		"content":           {"record"},
		"format":            {"json"},
		"type":              {"flat"},
		"returnContent":     {"count"},
		"returnFormat":      {"json"},
		"data":              {string(data)},
		"overwriteBehavior": {"normal"},
	}
	if overwrite {
		form.Set("overwriteBehavior", "overwrite")
	}

	body, err := c.post(ctx, form)
	if err != nil {
		return 0, fmt.Errorf("import records: %w", err)
	}
	var resp struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("import records: decode response: %w", err)
	}
	return resp.Count, nil
}

// post sends one form-encoded API call, retrying transport failures and 5xx
// responses with a flat delay between attempts.
func (c *Client) post(ctx context.Context, form url.Values) (body []byte, err error) {
	if c.observe != nil {
		content := form.Get("content")
		defer func() {
			outcome := "ok"
			if err != nil {
				outcome = "error"
			}
			c.observe(content, outcome)
		}()
	}

	form.Set("token", c.token)
	payload := form.Encode()

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryDelay):
			}
			c.log.Warn().Int("attempt", attempt).Msg("retrying REDCap call")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, strings.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			return body, nil
		case resp.StatusCode >= 500:
			lastErr = fmt.Errorf("REDCap returned %d", resp.StatusCode)
			continue
		default:
			// 4xx responses carry a REDCap error message; not retryable.
			return nil, fmt.Errorf("REDCap returned %d: %s", resp.StatusCode, truncate(string(body), 200))
		}
	}
	return nil, lastErr
}

// decodeCell unwraps a JSON cell to its string form; REDCap mixes strings
// and bare numbers in exports.
func decodeCell(v json.RawMessage) string {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	return strings.Trim(string(v), `"`)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
