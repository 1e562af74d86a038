package opensubtitles

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
)

const (
	defaultBaseURL   = "https://api.opensubtitles.com/api/v1"
	defaultUserAgent = "Sublift/dev"
	defaultTimeout   = 45 * time.Second
)

// Config describes the OpenSubtitles client configuration.
type Config struct {
	APIKey     string
	UserAgent  string
	UserToken  string
	BaseURL    string
	HTTPClient *http.Client
}

// Client wraps the OpenSubtitles REST API. Requests are spaced at least one
// interval apart across goroutines, and rate-limited or transiently failed
// calls retry with exponential backoff, so callers can treat Search and
// Download as plain blocking operations.
type Client struct {
	apiKey    string
	userAgent string
	userToken string
	base      *url.URL
	http      *http.Client

	mu       sync.Mutex
	nextSlot time.Time
	interval time.Duration
}

// New creates a Client from the supplied configuration.
func New(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("opensubtitles: api key is required")
	}
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = defaultBaseURL
	}
	parsed, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("opensubtitles: parse base url: %w", err)
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		apiKey:    apiKey,
		userAgent: userAgent,
		userToken: strings.TrimSpace(cfg.UserToken),
		base:      parsed,
		http:      httpClient,
		interval:  minInterval,
	}, nil
}

// SearchRequest describes movie subtitle discovery filters.
type SearchRequest struct {
	IMDBID          string
	TMDBID          int64
	Query           string
	Year            string
	Languages       []string
	HearingImpaired bool
}

// values renders the request as API query parameters. Results always order
// by download count so the most widely used release comes first.
func (r SearchRequest) values() url.Values {
	params := url.Values{}
	if id := sanitizeIMDBID(r.IMDBID); id != "" {
		params.Set("imdb_id", id)
	}
	if r.TMDBID > 0 {
		params.Set("tmdb_id", strconv.FormatInt(r.TMDBID, 10))
	}
	if q := strings.TrimSpace(r.Query); q != "" {
		params.Set("query", q)
	}
	if y := strings.TrimSpace(r.Year); y != "" {
		params.Set("year", y)
	}
	if len(r.Languages) > 0 {
		params.Set("languages", strings.Join(r.Languages, ","))
	}
	if r.HearingImpaired {
		params.Set("hearing_impaired", "true")
	}
	params.Set("type", "movie")
	params.Set("order_by", "download_count")
	params.Set("order_direction", "desc")
	return params
}

// Subtitle represents a subtitle candidate returned by OpenSubtitles.
type Subtitle struct {
	ID              string
	FileID          int64
	Language        string
	Release         string
	FeatureTitle    string
	FeatureYear     int
	Downloads       int
	HearingImpaired bool
	HD              bool
	AITranslated    bool
}

// SearchResponse bundles the subtitles returned by a query.
type SearchResponse struct {
	Subtitles []Subtitle
	Total     int
}

// DownloadOptions controls subtitle downloads.
type DownloadOptions struct {
	Format string
}

// DownloadResult captures the downloaded subtitle payload.
type DownloadResult struct {
	Data        []byte
	FileName    string
	Language    string
	DownloadURL string
}

// Search queries the API for matching movie subtitles.
func (c *Client) Search(ctx context.Context, req SearchRequest) (SearchResponse, error) {
	if c == nil {
		return SearchResponse{}, errors.New("opensubtitles: client is nil")
	}
	endpoint := c.base.JoinPath("subtitles")
	endpoint.RawQuery = req.values().Encode()

	var payload searchEnvelope
	if err := c.getJSON(ctx, "search", endpoint, &payload); err != nil {
		return SearchResponse{}, err
	}

	out := SearchResponse{
		Subtitles: make([]Subtitle, 0, len(payload.Data)),
		Total:     payload.Meta.Total,
	}
	for _, record := range payload.Data {
		if sub, ok := record.toSubtitle(); ok {
			out.Subtitles = append(out.Subtitles, sub)
		}
	}
	return out, nil
}

// Download negotiates a download link for fileID and fetches the payload.
func (c *Client) Download(ctx context.Context, fileID int64, opts DownloadOptions) (DownloadResult, error) {
	if c == nil {
		return DownloadResult{}, errors.New("opensubtitles: client is nil")
	}
	if fileID <= 0 {
		return DownloadResult{}, errors.New("opensubtitles: invalid file id")
	}
	grant, err := c.negotiate(ctx, fileID, opts.Format)
	if err != nil {
		return DownloadResult{}, err
	}
	link, err := c.resolveLink(grant.Link)
	if err != nil {
		return DownloadResult{}, err
	}
	data, err := c.fetchPayload(ctx, link)
	if err != nil {
		return DownloadResult{}, err
	}
	return DownloadResult{
		Data:        data,
		FileName:    grant.FileName,
		Language:    grant.Language,
		DownloadURL: link.String(),
	}, nil
}

// negotiate asks the API for a short-lived download link.
func (c *Client) negotiate(ctx context.Context, fileID int64, format string) (downloadGrant, error) {
	format = strings.TrimSpace(format)
	if format == "" {
		format = "srt"
	}
	body, err := json.Marshal(map[string]any{"file_id": fileID, "sub_format": format})
	if err != nil {
		return downloadGrant{}, fmt.Errorf("opensubtitles: encode download request: %w", err)
	}
	var grant downloadGrant
	if err := c.postJSON(ctx, "download", c.base.JoinPath("download"), body, &grant); err != nil {
		return downloadGrant{}, err
	}
	if grant.Link == "" {
		return downloadGrant{}, errors.New("opensubtitles: download response missing link")
	}
	return grant, nil
}

// resolveLink interprets a granted link relative to the API base, falling
// back to parsing it as absolute.
func (c *Client) resolveLink(link string) (*url.URL, error) {
	if resolved, err := c.base.Parse(link); err == nil {
		return resolved, nil
	}
	resolved, err := url.Parse(link)
	if err != nil {
		return nil, fmt.Errorf("opensubtitles: parse download url: %w", err)
	}
	return resolved, nil
}

// fetchPayload downloads the subtitle bytes from the granted link. The link
// usually points at a CDN, so only the user agent goes along.
func (c *Client) fetchPayload(ctx context.Context, link *url.URL) ([]byte, error) {
	resp, err := c.execute(ctx, "payload", func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, link.String(), nil)
		if err != nil {
			return nil, fmt.Errorf("opensubtitles: build payload request: %w", err)
		}
		req.Header.Set("User-Agent", c.userAgent)
		return req, nil
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, apiError("subtitle download", resp)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("opensubtitles: read subtitle payload: %w", err)
	}
	return data, nil
}

// getJSON issues an authenticated GET and decodes the JSON response.
func (c *Client) getJSON(ctx context.Context, op string, endpoint *url.URL, out any) error {
	resp, err := c.execute(ctx, op, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
		if err != nil {
			return nil, fmt.Errorf("opensubtitles: build %s request: %w", op, err)
		}
		c.authorize(req)
		return req, nil
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeJSON(op, resp, out)
}

// postJSON issues an authenticated POST with a JSON body and decodes the
// response.
func (c *Client) postJSON(ctx context.Context, op string, endpoint *url.URL, body []byte, out any) error {
	resp, err := c.execute(ctx, op, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("opensubtitles: build %s request: %w", op, err)
		}
		req.Header.Set("Content-Type", "application/json")
		c.authorize(req)
		return req, nil
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeJSON(op, resp, out)
}

// execute runs one request with pacing and retry. The build callback runs
// per attempt because request bodies cannot be reused.
func (c *Client) execute(ctx context.Context, op string, build func() (*http.Request, error)) (*http.Response, error) {
	backoff := initialBackoff
	for attempt := 0; ; attempt++ {
		if err := c.pace(ctx); err != nil {
			return nil, err
		}
		req, err := build()
		if err != nil {
			return nil, err
		}
		resp, err := c.http.Do(req)
		if err != nil {
			if attempt < maxRateRetries && retriableErr(err) {
				if sleepErr := sleepWithContext(ctx, backoff); sleepErr != nil {
					return nil, sleepErr
				}
				backoff = nextBackoff(backoff)
				continue
			}
			return nil, fmt.Errorf("opensubtitles: %s request failed: %w", op, err)
		}
		if retriableStatus(resp.StatusCode) && attempt < maxRateRetries {
			delay := retryDelay(resp, backoff)
			drainBody(resp)
			if sleepErr := sleepWithContext(ctx, delay); sleepErr != nil {
				return nil, sleepErr
			}
			backoff = nextBackoff(backoff)
			continue
		}
		return resp, nil
	}
}

// pace reserves the next request slot, keeping calls at least one interval
// apart across goroutines.
func (c *Client) pace(ctx context.Context) error {
	if c.interval <= 0 {
		return nil
	}
	c.mu.Lock()
	now := time.Now()
	slot := c.nextSlot
	if slot.Before(now) {
		slot = now
	}
	c.nextSlot = slot.Add(c.interval)
	c.mu.Unlock()
	return sleepWithContext(ctx, time.Until(slot))
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("Api-Key", c.apiKey)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if c.userToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.userToken)
	}
}

func decodeJSON(op string, resp *http.Response, out any) error {
	if resp.StatusCode >= 400 {
		return apiError(op, resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("opensubtitles: decode %s response: %w", op, err)
	}
	return nil
}

// apiError summarizes an error response, keeping at most 4 KB of the body.
func apiError(op string, resp *http.Response) error {
	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return fmt.Errorf("opensubtitles: %s failed (%s): %s", op, resp.Status, strings.TrimSpace(string(detail)))
}

func drainBody(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
}

// sanitizeIMDBID strips the tt prefix expected in IMDb identifiers and
// rejects values that are not numeric afterwards.
func sanitizeIMDBID(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	value = strings.TrimPrefix(value, "tt")
	if _, err := strconv.ParseInt(value, 10, 64); err != nil {
		return ""
	}
	return value
}

type searchEnvelope struct {
	Data []subtitleRecord `json:"data"`
	Meta struct {
		Total int `json:"total_count"`
	} `json:"meta"`
}

type subtitleRecord struct {
	ID         string `json:"id"`
	Attributes struct {
		Language          string `json:"language"`
		Release           string `json:"release"`
		DownloadCount     int    `json:"download_count"`
		HearingImpaired   bool   `json:"hearing_impaired"`
		HD                bool   `json:"hd"`
		AITranslated      bool   `json:"ai_translated"`
		MachineTranslated bool   `json:"machine_translated"`
		FeatureDetails    struct {
			Title string `json:"title"`
			Year  int    `json:"year"`
		} `json:"feature_details"`
		Files []struct {
			FileID int64 `json:"file_id"`
		} `json:"files"`
	} `json:"attributes"`
}

// toSubtitle maps a wire record onto the public shape. Records without a
// language or a downloadable file are unusable and dropped.
func (r subtitleRecord) toSubtitle() (Subtitle, bool) {
	attrs := r.Attributes
	if attrs.Language == "" || len(attrs.Files) == 0 || attrs.Files[0].FileID <= 0 {
		return Subtitle{}, false
	}
	return Subtitle{
		ID:              r.ID,
		FileID:          attrs.Files[0].FileID,
		Language:        attrs.Language,
		Release:         attrs.Release,
		FeatureTitle:    attrs.FeatureDetails.Title,
		FeatureYear:     attrs.FeatureDetails.Year,
		Downloads:       attrs.DownloadCount,
		HearingImpaired: attrs.HearingImpaired,
		HD:              attrs.HD,
		AITranslated:    attrs.AITranslated || attrs.MachineTranslated,
	}, true
}

type downloadGrant struct {
	Link     string `json:"link"`
	FileName string `json:"file_name"`
	Language string `json:"language"`
}
