package gbfs

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/02loveslollipop/bixi-station-insights/services/watcher/internal/models"
	"github.com/02loveslollipop/bixi-station-insights/services/watcher/internal/utils"
)

// Options configures a Client.
type Options struct {
	BaseURL  string
	Language string
	// ArchiveDir receives a verbatim copy of every successful response; empty disables it.
	ArchiveDir string
	Now        func() time.Time
}

// Client retrieves GBFS feeds over HTTP.
type Client struct {
	httpClient *http.Client
	baseURL    string
	language   string
	archiveDir string
	now        func() time.Time
}

// NewClient builds a feed client. The request timeout is the http.Client's.
func NewClient(httpClient *http.Client, opts Options) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		language:   strings.Trim(opts.Language, "/"),
		archiveDir: opts.ArchiveDir,
		now:        now,
	}
}

// URL returns the endpoint of feed, e.g. <base>/en/station_status.json.
func (c *Client) URL(feed Feed) string {
	if c.language == "" {
		return c.baseURL + "/" + feed.String() + ".json"
	}
	return c.baseURL + "/" + c.language + "/" + feed.String() + ".json"
}

// Fetch retrieves the raw JSON body of feed.
func (c *Client) Fetch(ctx context.Context, feed Feed) ([]byte, error) {
	if !feed.Valid() {
		return nil, &ConfigurationError{Setting: "feed", Value: feed.String(), Reason: "unknown feed"}
	}

	url := c.URL(feed)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{Feed: feed, URL: url, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{Feed: feed, URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &FetchError{Feed: feed, URL: url, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Feed: feed, URL: url, StatusCode: resp.StatusCode, Err: err}
	}

	if !json.Valid(body) {
		return nil, &MalformedFeedError{Feed: feed, Reason: "response is not valid JSON"}
	}

	if c.archiveDir != "" {
		if path, err := c.archive(feed, body); err != nil {
			log.Printf("archive %s failed: %v", feed, err)
		} else {
			log.Printf("archived %s to %s", feed, path)
		}
	}

	return body, nil
}

// StationInformation fetches and decodes the static station feed.
func (c *Client) StationInformation(ctx context.Context) (*models.StationInformationFeed, error) {
	return fetchJSON[models.StationInformationFeed](ctx, c, StationInformation)
}

// StationStatus fetches and decodes the live station feed.
func (c *Client) StationStatus(ctx context.Context) (*models.StationStatusFeed, error) {
	return fetchJSON[models.StationStatusFeed](ctx, c, StationStatus)
}

// SystemInformation fetches and decodes the operator metadata feed.
func (c *Client) SystemInformation(ctx context.Context) (*models.SystemInformationFeed, error) {
	return fetchJSON[models.SystemInformationFeed](ctx, c, SystemInformation)
}

// SystemAlerts fetches and decodes the service alerts feed.
func (c *Client) SystemAlerts(ctx context.Context) (*models.SystemAlertsFeed, error) {
	return fetchJSON[models.SystemAlertsFeed](ctx, c, SystemAlerts)
}

func fetchJSON[T any](ctx context.Context, c *Client, feed Feed) (*T, error) {
	body, err := c.Fetch(ctx, feed)
	if err != nil {
		return nil, err
	}

	content := new(T)
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(content); err != nil {
		return nil, &MalformedFeedError{Feed: feed, Reason: "decode payload", Err: err}
	}
	return content, nil
}

func (c *Client) archive(feed Feed, body []byte) (string, error) {
	if err := os.MkdirAll(c.archiveDir, 0o755); err != nil {
		return "", err
	}
	name := feed.String() + "_" + utils.FileTimestamp(c.now()) + ".json"
	path := filepath.Join(c.archiveDir, name)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
