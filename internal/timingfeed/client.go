package timingfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/Tiliavir/rally-results/internal/config"
)

// maxPages bounds pagination in case a feed keeps returning next_page.
const maxPages = 1000

// Client is an authenticated timing feed API client.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient returns a client that authenticates with the OAuth2 client
// credentials flow described by cfg. Tokens are fetched and refreshed on
// demand.
func NewClient(ctx context.Context, cfg config.FeedConfig) *Client {
	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		Scopes:       cfg.Scopes,
	}
	return NewClientWithHTTP(cfg.BaseURL, cc.Client(ctx))
}

// NewClientWithHTTP returns a client using hc as-is.
func NewClientWithHTTP(baseURL string, hc *http.Client) *Client {
	return &Client{httpClient: hc, baseURL: strings.TrimRight(baseURL, "/")}
}

// Split is one stage time reported by the feed.
type Split struct {
	ID            string  `json:"id"`
	Driver        string  `json:"driver"`
	Car           string  `json:"car"`
	CarClass      string  `json:"car_class"`
	Stage         string  `json:"stage"`
	StageLengthKM float64 `json:"stage_length_km"`
	StageNumber   string  `json:"stage_number"`
	Time          string  `json:"time"`
}

// splitsPage is one page of the splits endpoint. NextPage is 0 on the last page.
type splitsPage struct {
	Splits   []Split `json:"splits"`
	NextPage int     `json:"next_page"`
}

// Splits fetches every split of event, following pagination.
func (c *Client) Splits(ctx context.Context, event string) ([]Split, error) {
	var all []Split
	for page, n := 1, 0; page != 0; n++ {
		if n >= maxPages {
			return nil, fmt.Errorf("timing feed: more than %d pages", maxPages)
		}
		p, err := c.splitsPage(ctx, event, page)
		if err != nil {
			return nil, err
		}
		all = append(all, p.Splits...)
		page = p.NextPage
	}
	return all, nil
}

func (c *Client) splitsPage(ctx context.Context, event string, page int) (splitsPage, error) {
	endpoint := fmt.Sprintf("%s/events/%s/splits?page=%s",
		c.baseURL,
		url.PathEscape(event),
		strconv.Itoa(page),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return splitsPage{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return splitsPage{}, fmt.Errorf("timing feed request failed: %w", err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return splitsPage{}, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return splitsPage{}, fmt.Errorf("timing feed error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var p splitsPage
	if err := json.Unmarshal(body, &p); err != nil {
		return splitsPage{}, fmt.Errorf("decoding timing feed response: %w", err)
	}
	return p, nil
}
