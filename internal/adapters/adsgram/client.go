// Package adsgram talks to the ad network: placement stats, ad descriptors
// and tracking beacons.
package adsgram

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

	"github.com/bnema/whitebunny-cli/internal/adapters/httpclient"
	"github.com/bnema/whitebunny-cli/internal/domain"
	"github.com/bnema/whitebunny-cli/internal/ports"
)

const (
	DefaultBaseURL   = "https://api.adsgram.ai"
	DefaultAdPath    = "/adv"
	DefaultStatsPath = "/stats"

	maxAdResponseBytes = 1 << 20
)

var ErrNoAd = errors.New("no ad available for placement")

type API struct {
	BaseURL   string
	AdPath    string
	StatsPath string
}

type Placement struct {
	BlockID    string
	UserID     string
	TGPlatform string
	Platform   string
	Language   string
	Premium    bool
}

type Client struct {
	API            API
	Placement      Placement
	HTTPClient     *http.Client
	Headers        http.Header
	RequestTimeout time.Duration
}

var _ ports.AdNetwork = Client{}

type namedValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type bannerPayload struct {
	BannerAssets []namedValue `json:"bannerAssets"`
	Trackings    []namedValue `json:"trackings"`
	Duration     float64      `json:"duration"`
}

type adResponse struct {
	CampaignID flexibleID     `json:"campaignId"`
	BannerID   flexibleID     `json:"bannerId"`
	Banner     *bannerPayload `json:"banner"`
}

// flexibleID accepts both numeric and string identifiers.
type flexibleID string

func (id *flexibleID) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*id = ""
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*id = flexibleID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return err
	}
	*id = flexibleID(n.String())
	return nil
}

func (c Client) FetchAd(ctx context.Context) (domain.AdDescriptor, error) {
	endpoint, err := c.endpoint(c.API.AdPath, DefaultAdPath)
	if err != nil {
		return domain.AdDescriptor{}, err
	}

	resp, err := c.do(ctx, http.MethodGet, endpoint+"?"+c.placementQuery().Encode())
	if err != nil {
		return domain.AdDescriptor{}, fmt.Errorf("%w: fetch ad: %w", domain.ErrNetwork, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNoContent {
		return domain.AdDescriptor{}, fmt.Errorf("%w: %w", domain.ErrNetwork, ErrNoAd)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return domain.AdDescriptor{}, fmt.Errorf("%w: fetch ad: status %d", domain.ErrNetwork, resp.StatusCode)
	}

	var payload adResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxAdResponseBytes)).Decode(&payload); err != nil {
		return domain.AdDescriptor{}, fmt.Errorf("%w: decode ad response: %v", domain.ErrProtocol, err)
	}
	if payload.Banner == nil || len(payload.Banner.Trackings) == 0 {
		return domain.AdDescriptor{}, fmt.Errorf("%w: invalid ad data received", domain.ErrProtocol)
	}

	return toDescriptor(payload), nil
}

func toDescriptor(payload adResponse) domain.AdDescriptor {
	assets := make(map[string]string, len(payload.Banner.BannerAssets))
	for _, asset := range payload.Banner.BannerAssets {
		assets[asset.Name] = asset.Value
	}

	beacons := make(map[domain.BeaconKind]string, len(payload.Banner.Trackings))
	for _, tracking := range payload.Banner.Trackings {
		if tracking.Name == "" {
			continue
		}
		beacons[domain.BeaconKind(tracking.Name)] = tracking.Value
	}

	advertiser := assets["advertiser"]
	if advertiser == "" {
		advertiser = assets["domain"]
	}

	var duration time.Duration
	if payload.Banner.Duration > 0 {
		duration = time.Duration(payload.Banner.Duration * float64(time.Second))
	}

	return domain.AdDescriptor{
		Title:       assets["title"],
		Description: assets["description"],
		Advertiser:  advertiser,
		CampaignID:  string(payload.CampaignID),
		BannerID:    string(payload.BannerID),
		Duration:    duration,
		Beacons:     beacons,
	}
}

// Beacon fires a tracking URL and checks only the status code.
func (c Client) Beacon(ctx context.Context, target string) error {
	if strings.TrimSpace(target) == "" {
		return fmt.Errorf("%w: beacon url is empty", domain.ErrProtocol)
	}

	resp, err := c.do(ctx, http.MethodGet, target)
	if err != nil {
		return fmt.Errorf("%w: beacon: %w", domain.ErrNetwork, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxAdResponseBytes))

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%w: beacon: status %d", domain.ErrNetwork, resp.StatusCode)
	}
	return nil
}

func (c Client) ReportStats(ctx context.Context) error {
	endpoint, err := c.endpoint(c.API.StatsPath, DefaultStatsPath)
	if err != nil {
		return err
	}

	return c.Beacon(ctx, endpoint+"?"+c.placementQuery().Encode())
}

func (c Client) placementQuery() url.Values {
	values := url.Values{}
	values.Set("blockId", c.Placement.BlockID)
	values.Set("tg_id", c.Placement.UserID)
	values.Set("tg_platform", valueOr(c.Placement.TGPlatform, "tdesktop"))
	values.Set("platform", valueOr(c.Placement.Platform, "Win32"))
	values.Set("language", valueOr(c.Placement.Language, "en"))
	values.Set("is_premium", strconv.FormatBool(c.Placement.Premium))
	return values
}

func (c Client) do(ctx context.Context, method, target string) (*http.Response, error) {
	requestCtx, cancel := c.requestContext(ctx)

	req, err := http.NewRequestWithContext(requestCtx, method, target, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpclient.Apply(req, c.headers())

	resp, err := c.httpClient().Do(req)
	if err != nil {
		cancel()
		return nil, err
	}
	resp.Body = cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c cancelOnClose) Close() error {
	defer c.cancel()
	return c.ReadCloser.Close()
}

func (c Client) endpoint(path, fallback string) (string, error) {
	base := valueOr(c.API.BaseURL, DefaultBaseURL)
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse ad network base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", errors.New("ad network base url must use http or https")
	}
	if parsed.Host == "" {
		return "", errors.New("ad network base url host is required")
	}

	endpoint, err := parsed.Parse(valueOr(path, fallback))
	if err != nil {
		return "", fmt.Errorf("parse ad network path: %w", err)
	}
	return endpoint.String(), nil
}

func (c Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c Client) headers() http.Header {
	if c.Headers != nil {
		return c.Headers
	}
	return httpclient.BrowserHeaders()
}

func (c Client) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}

	timeout := c.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}

func valueOr(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
