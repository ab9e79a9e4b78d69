package adsgram

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bnema/whitebunny-cli/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const adBody = `{
  "campaignId": 9001,
  "bannerId": "b-77",
  "banner": {
    "duration": 20,
    "bannerAssets": [
      {"name": "title", "value": "Bunny Boost"},
      {"name": "description", "value": "Tap faster"},
      {"name": "advertiser", "value": "Carrot Inc"}
    ],
    "trackings": [
      {"name": "render", "value": "https://track.example/render"},
      {"name": "show", "value": "https://track.example/show"},
      {"name": "reward", "value": "https://track.example/reward"}
    ]
  }
}`

func newTestClient(server *httptest.Server) Client {
	return Client{
		API:        API{BaseURL: server.URL},
		Placement:  Placement{BlockID: "1440", UserID: "42", Premium: true},
		HTTPClient: server.Client(),
	}
}

func TestFetchAdParsesDescriptor(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/adv", r.URL.Path)
		query := r.URL.Query()
		assert.Equal(t, "1440", query.Get("blockId"))
		assert.Equal(t, "42", query.Get("tg_id"))
		assert.Equal(t, "tdesktop", query.Get("tg_platform"))
		assert.Equal(t, "Win32", query.Get("platform"))
		assert.Equal(t, "en", query.Get("language"))
		assert.Equal(t, "true", query.Get("is_premium"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(adBody))
	}))
	t.Cleanup(server.Close)

	ad, err := newTestClient(server).FetchAd(context.Background())
	require.NoError(t, err)
	require.NoError(t, ad.Validate())
	assert.Equal(t, "Bunny Boost", ad.Title)
	assert.Equal(t, "Tap faster", ad.Description)
	assert.Equal(t, "Carrot Inc", ad.Advertiser)
	assert.Equal(t, "9001", ad.CampaignID)
	assert.Equal(t, "b-77", ad.BannerID)
	assert.Equal(t, 20*time.Second, ad.Duration)
	assert.Equal(t, "https://track.example/reward", ad.Beacon(domain.BeaconReward))
}

func TestFetchAdRejectsMissingBanner(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"campaignId":1}`))
	}))
	t.Cleanup(server.Close)

	_, err := newTestClient(server).FetchAd(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrProtocol))
}

func TestFetchAdMapsStatusErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		target error
	}{
		{name: "no content", status: http.StatusNoContent, target: ErrNoAd},
		{name: "server error", status: http.StatusInternalServerError, target: domain.ErrNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			t.Cleanup(server.Close)

			_, err := newTestClient(server).FetchAd(context.Background())
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.target))
		})
	}
}

func TestBeaconChecksStatus(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path == "/broken" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	t.Cleanup(server.Close)

	client := newTestClient(server)
	require.NoError(t, client.Beacon(context.Background(), server.URL+"/render"))

	err := client.Beacon(context.Background(), server.URL+"/broken")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNetwork))
	assert.True(t, domain.IsRetryable(err))

	err = client.Beacon(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestReportStatsUsesPlacementQuery(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/stats", r.URL.Path)
		assert.Equal(t, "1440", r.URL.Query().Get("blockId"))
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(server.Close)

	require.NoError(t, newTestClient(server).ReportStats(context.Background()))
}

func TestRequestTimesOutWithoutCallerDeadline(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
	}))
	t.Cleanup(server.Close)

	client := newTestClient(server)
	client.RequestTimeout = 20 * time.Millisecond

	err := client.Beacon(context.Background(), server.URL+"/slow")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNetwork))
}
