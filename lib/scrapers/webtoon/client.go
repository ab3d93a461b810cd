package webtoon

import (
	"context"
	"net/http"
	"time"

	"webtoon-pipeline/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("scrapers/webtoon")

// SortAxis is one of the independent ranking orders the chart can be
// requested in.
type SortAxis string

const (
	SortPopular SortAxis = "popular"
	SortView    SortAxis = "view"
)

var KnownAxes = []SortAxis{SortPopular, SortView}

const desktopUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/143.0.0.0 Safari/537.36"
const mobileUserAgent = "Mozilla/5.0 (iPhone; CPU iPhone OS 14_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/14.0 Mobile/15E148 Safari/604.1"

// Pacer is the politeness delay hook. The default implementation sleeps;
// tests inject a no-op so they do not burn wall-clock time.
type Pacer interface {
	Wait(ctx context.Context, d time.Duration)
}

type sleepPacer struct{}

func (sleepPacer) Wait(ctx context.Context, d time.Duration) {
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}

// SleepPacer waits for real.
var SleepPacer Pacer = sleepPacer{}

// NopPacer returns immediately.
type NopPacer struct{}

func (NopPacer) Wait(ctx context.Context, d time.Duration) {}

type Client struct {
	// BaseUrl hosts the desktop site and the json APIs
	BaseUrl string
	// MobileBaseUrl hosts the simpler mobile markup used as a fallback
	MobileBaseUrl string
	Http          *resty.Client

	pacer      Pacer
	probeDelay time.Duration
}

type ClientOptions struct {
	BaseUrl       string
	MobileBaseUrl string
	// Pacer defaults to SleepPacer
	Pacer Pacer
	// ProbeDelay is slept before every endpoint probe, default 1s
	ProbeDelay time.Duration
}

// NewClient builds the scraping session: browser-shaped headers, automatic
// retry on transient statuses and the cloudflare bypass transport.
func NewClient(opts ClientOptions) *Client {
	if opts.BaseUrl == "" {
		opts.BaseUrl = "https://comic.naver.com"
	}
	if opts.MobileBaseUrl == "" {
		opts.MobileBaseUrl = "https://m.comic.naver.com"
	}
	if opts.Pacer == nil {
		opts.Pacer = SleepPacer
	}
	if opts.ProbeDelay == 0 {
		opts.ProbeDelay = time.Second
	}

	client := resty.New()
	client.SetHeaders(map[string]string{
		"User-Agent":      desktopUserAgent,
		"Accept":          "application/json, text/plain, */*",
		"Accept-Language": "ko,en-US;q=0.9,en;q=0.8",
		"Referer":         opts.BaseUrl + "/webtoon",
		"Sec-Fetch-Dest":  "empty",
		"Sec-Fetch-Mode":  "cors",
		"Sec-Fetch-Site":  "same-origin",
		"DNT":             "1",
	})
	client.SetTimeout(time.Second * 30)
	client.SetRetryCount(3)
	client.SetRetryWaitTime(time.Second)
	client.SetRetryMaxWaitTime(time.Second * 10)
	client.AddRetryCondition(func(res *resty.Response, err error) bool {
		if res == nil || res.Request.Method != http.MethodGet {
			return false
		}
		switch res.StatusCode() {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
		return false
	})
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	telemetry.InstrumentResty(client, "scrapers/webtoon/http")

	return &Client{
		BaseUrl:       opts.BaseUrl,
		MobileBaseUrl: opts.MobileBaseUrl,
		Http:          client,
		pacer:         opts.Pacer,
		probeDelay:    opts.ProbeDelay,
	}
}
