package webtoon

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
)

// DataScriptID marks the script tag that carries an api payload embedded in
// a synthetic html document, so raw artifacts stay self-describing.
const DataScriptID = "webtoon-data"

type apiEndpoint struct {
	path   string
	params map[string]string
}

// endpointsFor ranks the known chart api endpoints for a sort axis, most
// specific first. The site calls the popularity order "user" internally.
func endpointsFor(axis SortAxis) []apiEndpoint {
	order := "view"
	if axis == SortPopular {
		order = "user"
	}
	return []apiEndpoint{
		{path: "/api/webtoon/titlelist/weekday", params: map[string]string{"order": order}},
		{path: "/api/webtoon/titlelist/weekday", params: nil},
	}
}

// Document is a fetched chart artifact plus enough provenance to persist it
// and to parse it again later.
type Document struct {
	// Body is either a synthetic html wrapper around the api payload or the
	// raw page markup.
	Body string
	// Raw is what goes to the artifact archive: the pure json payload for
	// api-sourced charts, the page bytes otherwise.
	Raw         []byte
	ContentType string
	Axis        SortAxis
	FromAPI     bool
}

// TryAPIEndpoints probes the chart apis in order and returns the first
// payload that decodes as a json object, tagged with its provenance.
// Returns nil when every endpoint fails.
func (c *Client) TryAPIEndpoints(ctx context.Context, axis SortAxis) map[string]any {
	ctx, span := tracer.Start(ctx, "TryAPIEndpoints")
	defer span.End()

	for _, endpoint := range endpointsFor(axis) {
		c.pacer.Wait(ctx, c.probeDelay)

		res, err := c.Http.R().
			SetContext(ctx).
			SetQueryParams(endpoint.params).
			Get(c.BaseUrl + endpoint.path)
		if err != nil {
			slog.WarnContext(ctx, "chart api probe failed",
				"path", endpoint.path, "err", err)
			continue
		}
		if res.StatusCode() != 200 {
			slog.WarnContext(ctx, "chart api probe rejected",
				"path", endpoint.path, "status", res.StatusCode())
			continue
		}

		var payload map[string]any
		if err := json.Unmarshal(res.Body(), &payload); err != nil {
			slog.WarnContext(ctx, "chart api returned non-json body",
				"path", endpoint.path, "err", err)
			continue
		}

		payload["_sort_type"] = string(axis)
		payload["_api_url"] = c.BaseUrl + endpoint.path
		payload["_api_params"] = endpoint.params
		return payload
	}
	return nil
}

// FetchChartDocument fetches the chart for one sort axis: api endpoints
// first, then the mobile page, then the desktop page. Returns nil when
// every strategy fails.
func (c *Client) FetchChartDocument(ctx context.Context, axis SortAxis) *Document {
	ctx, span := tracer.Start(ctx, "FetchChartDocument")
	defer span.End()

	if payload := c.TryAPIEndpoints(ctx, axis); payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			// payload came out of json.Unmarshal, so this cannot happen
			encoded = []byte("{}")
		}
		return &Document{
			Body:        wrapAPIPayload(encoded, axis),
			Raw:         encoded,
			ContentType: "application/json",
			Axis:        axis,
			FromAPI:     true,
		}
	}

	for _, page := range []struct {
		url       string
		userAgent string
	}{
		{c.MobileBaseUrl + "/webtoon/weekday?sort=" + url.QueryEscape(string(axis)), mobileUserAgent},
		{c.BaseUrl + "/webtoon?tab=" + url.QueryEscape(string(axis)), desktopUserAgent},
	} {
		c.pacer.Wait(ctx, c.probeDelay)

		res, err := c.Http.R().
			SetContext(ctx).
			SetHeader("User-Agent", page.userAgent).
			SetHeader("Accept", "text/html,application/xhtml+xml").
			Get(page.url)
		if err != nil {
			slog.WarnContext(ctx, "chart page fetch failed", "url", page.url, "err", err)
			continue
		}
		if res.StatusCode() != 200 || len(res.Body()) == 0 {
			slog.WarnContext(ctx, "chart page fetch rejected",
				"url", page.url, "status", res.StatusCode())
			continue
		}
		return &Document{
			Body:        string(res.Body()),
			Raw:         res.Body(),
			ContentType: "text/html",
			Axis:        axis,
		}
	}

	slog.WarnContext(ctx, "every chart fetch strategy failed", "axis", axis)
	return nil
}

// wrapAPIPayload embeds an encoded api payload in a minimal html document
// so all chart documents parse through the same entry point.
func wrapAPIPayload(encoded []byte, axis SortAxis) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<!-- Sort Type: %s -->\n", axis)
	b.WriteString("<!-- API Response -->\n")
	fmt.Fprintf(&b, "<script type='application/json' id='%s'>\n", DataScriptID)
	b.Write(encoded)
	b.WriteString("\n</script>")
	return b.String()
}
