package webtoon

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// TitleDetail is everything a per-title collection pass can learn about one
// webtoon. Pointer fields stay nil when the source did not expose the value.
type TitleDetail struct {
	TitleID       string
	FavoriteCount *int64
	// FavoriteCountSource records where the count came from, "api" or "html".
	FavoriteCountSource string
	Finished            *bool
	OnHiatus            *bool
	TotalEpisodeCount   *float64
	Genre               string
	Tags                []string
}

const detailRequestTimeout = time.Second * 10

// FetchTitleDetail collects stats for one title: the detail api first, page
// markup as a fallback, plus a best-effort episode count. Returns nil when
// nothing at all could be learned.
func (c *Client) FetchTitleDetail(ctx context.Context, titleID string, allowHTMLFallback bool) *TitleDetail {
	ctx, span := tracer.Start(ctx, "FetchTitleDetail")
	defer span.End()

	detail := &TitleDetail{TitleID: titleID}
	found := false

	payload := c.fetchDetailJSON(ctx, "/api/article/list/info", titleID)
	if payload != nil {
		parseDetailAPI(payload, detail)
		found = detail.FavoriteCount != nil || detail.Finished != nil ||
			detail.OnHiatus != nil || detail.Genre != "" || len(detail.Tags) > 0
	}

	// a successful info api call is authoritative, even when it carries no
	// favorite count; markup is only consulted when the api itself failed
	if payload == nil && allowHTMLFallback {
		if body := c.fetchDetailPage(ctx, titleID); body != "" {
			if count := ParseFavoriteCountHTML(body); count != nil {
				detail.FavoriteCount = count
				detail.FavoriteCountSource = "html"
				found = true
			}
		}
	}

	if payload := c.fetchDetailJSON(ctx, "/api/article/list", titleID); payload != nil {
		if count, ok := episodeTotalCount(payload); ok {
			detail.TotalEpisodeCount = &count
			found = true
		}
	}

	if !found {
		slog.WarnContext(ctx, "no detail source yielded data", "titleId", titleID)
		return nil
	}
	return detail
}

func (c *Client) fetchDetailJSON(ctx context.Context, path string, titleID string) map[string]any {
	ctx, cancel := context.WithTimeout(ctx, detailRequestTimeout)
	defer cancel()

	res, err := c.Http.R().
		SetContext(ctx).
		SetQueryParam("titleId", titleID).
		Get(c.BaseUrl + path)
	if err != nil {
		slog.WarnContext(ctx, "detail api fetch failed",
			"path", path, "titleId", titleID, "err", err)
		return nil
	}
	if res.StatusCode() != 200 {
		slog.WarnContext(ctx, "detail api fetch rejected",
			"path", path, "titleId", titleID, "status", res.StatusCode())
		return nil
	}

	var payload map[string]any
	if err := json.Unmarshal(res.Body(), &payload); err != nil {
		slog.WarnContext(ctx, "detail api returned non-json body",
			"path", path, "titleId", titleID, "err", err)
		return nil
	}
	return payload
}

func (c *Client) fetchDetailPage(ctx context.Context, titleID string) string {
	ctx, cancel := context.WithTimeout(ctx, detailRequestTimeout)
	defer cancel()

	res, err := c.Http.R().
		SetContext(ctx).
		SetHeader("Accept", "text/html,application/xhtml+xml").
		SetQueryParam("titleId", titleID).
		Get(c.BaseUrl + "/webtoon/list")
	if err != nil || res.StatusCode() != 200 {
		slog.WarnContext(ctx, "detail page fetch failed", "titleId", titleID)
		return ""
	}
	return string(res.Body())
}
