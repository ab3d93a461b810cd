package webtoon

import (
	"strings"

	"webtoon-pipeline/lib/textutil"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// parseDetailAPI fills detail from the article info payload.
func parseDetailAPI(payload map[string]any, detail *TitleDetail) {
	if count, ok := textutil.CoerceInt(payload["favoriteCount"]); ok {
		detail.FavoriteCount = &count
		detail.FavoriteCountSource = "api"
	}
	if finished, ok := textutil.CoerceBool(payload["finished"]); ok {
		detail.Finished = &finished
	}
	if rest, ok := textutil.CoerceBool(payload["rest"]); ok {
		detail.OnHiatus = &rest
	}

	if adParam, ok := payload["gfpAdCustomParam"].(map[string]any); ok {
		if genres, ok := adParam["genreTypes"].([]any); ok && len(genres) > 0 {
			// keep the site's spelling, downstream joins rely on
			// the exact label
			if genre := textutil.CoerceString(genres[0]); genre != "" {
				detail.Genre = genre
			}
		}
	}
	if curation, ok := payload["curationTagList"].([]any); ok {
		for _, entry := range curation {
			tag, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			if name := textutil.CoerceString(tag["tagName"]); name != "" {
				detail.Tags = append(detail.Tags, name)
			}
		}
	}
}

// episodeTotalCount pulls totalCount out of the episode list payload.
func episodeTotalCount(payload map[string]any) (float64, bool) {
	for _, scope := range []any{payload, payload["pageInfo"]} {
		fields, ok := scope.(map[string]any)
		if !ok {
			continue
		}
		if count, ok := fields["totalCount"].(float64); ok && count > 0 {
			return count, true
		}
	}
	return 0, false
}

// favoriteKeywords anchors the last-resort markup heuristic: a large
// grouped number sitting next to one of these labels is a favorite count.
var favoriteKeywords = []string{"관심", "찜", "favorite"}

// Thresholds below which a matched number is more likely an episode count
// or a rating tally than a favorite count.
const (
	minLabeledFavoriteCount  = 10_000
	minBareGroupedNumber     = 100_000
	maxKeywordMatchesChecked = 5
)

// ParseFavoriteCountHTML digs a favorite count out of title page markup.
// Three heuristics run in order of confidence: the dedicated counter
// element, any implausibly large grouped number, and numbers adjacent to a
// favorite-ish label. Returns nil if none of them fire.
func ParseFavoriteCountHTML(body string) *int64 {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil
	}

	var found *int64
	doc.Find(`span[class*="EpisodeListUser__count"]`).EachWithBreak(
		func(i int, s *goquery.Selection) bool {
			if count, ok := textutil.ParseGroupedInt(s.Text()); ok && count > minLabeledFavoriteCount {
				found = &count
				return false
			}
			return true
		})
	if found != nil {
		return found
	}

	doc.Find("span").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if count, ok := textutil.ParseGroupedInt(s.Text()); ok && count > minBareGroupedNumber {
			found = &count
			return false
		}
		return true
	})
	if found != nil {
		return found
	}

	for _, keyword := range favoriteKeywords {
		matches := 0
		doc.Find("*").EachWithBreak(func(i int, s *goquery.Selection) bool {
			if !strings.Contains(ownText(s), keyword) {
				return true
			}
			matches++
			s.Parent().Find("span").EachWithBreak(func(j int, sibling *goquery.Selection) bool {
				if count, ok := textutil.ParseGroupedInt(sibling.Text()); ok && count > minLabeledFavoriteCount {
					found = &count
					return false
				}
				return true
			})
			return found == nil && matches < maxKeywordMatchesChecked
		})
		if found != nil {
			return found
		}
	}
	return nil
}

// ownText is the element's direct text, children excluded.
func ownText(s *goquery.Selection) string {
	var b strings.Builder
	for _, node := range s.Nodes {
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			if child.Type == html.TextNode {
				b.WriteString(child.Data)
			}
		}
	}
	return b.String()
}
