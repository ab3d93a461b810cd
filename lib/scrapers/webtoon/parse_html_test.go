package webtoon

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func chartPage(n int) string {
	var b strings.Builder
	b.WriteString(`<html><body><ul class="list_toon">`)
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, `<li class="item">
			<a class="link" href="/webtoon/list?titleId=%d&tab=mon">
				<div class="info">
					<div class="title_box">Series %d</div>
					<span class="author">Author %d</span>
				</div>
			</a>
		</li>`, i*100, i, i)
	}
	b.WriteString(`</ul></body></html>`)
	return b.String()
}

func TestParseHTMLDocument(t *testing.T) {
	entries := ParseHTMLDocument(chartPage(12))
	require.Len(t, entries, 12)

	require.Equal(t, "100", entries[0].TitleID)
	require.Equal(t, "Series 1", entries[0].Title)
	require.Equal(t, "Author 1", entries[0].Author)
	require.Equal(t, 1, entries[0].Rank)
	require.Equal(t, 12, entries[11].Rank)
	require.Empty(t, entries[0].Weekday)
}

func TestParseHTMLDocumentRejectsImplausiblySmallMatches(t *testing.T) {
	// a handful of links is a nav bar, not the chart
	require.Nil(t, ParseHTMLDocument(chartPage(5)))
}

func TestParseHTMLDocumentSkipsItemsWithoutTitleID(t *testing.T) {
	page := strings.Replace(chartPage(12),
		`href="/webtoon/list?titleId=100&tab=mon"`,
		`href="/webtoon/list?titleId=&tab=mon"`, 1)
	entries := ParseHTMLDocument(page)
	require.Len(t, entries, 11)
	// rank keeps the element position, dropped items leave a hole
	require.Equal(t, 2, entries[0].Rank)
	require.Equal(t, "200", entries[0].TitleID)
}

func TestParseDocumentPrefersEmbeddedPayload(t *testing.T) {
	encoded, err := json.Marshal(map[string]any{
		"titleList": []any{
			map[string]any{"titleId": "77", "titleName": "Embedded"},
		},
	})
	require.NoError(t, err)
	body := wrapAPIPayload(encoded, SortView)

	entries := ParseDocument(body)
	require.Len(t, entries, 1)
	require.Equal(t, "77", entries[0].TitleID)
	require.Equal(t, "Embedded", entries[0].Title)
}

func TestParseDocumentFallsBackToMarkup(t *testing.T) {
	entries := ParseDocument(chartPage(12))
	require.Len(t, entries, 12)
}
