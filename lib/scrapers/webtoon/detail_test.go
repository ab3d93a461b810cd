package webtoon

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFetchTitleDetailFromAPI(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "183559", r.URL.Query().Get("titleId"))
		switch r.URL.Path {
		case "/api/article/list/info":
			w.Write([]byte(`{
				"favoriteCount": 567890,
				"finished": true,
				"rest": false,
				"gfpAdCustomParam": {"genreTypes": ["ACTION"]},
				"curationTagList": [{"tagName": "#먼치킨"}]
			}`))
		case "/api/article/list":
			w.Write([]byte(`{"totalCount": 412}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	detail := client.FetchTitleDetail(context.Background(), "183559", true)
	require.NotNil(t, detail)
	require.Equal(t, "183559", detail.TitleID)
	require.Equal(t, int64(567890), *detail.FavoriteCount)
	require.Equal(t, "api", detail.FavoriteCountSource)
	require.True(t, *detail.Finished)
	require.False(t, *detail.OnHiatus)
	require.Equal(t, "ACTION", detail.Genre)
	require.Equal(t, []string{"#먼치킨"}, detail.Tags)
	require.Equal(t, float64(412), *detail.TotalEpisodeCount)
}

func TestFetchTitleDetailFallsBackToMarkup(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/webtoon/list":
			w.Write([]byte(`<html><body>
				<span class="EpisodeListUser__count--x">234,567</span>
			</body></html>`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	detail := client.FetchTitleDetail(context.Background(), "1", true)
	require.NotNil(t, detail)
	require.Equal(t, int64(234567), *detail.FavoriteCount)
	require.Equal(t, "html", detail.FavoriteCountSource)
	require.Nil(t, detail.TotalEpisodeCount)
}

func TestFetchTitleDetailAPISuccessSkipsMarkup(t *testing.T) {
	htmlFetched := false
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/article/list/info":
			// a 200 with no favoriteCount is still an authoritative answer
			w.Write([]byte(`{"finished": true}`))
		case "/webtoon/list":
			htmlFetched = true
			w.Write([]byte(`<html><body><span>999,999</span></body></html>`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	detail := client.FetchTitleDetail(context.Background(), "1", true)
	require.NotNil(t, detail)
	require.True(t, *detail.Finished)
	require.Nil(t, detail.FavoriteCount)
	require.Empty(t, detail.FavoriteCountSource)
	require.False(t, htmlFetched)
}

func TestFetchTitleDetailMarkupFallbackDisabled(t *testing.T) {
	htmlFetched := false
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/webtoon/list" {
			htmlFetched = true
		}
		w.WriteHeader(http.StatusNotFound)
	}))

	require.Nil(t, client.FetchTitleDetail(context.Background(), "1", false))
	require.False(t, htmlFetched)
}

func TestFetchTitleDetailNothingLearned(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	require.Nil(t, client.FetchTitleDetail(context.Background(), "1", true))
}

func TestFetchTitleDetailEpisodeCountAloneCounts(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/article/list" {
			w.Write([]byte(`{"pageInfo": {"totalCount": 55}}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))

	detail := client.FetchTitleDetail(context.Background(), "1", true)
	require.NotNil(t, detail)
	require.Nil(t, detail.FavoriteCount)
	require.Equal(t, float64(55), *detail.TotalEpisodeCount)
}
