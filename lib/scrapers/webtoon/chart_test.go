package webtoon

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := NewClient(ClientOptions{
		BaseUrl:       server.URL,
		MobileBaseUrl: server.URL + "/m",
		Pacer:         NopPacer{},
	})
	return client, server
}

func TestTryAPIEndpoints(t *testing.T) {
	var orders []string
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/webtoon/titlelist/weekday", r.URL.Path)
		orders = append(orders, r.URL.Query().Get("order"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"titleListMap": {"MONDAY": [{"titleId": 1, "titleName": "One"}]}}`))
	}))

	payload := client.TryAPIEndpoints(context.Background(), SortPopular)
	require.NotNil(t, payload)
	// the site spells the popularity order "user"
	require.Equal(t, []string{"user"}, orders)
	require.Equal(t, "popular", payload["_sort_type"])
	require.Contains(t, payload["_api_url"], "/api/webtoon/titlelist/weekday")
	require.Contains(t, payload, "titleListMap")
}

func TestTryAPIEndpointsFallsThroughOnRejection(t *testing.T) {
	calls := 0
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Query().Get("order") != "" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"titleList": [{"titleId": 2, "titleName": "Two"}]}`))
	}))

	payload := client.TryAPIEndpoints(context.Background(), SortView)
	require.NotNil(t, payload)
	require.Equal(t, 2, calls)
}

func TestTryAPIEndpointsExhausted(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	require.Nil(t, client.TryAPIEndpoints(context.Background(), SortView))
}

func TestFetchChartDocumentFromAPI(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"titleList": [{"titleId": 3, "titleName": "Three"}]}`))
	}))

	doc := client.FetchChartDocument(context.Background(), SortView)
	require.NotNil(t, doc)
	require.True(t, doc.FromAPI)
	require.Equal(t, "application/json", doc.ContentType)
	require.Equal(t, SortView, doc.Axis)
	require.Contains(t, doc.Body, DataScriptID)

	// Raw carries the payload itself, not the rendered wrapper
	var payload map[string]any
	require.NoError(t, json.Unmarshal(doc.Raw, &payload))
	require.Contains(t, payload, "titleList")
	require.Equal(t, "view", payload["_sort_type"])
	require.NotContains(t, string(doc.Raw), DataScriptID)

	entries := ParseDocument(doc.Body)
	require.Len(t, entries, 1)
	require.Equal(t, "3", entries[0].TitleID)
}

func TestFetchChartDocumentFallsBackToMobilePage(t *testing.T) {
	page := chartPage(12)
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/m/webtoon/weekday" {
			require.Contains(t, r.Header.Get("User-Agent"), "iPhone")
			require.Equal(t, "view", r.URL.Query().Get("sort"))
			w.Write([]byte(page))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))

	doc := client.FetchChartDocument(context.Background(), SortView)
	require.NotNil(t, doc)
	require.False(t, doc.FromAPI)
	require.Equal(t, "text/html", doc.ContentType)
	require.Equal(t, page, string(doc.Raw))
	require.Len(t, ParseDocument(doc.Body), 12)
}

func TestFetchChartDocumentAllStrategiesFail(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	require.Nil(t, client.FetchChartDocument(context.Background(), SortView))
}
