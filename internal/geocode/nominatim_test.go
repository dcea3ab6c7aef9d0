package geocode

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const searchResponse = `[
  {"display_name":"Köln, Nordrhein-Westfalen, Deutschland","lat":"50.9384","lon":"6.9599",
   "geojson":{"type":"Polygon","coordinates":[[[6.77,50.83],[7.16,50.83],[7.16,51.08],[6.77,50.83]]]}},
  {"display_name":"Köln Hbf","lat":50.943,"lon":6.958,"geojson":null},
  {"display_name":"Kölner Dom","lat":"50.9413","lon":"6.9583"}
]`

func TestSuggest_RequestAndDecode(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(searchResponse))
	}))
	defer srv.Close()

	c := New(Config{Endpoint: srv.URL + "/", CountryCodes: "de", UserAgent: "test-agent"}, srv.Client())
	results, err := c.Suggest(context.Background(), "  Köln ")
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.Equal(t, "/search", got.URL.Path)
	q := got.URL.Query()
	assert.Equal(t, "Köln", q.Get("q"))
	assert.Equal(t, "jsonv2", q.Get("format"))
	assert.Equal(t, "7", q.Get("limit"))
	assert.Equal(t, "1", q.Get("polygon_geojson"))
	assert.Equal(t, "de", q.Get("countrycodes"))
	assert.Equal(t, "test-agent", got.Header.Get("User-Agent"))

	require.Len(t, results, 3)
	p, ok := results[0].Point()
	require.True(t, ok)
	assert.Equal(t, orb.Point{6.9599, 50.9384}, p)
	assert.True(t, results[0].HasOutline())

	assert.False(t, results[1].HasOutline(), "null geojson is no outline")
	assert.InDelta(t, 50.943, *results[1].Lat, 1e-9)
	assert.False(t, results[2].HasOutline())
}

func TestSuggest_Limit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(searchResponse))
	}))
	defer srv.Close()

	results, err := New(Config{Endpoint: srv.URL, Limit: 2}, srv.Client()).Suggest(context.Background(), "Köln")
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestSuggest_EmptyQuerySkipsLookup(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls++ }))
	defer srv.Close()

	results, err := New(Config{Endpoint: srv.URL}, srv.Client()).Suggest(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Zero(t, calls)
}

func TestSuggest_Errors(t *testing.T) {
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("q") {
		case "limited":
			http.Error(w, "slow down", http.StatusTooManyRequests)
		case "garbage":
			w.Write([]byte("<html>"))
		case "badcoord":
			w.Write([]byte(`[{"display_name":"x","lat":"north","lon":"1"}]`))
		}
	}))
	defer srv.Close()
	c := New(Config{Endpoint: srv.URL}, srv.Client())

	_, err := c.Suggest(ctx, "limited")
	assert.ErrorContains(t, err, "429")
	_, err = c.Suggest(ctx, "garbage")
	assert.ErrorContains(t, err, "decode")
	_, err = c.Suggest(ctx, "badcoord")
	assert.Error(t, err)
}

func TestSuggestion_JSON(t *testing.T) {
	lat, lon := 50.9, 6.9
	b, err := json.Marshal(Suggestion{DisplayName: "x", Lat: &lat, Lon: &lon})
	require.NoError(t, err)
	assert.JSONEq(t, `{"display_name":"x","lat":50.9,"lon":6.9}`, string(b))

	_, ok := Suggestion{DisplayName: "no point"}.Point()
	assert.False(t, ok)
}
