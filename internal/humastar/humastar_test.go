package humastar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-aoi/internal/templates"
)

func TestParseSignals(t *testing.T) {
	s, err := ParseSignals([]byte(`{
		"sid":"tab-1","pick":2,"zoom":12.5,
		"ids":["shape-1",3,"shape-2"],
		"geometry":{"type":"Point","coordinates":[7,51]},
		"outline":null
	}`))
	require.NoError(t, err)

	assert.Equal(t, "tab-1", s.String("sid"))
	assert.Equal(t, 2, s.Int("pick"))
	assert.Equal(t, 12.5, s.Float("zoom"))
	assert.Equal(t, []string{"shape-1", "shape-2"}, s.Strings("ids"))
	assert.JSONEq(t, `{"type":"Point","coordinates":[7,51]}`, string(s.Raw("geometry")))
	assert.Nil(t, s.Raw("outline"))
	assert.True(t, s.Has("outline"))

	assert.Empty(t, s.String("pick"), "wrong type reads as zero")
	assert.Zero(t, s.Int("missing"))
	assert.False(t, s.Has("missing"))
}

func TestParseSignals_EmptyAndInvalid(t *testing.T) {
	s, err := ParseSignals([]byte("  "))
	require.NoError(t, err)
	assert.Empty(t, s)

	in := SignalsInput{RawBody: []byte("{nope")}
	_, err = in.MustParse()
	assert.ErrorContains(t, err, "Invalid request data")
}

func TestRenderList(t *testing.T) {
	r, err := templates.Embedded()
	require.NoError(t, err)

	html := RenderList(r, "toast", nil, "Nothing saved", "Draw an area first")
	assert.Contains(t, html, "Nothing saved")
	assert.Contains(t, html, "Draw an area first")

	html = RenderList(r, "toast", []any{
		map[string]string{"Level": "success", "Message": "Area saved"},
	}, "", "")
	assert.Contains(t, html, `toast-success`)
	assert.Contains(t, html, "Area saved")

	assert.Empty(t, RenderList(nil, "toast", nil, "x", "y"))
}

func TestAction_LinkHeader(t *testing.T) {
	a := Action{Rel: "delete", Href: "/api/v1/aois/a1", Method: "DELETE", Title: "Delete area"}
	assert.Equal(t, `</api/v1/aois/a1>; rel="delete"; method="DELETE"; title="Delete area"`, a.LinkHeader())
	assert.Equal(t, `</x>; rel="self"`, Action{Rel: "self", Href: "/x"}.LinkHeader())
}
