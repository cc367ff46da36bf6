package features

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdok/pointtiles/mapslicehelp"
)

func collect(t *testing.T, it Iterator) []Feature {
	t.Helper()
	defer func() {
		require.NoError(t, it.Close())
	}()
	var all []Feature
	for it.Next() {
		all = append(all, it.Feature())
	}
	require.NoError(t, it.Err())
	return all
}

func TestNewGeoJSONIterator_featureCollection(t *testing.T) {
	body := []byte(`{
		"type": "FeatureCollection",
		"features": [
			{"type": "Feature", "geometry": {"type": "Point", "coordinates": [4.9, 52.4]}, "properties": {"name": "a"}},
			{"type": "Feature", "geometry": {"type": "Point", "coordinates": [5.1, 52.1]}, "properties": {"name": "b"}}
		]
	}`)
	got := collect(t, NewGeoJSONIterator(body))
	require.Len(t, got, 2)
	assert.Equal(t, orb.Point{4.9, 52.4}, got[0].Geometry)
	name, _ := got[0].Attributes.Get("name")
	assert.Equal(t, "a", name)
	name, _ = got[1].Attributes.Get("name")
	assert.Equal(t, "b", name)
}

func TestNewGeoJSONIterator_singleFeature(t *testing.T) {
	body := []byte(`{"type": "Feature", "geometry": {"type": "Point", "coordinates": [1, 2]}, "properties": null}`)
	got := collect(t, NewGeoJSONIterator(body))
	require.Len(t, got, 1)
	assert.Equal(t, orb.Point{1, 2}, got[0].Geometry)
	assert.Equal(t, 0, got[0].Attributes.Len())
}

func TestNewGeoJSONIterator_keepsPropertyOrder(t *testing.T) {
	body := []byte(`{"type": "Feature", "geometry": {"type": "Point", "coordinates": [1, 2]},
		"properties": {"zulu": 1, "alpha": 2, "mike": 3}}`)
	got := collect(t, NewGeoJSONIterator(body))
	require.Len(t, got, 1)
	assert.Equal(t, []string{"zulu", "alpha", "mike"}, mapslicehelp.OrderedMapKeys(got[0].Attributes))
}

func TestNewGeoJSONIterator_errors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		reason string
	}{
		{"malformed json", `{"type": "FeatureCollection"`, "unexpected end"},
		{"not a feature", `{"type": "Polygon", "coordinates": []}`, `got type "Polygon"`},
		{"feature without geometry", `{"type": "FeatureCollection", "features": [{"type": "Feature", "geometry": null}]}`, "no geometry"},
		{"collection with non-feature entry", `{"type": "FeatureCollection", "features": [{"type": "Banana"}]}`, `got type "Banana"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it := NewGeoJSONIterator([]byte(tt.body))
			assert.False(t, it.Next())
			var invalid *InvalidGeoJSONError
			require.ErrorAs(t, it.Err(), &invalid)
			assert.Contains(t, invalid.Reason, tt.reason)
			assert.NotEmpty(t, invalid.Raw)
			assert.NoError(t, it.Close())
		})
	}
}
