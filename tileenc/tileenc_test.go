package tileenc

import (
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdok/pointtiles/features"
	"github.com/pdok/pointtiles/rollup"
	"github.com/pdok/pointtiles/tileaddr"
)

func testEncoder() *Encoder {
	return NewEncoder(slog.Default())
}

func agg(px, py, count int, attrs ...string) rollup.Aggregate {
	attributes := features.NewAttributes()
	for i := 0; i+1 < len(attrs); i += 2 {
		attributes.Set(attrs[i], attrs[i+1])
	}
	return rollup.Aggregate{Pixel: tileaddr.Pixel{px, py}, Count: count, Attributes: attributes}
}

func TestLookup(t *testing.T) {
	for _, extension := range []string{"pbf", "bpbf", "txt", "wkb"} {
		format, ok := Lookup(extension)
		assert.True(t, ok, extension)
		assert.Equal(t, extension, format.Extension)
		assert.NotEmpty(t, format.ContentType)
	}
	_, ok := Lookup("png")
	assert.False(t, ok)
	_, ok = Lookup("")
	assert.False(t, ok)
}

func TestEncoder_mvt(t *testing.T) {
	format, _ := Lookup("pbf")
	data, err := testEncoder().Encode(format, []rollup.Aggregate{agg(4, 4, 2, "name", "a")})
	require.NoError(t, err)

	layers, err := mvt.Unmarshal(data)
	require.NoError(t, err)
	require.Len(t, layers, 1)
	layer := layers[0]
	assert.Equal(t, PointLayerName, layer.Name)
	assert.EqualValues(t, layerVersion, layer.Version)
	assert.EqualValues(t, Extent, layer.Extent)
	require.Len(t, layer.Features, 1)
	feature := layer.Features[0]
	assert.Equal(t, orb.Point{4 * PixelResolution, 4 * PixelResolution}, feature.Geometry)
	assert.Equal(t, "a", feature.Properties["name"])
	assert.EqualValues(t, 2, feature.Properties[CountKey])
}

func TestEncoder_base64MVT(t *testing.T) {
	aggs := []rollup.Aggregate{agg(1, 2, 1)}
	pbf, _ := Lookup("pbf")
	bpbf, _ := Lookup("bpbf")
	binary, err := testEncoder().Encode(pbf, aggs)
	require.NoError(t, err)
	encoded, err := testEncoder().Encode(bpbf, aggs)
	require.NoError(t, err)
	decoded, err := base64.StdEncoding.DecodeString(string(encoded))
	require.NoError(t, err)
	assert.Equal(t, binary, decoded)
}

func TestEncoder_text(t *testing.T) {
	format, _ := Lookup("txt")
	data, err := testEncoder().Encode(format, []rollup.Aggregate{agg(4, 4, 2, "name", "a")})
	require.NoError(t, err)
	assert.Equal(t, "layer=main geom=POINT(4 4) attrs={\"count\":2,\"name\":\"a\"}\n", string(data))
}

func TestEncoder_textIsDeterministic(t *testing.T) {
	format, _ := Lookup("txt")
	aggs := []rollup.Aggregate{
		agg(200, 1, 1, "name", "c"),
		agg(4, 4, 2, "name", "a"),
		agg(4, 4, 1, "name", "b"),
	}
	reversed := []rollup.Aggregate{aggs[2], aggs[1], aggs[0]}
	first, err := testEncoder().Encode(format, aggs)
	require.NoError(t, err)
	second, err := testEncoder().Encode(format, reversed)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	want := "layer=main geom=POINT(200 1) attrs={\"count\":1,\"name\":\"c\"}\n" +
		"layer=main geom=POINT(4 4) attrs={\"count\":1,\"name\":\"b\"}\n" +
		"layer=main geom=POINT(4 4) attrs={\"count\":2,\"name\":\"a\"}\n"
	assert.Equal(t, want, string(first))
}

func TestEncoder_wkbBundleWithMultipleFeatures(t *testing.T) {
	format, _ := Lookup("wkb")
	aggs := []rollup.Aggregate{
		agg(4, 4, 2, "name", "a"),
		agg(200, 1, 1, "name", "c"),
	}
	data, err := testEncoder().Encode(format, aggs)
	require.NoError(t, err)

	var bundle map[string][]BundleFeature
	require.NoError(t, json.Unmarshal(data, &bundle))
	assert.Len(t, bundle[PointLayerName], 2)
}

func TestEncoder_wkbBundle(t *testing.T) {
	format, _ := Lookup("wkb")
	data, err := testEncoder().Encode(format, []rollup.Aggregate{agg(4, 4, 2, "name", "a")})
	require.NoError(t, err)

	var bundle map[string][]BundleFeature
	require.NoError(t, json.Unmarshal(data, &bundle))
	require.Len(t, bundle[PointLayerName], 1)
	feature := bundle[PointLayerName][0]

	geometryBytes, err := base64.StdEncoding.DecodeString(feature.WKB)
	require.NoError(t, err)
	geometry, err := wkb.Unmarshal(geometryBytes)
	require.NoError(t, err)
	assert.Equal(t, orb.Point{4, 4}, geometry)

	attrBytes, err := base64.StdEncoding.DecodeString(feature.Attributes)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name": "a", "count": 2}`, string(attrBytes))
}

func TestEncoder_emptyInput(t *testing.T) {
	for _, extension := range []string{"pbf", "bpbf", "txt", "wkb"} {
		t.Run(extension, func(t *testing.T) {
			format, _ := Lookup(extension)
			data, err := testEncoder().Encode(format, nil)
			require.NoError(t, err)
			switch extension {
			case "pbf", "bpbf":
				if extension == "bpbf" {
					var decodeErr error
					data, decodeErr = base64.StdEncoding.DecodeString(string(data))
					require.NoError(t, decodeErr)
				}
				layers, err := mvt.Unmarshal(data)
				require.NoError(t, err)
				total := 0
				for _, layer := range layers {
					total += len(layer.Features)
				}
				assert.Zero(t, total)
			case "txt":
				assert.Empty(t, data)
			case "wkb":
				assert.JSONEq(t, `{}`, string(data))
			}
		})
	}
}
