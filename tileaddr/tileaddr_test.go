package tileaddr

import (
	"fmt"
	"testing"

	"github.com/pdok/pointtiles/mercator"
	"github.com/stretchr/testify/assert"
)

func TestNew_bounds(t *testing.T) {
	tests := []struct {
		name       string
		zoom       uint
		rawX, rawY int
		wantNorth  float64
		wantSouth  float64
		wantWest   float64
		wantEast   float64
	}{
		{
			name: "whole world",
			zoom: 0, rawX: 0, rawY: 0,
			wantNorth: mercator.MaxLatitude,
			wantSouth: -mercator.MaxLatitude,
			wantWest:  -180,
			wantEast:  180,
		},
		{
			name: "zoom 1 raw (0,0) is the south-west quadrant",
			zoom: 1, rawX: 0, rawY: 0,
			wantNorth: 0,
			wantSouth: -mercator.MaxLatitude,
			wantWest:  -180,
			wantEast:  0,
		},
		{
			name: "zoom 1 raw (1,1) is the north-east quadrant",
			zoom: 1, rawX: 1, rawY: 1,
			wantNorth: mercator.MaxLatitude,
			wantSouth: 0,
			wantWest:  0,
			wantEast:  180,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New(tt.zoom, tt.rawX, tt.rawY)
			assert.InDelta(t, tt.wantNorth, a.North, 1e-12)
			assert.InDelta(t, tt.wantSouth, a.South, 1e-12)
			assert.InDelta(t, tt.wantWest, a.West, 1e-12)
			assert.InDelta(t, tt.wantEast, a.East, 1e-12)
			assert.Greater(t, a.North, a.South)
			assert.Greater(t, a.East, a.West)
		})
	}
}

func TestAddress_Project(t *testing.T) {
	a := New(10, 5, 5)
	proj := mercator.Projector{Zoom: 10}

	// a coordinate in the middle of local pixel (4,4)
	lon := proj.Lon(float64(a.X*mercator.TileSize) + 4.5)
	lat := proj.Lat(float64(a.Y*mercator.TileSize) + 4.5)
	px, ok := a.Project(lon, lat)
	assert.True(t, ok)
	assert.Equal(t, Pixel{4, 4}, px)

	// far away from the tile
	_, ok = a.Project(0, 52)
	assert.False(t, ok)

	// one tile to the east
	lon = proj.Lon(float64((a.X+1)*mercator.TileSize) + 0.5)
	_, ok = a.Project(lon, lat)
	assert.False(t, ok)
}

// West and east edges are exact for tiles on binary-fraction longitudes:
// the west edge is inside, the east edge belongs to the neighbour.
func TestAddress_Project_lonEdges(t *testing.T) {
	a := New(3, 2, 3)
	assert.Equal(t, -90.0, a.West)
	assert.Equal(t, -45.0, a.East)
	midLat := (a.North + a.South) / 2

	px, ok := a.Project(a.West, midLat)
	assert.True(t, ok, "west edge belongs to this tile")
	assert.Equal(t, 0, px.X())

	_, ok = a.Project(a.East, midLat)
	assert.False(t, ok, "east edge belongs to the neighbouring tile")
}

// The equator splits zoom 1 tiles exactly: the north edge of the southern
// tile includes latitude 0, the south edge of the northern tile excludes it.
func TestAddress_Project_latEdges(t *testing.T) {
	southern := New(1, 0, 0)
	northern := New(1, 0, 1)
	assert.Equal(t, 0.0, southern.North)
	assert.Equal(t, 0.0, northern.South)
	midLon := (southern.West + southern.East) / 2

	px, ok := southern.Project(midLon, 0)
	assert.True(t, ok, "north edge belongs to this tile")
	assert.Equal(t, 0, px.Y())

	_, ok = northern.Project(midLon, 0)
	assert.False(t, ok, "south edge belongs to the neighbouring tile")
}

func TestAddress_WithinBoxClause(t *testing.T) {
	a := New(3, 2, 3)
	clause := a.WithinBoxClause("loc")
	want := fmt.Sprintf("(loc[0] >= -90) AND (loc[0] < -45) AND (loc[1] <= 0) AND (loc[1] > %v)", a.South)
	assert.Equal(t, want, clause)
	assert.InDelta(t, -40.97989806962013, a.South, 1e-12)
}
