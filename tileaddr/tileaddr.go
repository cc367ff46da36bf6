// Package tileaddr identifies a single requested tile and the projection of
// geographic coordinates into that tile's local pixel grid.
package tileaddr

import (
	"fmt"
	"math"

	"github.com/pdok/pointtiles/mathhelp"
	"github.com/pdok/pointtiles/mercator"
)

// Pixel is a tile-local pixel position, both axes in [0, 255].
type Pixel [2]int

func (p Pixel) X() int { return p[0] }
func (p Pixel) Y() int { return p[1] }

// Address identifies one tile: zoom plus the row-flipped tile indices, with
// the derived geographic bounding box. Construct with New; an Address is
// immutable after that.
type Address struct {
	Zoom uint
	// X and Y are the row-flipped (TMS) indices, not the raw request indices.
	X, Y int

	North, South, East, West float64

	proj mercator.Projector
}

// New builds an Address from the raw request indices. The y index is
// row-flipped and the bounding box is computed once, deterministically.
func New(zoom uint, rawX, rawY int) Address {
	proj := mercator.Projector{Zoom: zoom}
	x, y := proj.TMSCoordinates(rawX, rawY)
	return Address{
		Zoom:  zoom,
		X:     x,
		Y:     y,
		North: proj.Lat(float64(y * mercator.TileSize)),
		South: proj.Lat(float64(y*mercator.TileSize + mercator.TileSize)),
		West:  proj.Lon(float64(x * mercator.TileSize)),
		East:  proj.Lon(float64(x*mercator.TileSize + mercator.TileSize)),
		proj:  proj,
	}
}

// WithinBoxClause returns the upstream filter predicate selecting the rows
// whose geometry column falls inside this tile's bounding box. The edges
// follow the same half-open convention as Project: west and north belong to
// this tile, east and south to the neighbours.
func (a Address) WithinBoxClause(column string) string {
	return fmt.Sprintf("(%[1]s[0] >= %[2]v) AND (%[1]s[0] < %[3]v) AND (%[1]s[1] <= %[4]v) AND (%[1]s[1] > %[5]v)",
		column, a.West, a.East, a.North, a.South)
}

// Project converts a geographic coordinate to this tile's local pixel grid.
// The second return value is false when the coordinate falls outside the
// tile. The tile window is half-open: a point exactly on the north or west
// edge is inside, a point on the south or east edge belongs to the
// neighbouring tile.
func (a Address) Project(lon, lat float64) (Pixel, bool) {
	globalX, globalY := a.proj.Px(lon, lat)
	minX := float64(a.X * mercator.TileSize)
	minY := float64(a.Y * mercator.TileSize)
	if globalX < minX || globalX >= minX+mercator.TileSize ||
		globalY < minY || globalY >= minY+mercator.TileSize {
		return Pixel{}, false
	}
	return Pixel{
		mathhelp.EuclidianMod(int(math.Floor(globalX)), mercator.TileSize),
		mathhelp.EuclidianMod(int(math.Floor(globalY)), mercator.TileSize),
	}, true
}
