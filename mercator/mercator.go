// Package mercator implements the Web-Mercator pixel math for a slippy tile
// grid: 2^zoom x 2^zoom tiles of 256x256 pixels. Global pixel y grows
// southward; latitudes are clamped by the projection to ~±85.05°.
package mercator

import (
	"math"

	"github.com/pdok/pointtiles/mathhelp"
)

// TileSize is the logical pixel size of a tile in each dimension.
const TileSize = 256

// MaxLatitude is the northernmost latitude representable in the projection.
var MaxLatitude = math.Atan(math.Sinh(math.Pi)) * 180 / math.Pi

// Projector converts between geographic coordinates and global pixel
// coordinates at a fixed zoom level.
type Projector struct {
	Zoom uint
}

func (p Projector) mapSize() float64 {
	return float64(mathhelp.Pow2(p.Zoom)) * TileSize
}

// TMSCoordinates converts a raw tile index into the row-flipped addressing
// used for the pixel math: the y axis is inverted, x is unchanged.
func (p Projector) TMSCoordinates(rawX, rawY int) (x, y int) {
	return rawX, int(mathhelp.Pow2(p.Zoom)) - 1 - rawY
}

// Lon returns the longitude of a global pixel x coordinate.
func (p Projector) Lon(pixelX float64) float64 {
	return pixelX/p.mapSize()*360 - 180
}

// Lat returns the latitude of a global pixel y coordinate.
func (p Projector) Lat(pixelY float64) float64 {
	return math.Atan(math.Sinh(math.Pi*(1-2*pixelY/p.mapSize()))) * 180 / math.Pi
}

// Px is the inverse of Lon/Lat: it projects a geographic coordinate to
// global (fractional) pixel coordinates at the projector's zoom.
func (p Projector) Px(lon, lat float64) (pixelX, pixelY float64) {
	size := p.mapSize()
	pixelX = (lon + 180) / 360 * size
	pixelY = (1 - math.Asinh(math.Tan(lat*math.Pi/180))/math.Pi) / 2 * size
	return pixelX, pixelY
}
