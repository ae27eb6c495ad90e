package calipers

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rotblauer/vtsproxy/geo"
)

// FormatFloat renders a float deterministically across platforms via
// shopspring/decimal, so repeated calipers runs on the same dataset
// print byte-identical CLI output.
func FormatFloat(v float64) string {
	return decimal.NewFromFloat(v).Round(6).String()
}

// ExpandTileRanges derives the tile range at every LOD between
// r.LodRange.Min and r.LodRange.Max from the single range reported at
// the bottom of the range (r.FromBottom), by halving tile coordinates
// per LOD step — the inverse of the 4-ary tile subdivision in
// geo.Tile.Children.
func ExpandTileRanges(r Ranges) []geo.TileRange {
	if !r.FromBottom {
		return []geo.TileRange{r.TileRange}
	}
	out := make([]geo.TileRange, 0, r.LodRange.Max-r.LodRange.Min+1)
	for lod := r.LodRange.Min; lod <= r.LodRange.Max; lod++ {
		shift := uint(r.LodRange.Max - lod)
		out = append(out, geo.TileRange{
			Lod:  lod,
			MinX: r.TileRange.MinX >> shift,
			MinY: r.TileRange.MinY >> shift,
			MaxX: r.TileRange.MaxX >> shift,
			MaxY: r.TileRange.MaxY >> shift,
		})
	}
	return out
}

// FormatNodeLine renders one calipers CLI output line:
// "<nodeSrs>: <minLod,maxLod>/<tileRange@minLod>;...;<tileRange@maxLod>".
func FormatNodeLine(srs geo.SrsID, r Ranges) string {
	ranges := ExpandTileRanges(r)
	parts := make([]string, len(ranges))
	for i, tr := range ranges {
		parts[i] = tr.String()
	}
	return fmt.Sprintf("%s: %d,%d/%s", srs, r.LodRange.Min, r.LodRange.Max, strings.Join(parts, ";"))
}
