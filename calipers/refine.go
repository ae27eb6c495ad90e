package calipers

import (
	"github.com/rotblauer/vtsproxy/geo"
	"github.com/rotblauer/vtsproxy/geodataset"
	"github.com/rotblauer/vtsproxy/refframe"
)

// maxRefineDepth bounds border-cell recursion as a safety net against
// a degenerate dataset (zero pixel size); the real termination
// condition is the footprint-below-limit check below.
const maxRefineDepth = 24

// refineBorders implements step 4: walk every grid cell, and for each
// cell whose four corners are neither fully inside nor fully outside N
// (a "border cell"), recursively subdivide to refine the node-local
// extents without sampling cells that are wholly in or out.
func refineBorders(d geodataset.Descriptor, n refframe.NodeInfo, grid [][]gridPoint, conv geo.Converter, opts Options, extend func(geo.Point2)) {
	limit := opts.TileSize / (opts.InvGsdScale * opts.TileFractionLimit)
	px := d.PixelSize()

	for i := 0; i < sampleGridSteps; i++ {
		for j := 0; j < sampleGridSteps; j++ {
			bl, br, tl, tr := grid[i][j], grid[i+1][j], grid[i][j+1], grid[i+1][j+1]
			sum := validCount(bl, br, tl, tr)
			if sum == 0 || sum == 4 {
				continue
			}
			x0, x1 := bl.src.X, br.src.X
			y0, y1 := bl.src.Y, tl.src.Y
			subdivideCell(bl, br, tl, tr, x0, y0, x1, y1, px, limit, conv, n, extend, 0)
		}
	}
}

func validCount(pts ...gridPoint) int {
	n := 0
	for _, p := range pts {
		if p.valid {
			n++
		}
	}
	return n
}

// subdivideCell implements one level of the border-refinement
// recursion: it samples the cell's center and four edge midpoints,
// forms four quadrant sub-cells, and recurses into any sub-cell that
// is still partial and whose footprint has not yet shrunk below the
// limit.
func subdivideCell(bl, br, tl, tr gridPoint, x0, y0, x1, y1 float64, px geo.Size, limit float64, conv geo.Converter, n refframe.NodeInfo, extend func(geo.Point2), depth int) {
	sample := func(x, y float64) gridPoint {
		src := geo.Point2{X: x, Y: y}
		gp := gridPoint{src: src}
		if proj, ok := conv.Convert(src); ok && n.Extents().Contains(proj) {
			gp.valid = true
			gp.proj = proj
			extend(proj)
		}
		return gp
	}

	xm, ym := (x0+x1)/2, (y0+y1)/2
	midBottom := sample(xm, y0)
	midTop := sample(xm, y1)
	midLeft := sample(x0, ym)
	midRight := sample(x1, ym)
	center := sample(xm, ym)

	footprintW, footprintH := 0.0, 0.0
	if px.Width > 0 {
		footprintW = (x1 - x0) / px.Width
	}
	if px.Height > 0 {
		footprintH = (y1 - y0) / px.Height
	}
	belowLimit := footprintW < limit && footprintH < limit
	if belowLimit || depth >= maxRefineDepth {
		return
	}

	type subcell struct {
		bl, br, tl, tr           gridPoint
		sx0, sy0, sx1, sy1 float64
	}
	subs := []subcell{
		{bl, midBottom, midLeft, center, x0, y0, xm, ym},
		{midBottom, br, center, midRight, xm, y0, x1, ym},
		{midLeft, center, tl, midTop, x0, ym, xm, y1},
		{center, midRight, midTop, tr, xm, ym, x1, y1},
	}
	for _, s := range subs {
		sum := validCount(s.bl, s.br, s.tl, s.tr)
		if sum == 0 || sum == 4 {
			continue
		}
		subdivideCell(s.bl, s.br, s.tl, s.tr, s.sx0, s.sy0, s.sx1, s.sy1, px, limit, conv, n, extend, depth+1)
	}
}
