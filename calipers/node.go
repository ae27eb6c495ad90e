package calipers

import (
	"math"

	"github.com/rotblauer/vtsproxy/geo"
	"github.com/rotblauer/vtsproxy/geodataset"
	"github.com/rotblauer/vtsproxy/refframe"
)

const sampleGridSteps = 255 // s; grid is (s+1)x(s+1)

// gridPoint is one sample of the (s+1)x(s+1) grid: its location in D's
// SRS, and — if conversion into the node's SRS succeeded and landed
// inside the node — its projected location.
type gridPoint struct {
	src   geo.Point2
	valid bool
	proj  geo.Point2
}

// perNode computes the LOD range and tile range of the dataset for a
// single node. ok is false when the node should be omitted from the
// result entirely (no valid sample, or an incompatible subtree).
func perNode(d geodataset.Descriptor, n refframe.NodeInfo, kind geodataset.Kind, opts Options) (Ranges, bool) {
	conv, err := opts.converterFor(d.SRS, n.SRS())
	if err != nil {
		return Ranges{}, false
	}

	grid, _ := buildSampleGrid(d, n, conv)

	var localExtents geo.Extents
	haveExtents := false
	extend := func(p geo.Point2) {
		if !haveExtents {
			localExtents = geo.NewExtents(p)
			haveExtents = true
			return
		}
		localExtents = localExtents.Extend(p)
	}
	for _, row := range grid {
		for _, gp := range row {
			if gp.valid {
				extend(gp.proj)
			}
		}
	}

	logSampleDiagnostics(n, grid)

	localLod, ok := bestLod(d, n, grid, conv, opts)
	if !ok {
		return Ranges{}, false
	}

	child := n.LowestChild(localLod)
	if !child.CompatibleWith(n, localLod) {
		return Ranges{}, false
	}

	refineBorders(d, n, grid, conv, opts, extend)

	if !haveExtents {
		return Ranges{}, false
	}

	tileRange := mapTileRange(n, localLod, opts, localExtents)

	pane := n.Extents().Size()
	localSize := localExtents.Size()
	minLodLocal := 0
	if localSize.Width > 0 && localSize.Height > 0 && pane.Width > 0 && pane.Height > 0 {
		minLodLocal = int(math.Floor(0.5 * math.Log2((pane.Width/localSize.Width)*(pane.Height/localSize.Height))))
		if minLodLocal < 0 {
			minLodLocal = 0
		}
	}

	// kind only drives DetectKind/invGsdScale choice upstream; it does
	// not affect per-node geometry.

	return Ranges{
		LodRange:   LodRange{Min: n.ID().Lod + minLodLocal, Max: n.ID().Lod + localLod},
		TileRange:  tileRange,
		FromBottom: true,
	}, true
}

// buildSampleGrid implements step 1: build an (s+1)x(s+1) grid over
// D's extents in D's SRS, converting each point into N's SRS.
// Coordinate-conversion failures are swallowed and treated as
// "outside".
func buildSampleGrid(d geodataset.Descriptor, n refframe.NodeInfo, conv geo.Converter) (grid [][]gridPoint, step geo.Size) {
	ext := d.Extents
	sz := ext.Size()
	step = geo.Size{Width: sz.Width / float64(sampleGridSteps), Height: sz.Height / float64(sampleGridSteps)}

	grid = make([][]gridPoint, sampleGridSteps+1)
	for i := 0; i <= sampleGridSteps; i++ {
		grid[i] = make([]gridPoint, sampleGridSteps+1)
		for j := 0; j <= sampleGridSteps; j++ {
			src := geo.Point2{
				X: ext.LL.X + step.Width*float64(i),
				Y: ext.LL.Y + step.Height*float64(j),
			}
			gp := gridPoint{src: src}
			if proj, ok := conv.Convert(src); ok && n.Extents().Contains(proj) {
				gp.valid = true
				gp.proj = proj
			}
			grid[i][j] = gp
		}
	}
	return grid, step
}

// candidate is one valid grid point considered for the best-LOD pick.
type candidate struct {
	i, j     int
	distance float64
	gp       gridPoint
}

// bestLod implements step 2: pick the valid grid point closest (in
// source space) to D's center, build a 1-pixel quad around it, project
// the corners, and derive localLod from the projected area. On corner-
// conversion failure, try the next-closest point.
func bestLod(d geodataset.Descriptor, n refframe.NodeInfo, grid [][]gridPoint, conv geo.Converter, opts Options) (int, bool) {
	center := d.CenterPixel()

	var cands []candidate
	var best candidate
	haveBest := false
	for i, row := range grid {
		for j, gp := range row {
			if !gp.valid {
				continue
			}
			c := candidate{i: i, j: j, distance: gp.src.Distance(center), gp: gp}
			if opts.DeterministicTieBreak {
				cands = append(cands, c)
				continue
			}
			if !haveBest || c.distance < best.distance {
				best = c
				haveBest = true
			}
		}
	}
	if opts.DeterministicTieBreak {
		sortCandidates(cands)
		for _, c := range cands {
			if localLod, ok := lodFromCandidate(d, n, c, conv, opts); ok {
				return localLod, true
			}
		}
		return 0, false
	}
	if !haveBest {
		return 0, false
	}

	// Walk outward from the chosen closest point; if its quad corners
	// fail to project, fall back to the next-closest valid point.
	ordered := orderedByDistance(grid, center)
	for _, c := range ordered {
		if localLod, ok := lodFromCandidate(d, n, c, conv, opts); ok {
			return localLod, true
		}
	}
	return 0, false
}

func orderedByDistance(grid [][]gridPoint, center geo.Point2) []candidate {
	var out []candidate
	for i, row := range grid {
		for j, gp := range row {
			if gp.valid {
				out = append(out, candidate{i: i, j: j, distance: gp.src.Distance(center), gp: gp})
			}
		}
	}
	sortCandidates(out)
	return out
}

func sortCandidates(c []candidate) {
	// insertion sort: grids are small enough (<=256^2) that this
	// avoids pulling in sort just for a lexicographic 3-key compare.
	for i := 1; i < len(c); i++ {
		for j := i; j > 0 && less(c[j], c[j-1]); j-- {
			c[j], c[j-1] = c[j-1], c[j]
		}
	}
}

func less(a, b candidate) bool {
	if a.distance != b.distance {
		return a.distance < b.distance
	}
	if a.i != b.i {
		return a.i < b.i
	}
	return a.j < b.j
}

// lodFromCandidate implements the pixel-quad-area half of step 2 for
// one candidate grid point.
func lodFromCandidate(d geodataset.Descriptor, n refframe.NodeInfo, c candidate, conv geo.Converter, opts Options) (int, bool) {
	px := d.PixelSize()
	half := geo.Size{Width: px.Width / 2, Height: px.Height / 2}
	q := pixelQuad(d, c.gp.src, half)

	var projected geo.Quad
	for k, corner := range q {
		p, ok := conv.Convert(corner)
		if !ok {
			return 0, false
		}
		projected[k] = p
	}

	area := projected.Area()
	if area <= 0 {
		return 0, false
	}

	pane := n.Extents().Size()
	tileArea := opts.TileSize * opts.TileSize
	raw := 0.5 * math.Log2((pane.Width*opts.InvGsdScale*opts.InvGsdScale*pane.Height)/(area*tileArea))
	if raw < 0 {
		raw = 0
	}
	return int(math.Ceil(raw)), true
}

// pixelQuad builds a 1-source-pixel-wide quad around src, shifting
// inward by half a pixel when src sits on D's extents boundary so the
// quad never steps outside D.
func pixelQuad(d geodataset.Descriptor, src geo.Point2, half geo.Size) geo.Quad {
	x0, x1 := src.X-half.Width, src.X+half.Width
	y0, y1 := src.Y-half.Height, src.Y+half.Height
	if x0 < d.Extents.LL.X {
		x0, x1 = d.Extents.LL.X, d.Extents.LL.X+half.Width*2
	}
	if x1 > d.Extents.UR.X {
		x1, x0 = d.Extents.UR.X, d.Extents.UR.X-half.Width*2
	}
	if y0 < d.Extents.LL.Y {
		y0, y1 = d.Extents.LL.Y, d.Extents.LL.Y+half.Height*2
	}
	if y1 > d.Extents.UR.Y {
		y1, y0 = d.Extents.UR.Y, d.Extents.UR.Y-half.Height*2
	}
	return geo.Quad{
		{X: x0, Y: y0},
		{X: x1, Y: y0},
		{X: x1, Y: y1},
		{X: x0, Y: y1},
	}
}

// mapTileRange implements step 5: map local-extents' four corners to
// tile coordinates with a flipped y axis and take the bounding range.
// Coordinates are local to N's own subtree grid (geo.Tile's
// convention): N's own extents are tile (0,0) at local lod 0.
func mapTileRange(n refframe.NodeInfo, localLod int, opts Options, localExtents geo.Extents) geo.TileRange {
	pane := n.Extents().Size()
	scale := math.Pow(2, float64(localLod))
	ts := geo.Size{Width: pane.Width / scale, Height: pane.Height / scale}
	origin := n.Extents().UpperLeft()

	corners := []geo.Point2{
		localExtents.LL,
		{X: localExtents.UR.X, Y: localExtents.LL.Y},
		localExtents.UR,
		{X: localExtents.LL.X, Y: localExtents.UR.Y},
	}

	var minX, minY, maxX, maxY int64
	for i, c := range corners {
		tx := int64(math.Floor((c.X - origin.X) / ts.Width))
		ty := int64(math.Floor((origin.Y - c.Y) / ts.Height))
		if i == 0 {
			minX, maxX, minY, maxY = tx, tx, ty, ty
			continue
		}
		if tx < minX {
			minX = tx
		}
		if tx > maxX {
			maxX = tx
		}
		if ty < minY {
			minY = ty
		}
		if ty > maxY {
			maxY = ty
		}
	}

	return geo.TileRange{Lod: n.ID().Lod + localLod, MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY}
}
