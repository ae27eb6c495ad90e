package calipers

import (
	"context"
	"log/slog"
	"math"

	"github.com/montanaflynn/stats"

	"github.com/rotblauer/vtsproxy/refframe"
)

// logSampleDiagnostics logs the median and standard deviation of
// valid grid-point distances to the grid's own centroid, purely as a
// debug instrument — it never perturbs the LOD arithmetic in node.go.
func logSampleDiagnostics(n refframe.NodeInfo, grid [][]gridPoint) {
	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	var distances stats.Float64Data
	var cx, cy float64
	count := 0
	for _, row := range grid {
		for _, gp := range row {
			if !gp.valid {
				continue
			}
			cx += gp.src.X
			cy += gp.src.Y
			count++
		}
	}
	if count == 0 {
		slog.Debug("calipers: node sampled", "node", n.ID().String(), "valid", 0)
		return
	}
	cx /= float64(count)
	cy /= float64(count)
	for _, row := range grid {
		for _, gp := range row {
			if !gp.valid {
				continue
			}
			dx, dy := gp.src.X-cx, gp.src.Y-cy
			distances = append(distances, math.Sqrt(dx*dx+dy*dy))
		}
	}
	median, _ := distances.Median()
	stddev, _ := distances.StandardDeviation()
	slog.Debug("calipers: node sampled",
		"node", n.ID().String(),
		"valid", count,
		"median", median,
		"stddev", stddev,
	)
}
