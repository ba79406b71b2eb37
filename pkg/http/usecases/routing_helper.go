package usecases

import (
	"github.com/lintang-b-s/awooter/pkg/arch/gridarch"
	da "github.com/lintang-b-s/awooter/pkg/datastructure"
	"github.com/lintang-b-s/awooter/pkg/device"
	"github.com/lintang-b-s/awooter/pkg/engine"
	"github.com/twpayne/go-polyline"
)

// tile coordinates are integral, no scaling needed.
var tileCodec = polyline.Codec{Dim: 2, Scale: 1}

func newRouteReport(jobID string, res *engine.Result) *RouteReport {
	report := &RouteReport{
		JobID:     jobID,
		Arcs:      res.Arcs,
		Crossings: res.Crossings,
		Reserved:  res.Reserved,
		Duration:  res.Duration,
		Special:   res.Special,
		Regions:   make([]RegionReport, 0, len(res.Regions)),
	}
	for _, r := range res.Regions {
		report.Regions = append(report.Regions, RegionReport{
			Name:   r.Name,
			Bounds: r.Bounds.String(),
			Stats:  r.Stats,
		})
	}
	return report
}

func arcReports(g *gridarch.Arch) ([]ArcReport, error) {
	arcs := da.ExtractArcs(g)
	reports := make([]ArcReport, 0, len(arcs))
	for _, arc := range arcs {
		path, err := engine.ArcPath(g, arc)
		if err != nil {
			return nil, err
		}
		reports = append(reports, ArcReport{
			Net:    g.NameOfNet(arc.Net()),
			Source: g.NameOfWire(arc.GetSourceWire()),
			Sink:   g.NameOfWire(arc.GetSinkWire()),
			Pips:   len(path),
			Delay:  pathDelay(g, path),
			Path:   EncodeTiles(pathTiles(g, arc, path)),
		})
	}
	return reports, nil
}

func pathDelay(g device.Oracle, path []device.PipId) float64 {
	delay := 0.0
	for _, pip := range path {
		delay += g.PipDelay(pip) + g.WireDelay(g.PipDstWire(pip))
	}
	return delay
}

// pathTiles lists the tiles visited from source to sink, consecutive duplicates collapsed.
func pathTiles(g device.Oracle, arc da.Arc, path []device.PipId) []device.Loc {
	tiles := []device.Loc{flatten(arc.GetSourceLoc())}
	visit := func(l device.Loc) {
		if l = flatten(l); tiles[len(tiles)-1] != l {
			tiles = append(tiles, l)
		}
	}
	for _, pip := range path {
		visit(g.PipLocation(pip))
	}
	visit(arc.GetSinkLoc())
	return tiles
}

func flatten(l device.Loc) device.Loc {
	return device.NewLoc(l.X, l.Y)
}

func EncodeTiles(tiles []device.Loc) string {
	coords := make([][]float64, 0, len(tiles))
	for _, l := range tiles {
		coords = append(coords, []float64{float64(l.X), float64(l.Y)})
	}
	return string(tileCodec.EncodeCoords(nil, coords))
}

func DecodeTiles(path string) ([]device.Loc, error) {
	coords, _, err := tileCodec.DecodeCoords([]byte(path))
	if err != nil {
		return nil, err
	}
	tiles := make([]device.Loc, 0, len(coords))
	for _, c := range coords {
		tiles = append(tiles, device.NewLoc(int32(c[0]), int32(c[1])))
	}
	return tiles, nil
}
