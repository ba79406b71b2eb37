package spatialindex

import (
	"sort"

	"github.com/lintang-b-s/awooter/pkg/device"
	"github.com/lintang-b-s/awooter/pkg/geo"
	"github.com/tidwall/rtree"
	"go.uber.org/zap"
)

// PipIndex. r-tree over pip locations, queried by the partitioner for boundary candidates.
type PipIndex struct {
	tr *rtree.RTreeG[device.PipId]
}

func NewPipIndex() *PipIndex {
	var tr rtree.RTreeG[device.PipId]
	return &PipIndex{
		tr: &tr,
	}
}

func point(l device.Loc) [2]float64 {
	return [2]float64{float64(l.X), float64(l.Y)}
}

// Build. insert every pip of the device as a point.
func (pi *PipIndex) Build(g device.Oracle, log *zap.Logger) {
	pips := g.Pips()
	log.Info("Building pip spatial index...", zap.Int("pips", len(pips)))
	for _, pip := range pips {
		p := point(g.PipLocation(pip))
		pi.tr.Insert(p, p, pip)
	}
	log.Info("Pip spatial index built.")
}

func (pi *PipIndex) Len() int {
	return pi.tr.Len()
}

// SearchBox returns all pips located inside the inclusive box, ordered by id.
func (pi *PipIndex) SearchBox(bb geo.BoundingBox) []device.PipId {
	results := make([]device.PipId, 0, 16)
	pi.tr.Search([2]float64{float64(bb.X0), float64(bb.Y0)}, [2]float64{float64(bb.X1), float64(bb.Y1)},
		func(min, max [2]float64, data device.PipId) bool {
			results = append(results, data)
			return true
		})
	sort.Slice(results, func(i, j int) bool {
		return results[i] < results[j]
	})
	return results
}

// SearchPartitionLines returns the pips on x = p.X or y = p.Y inside bb, ordered by id.
func (pi *PipIndex) SearchPartitionLines(bb geo.BoundingBox, p geo.Coord) []device.PipId {
	vertical := pi.SearchBox(geo.NewBoundingBox(p.X, p.X, bb.Y0, bb.Y1))
	horizontal := pi.SearchBox(geo.NewBoundingBox(bb.X0, bb.X1, p.Y, p.Y))

	seen := make(map[device.PipId]struct{}, len(vertical))
	results := make([]device.PipId, 0, len(vertical)+len(horizontal))
	for _, pip := range vertical {
		seen[pip] = struct{}{}
		results = append(results, pip)
	}
	for _, pip := range horizontal {
		if _, ok := seen[pip]; !ok {
			results = append(results, pip)
		}
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i] < results[j]
	})
	return results
}
