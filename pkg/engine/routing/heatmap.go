package routing

import (
	"encoding/csv"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/lintang-b-s/awooter/pkg/device"
)

// CongestionByCoordinate counts, per grid location, the wires bound by more than one net.
func (r *Router) CongestionByCoordinate() map[device.Loc]int {
	heat := make(map[device.Loc]int)
	for w, wd := range r.wireData {
		if wd.currCong > 1 {
			l := r.g.WireLocation(w)
			heat[device.Loc{X: l.X, Y: l.Y}]++
		}
	}
	return heat
}

// UtilisationByWireType counts bound wires per wire type and number of nets sharing them.
// the type of a wire is its name without the leading tile prefix.
func (r *Router) UtilisationByWireType() map[string]map[int]int {
	usage := make(map[string]map[int]int)
	for w, wd := range r.wireData {
		if wd.currCong == 0 {
			continue
		}
		kind := wireType(r.g.NameOfWire(w))
		if usage[kind] == nil {
			usage[kind] = make(map[int]int)
		}
		usage[kind][wd.currCong]++
	}
	return usage
}

func wireType(name string) string {
	if _, kind, ok := strings.Cut(name, "_"); ok {
		return strings.TrimRightFunc(kind, func(c rune) bool { return c >= '0' && c <= '9' })
	}
	return name
}

// WriteCongestionHeatmap writes a dimX x dimY grid of overused wire counts summed over routers, one row per x.
func WriteCongestionHeatmap(w io.Writer, dimX, dimY int32, routers ...*Router) error {
	grid := make([][]int, dimX)
	for x := range grid {
		grid[x] = make([]int, dimY)
	}
	for _, r := range routers {
		for l, n := range r.CongestionByCoordinate() {
			if l.X >= 0 && l.X < dimX && l.Y >= 0 && l.Y < dimY {
				grid[l.X][l.Y] += n
			}
		}
	}

	cw := csv.NewWriter(w)
	for x := range grid {
		row := make([]string, dimY)
		for y, n := range grid[x] {
			row[y] = strconv.Itoa(n)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteUtilisationHeatmap writes one row per wire type: the type followed by the count of wires shared by 1..max nets.
func WriteUtilisationHeatmap(w io.Writer, routers ...*Router) error {
	merged := make(map[string]map[int]int)
	maxCong := 1
	for _, r := range routers {
		for kind, byCong := range r.UtilisationByWireType() {
			if merged[kind] == nil {
				merged[kind] = make(map[int]int)
			}
			for cong, n := range byCong {
				merged[kind][cong] += n
				maxCong = max(maxCong, cong)
			}
		}
	}
	kinds := make([]string, 0, len(merged))
	for kind := range merged {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	cw := csv.NewWriter(w)
	header := []string{"type"}
	for c := 1; c <= maxCong; c++ {
		header = append(header, strconv.Itoa(c))
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, kind := range kinds {
		row := []string{kind}
		for c := 1; c <= maxCong; c++ {
			row = append(row, strconv.Itoa(merged[kind][c]))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
