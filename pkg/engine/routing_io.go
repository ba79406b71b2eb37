package engine

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dsnet/compress/bzip2"
	"github.com/lintang-b-s/awooter/pkg/device"
	"github.com/lintang-b-s/awooter/pkg/util"
)

// WriteRouting stores every bound pip as a tab separated "net pip" name pair in a bzip2 compressed file.
// the first line holds the number of pairs.
func WriteRouting(filename string, g device.Oracle) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	bz, err := bzip2.NewWriter(f, &bzip2.WriterConfig{})
	if err != nil {
		return err
	}

	bound := make([]device.PipId, 0)
	for _, pip := range g.Pips() {
		if g.BoundPipNet(pip).Valid() {
			bound = append(bound, pip)
		}
	}

	w := bufio.NewWriter(bz)
	fmt.Fprintf(w, "%d\n", len(bound))
	for _, pip := range bound {
		fmt.Fprintf(w, "%s\t%s\n", g.NameOfNet(g.BoundPipNet(pip)), g.NameOfPip(pip))
	}
	if err := w.Flush(); err != nil {
		bz.Close()
		return err
	}
	return bz.Close()
}

// ReadRouting binds the pairs written by WriteRouting into g and returns how many pips were bound.
// names are resolved against g, so it must describe the same fabric and netlist.
func ReadRouting(filename string, g device.Oracle) (int, error) {
	f, err := os.Open(filename)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	bz, err := bzip2.NewReader(f, nil)
	if err != nil {
		return 0, err
	}
	defer bz.Close()

	nets := make(map[string]device.NetIndex, g.NumNets())
	for _, net := range g.Nets() {
		nets[net.Name] = net.Index
	}
	pips := make(map[string]device.PipId, len(g.Pips()))
	for _, pip := range g.Pips() {
		pips[g.NameOfPip(pip)] = pip
	}

	sc := bufio.NewScanner(bz)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return 0, err
		}
		return 0, util.WrapErrorf(nil, util.ErrBadParamInput, "%s: empty routing file", filename)
	}
	total, err := strconv.Atoi(strings.TrimSpace(sc.Text()))
	if err != nil {
		return 0, util.WrapErrorf(err, util.ErrBadParamInput, "%s: bad header", filename)
	}

	bound := 0
	for line := 2; sc.Scan(); line++ {
		netName, pipName, ok := strings.Cut(sc.Text(), "\t")
		if !ok {
			return bound, util.WrapErrorf(nil, util.ErrBadParamInput, "%s:%d: expected net and pip", filename, line)
		}
		net, ok := nets[netName]
		if !ok {
			return bound, util.WrapErrorf(nil, util.ErrBadParamInput, "%s:%d: unknown net %s", filename, line, netName)
		}
		pip, ok := pips[pipName]
		if !ok {
			return bound, util.WrapErrorf(nil, util.ErrBadParamInput, "%s:%d: unknown pip %s", filename, line, pipName)
		}
		if err := g.BindPip(pip, net); err != nil {
			return bound, util.WrapErrorf(err, util.ErrBindConflict, "%s:%d: bind %s", filename, line, pipName)
		}
		bound++
	}
	if err := sc.Err(); err != nil {
		return bound, err
	}
	if bound != total {
		return bound, util.WrapErrorf(nil, util.ErrBadParamInput, "%s: header says %d pips, read %d",
			filename, total, bound)
	}
	return bound, nil
}
