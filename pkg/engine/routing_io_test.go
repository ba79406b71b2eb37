package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/dsnet/compress/bzip2"
	"github.com/lintang-b-s/awooter/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRoutingFileRoundTrip(t *testing.T) {
	routed := crossArch(t)
	cfg := testConfig(1)
	cfg.Partition.Bisect = false
	cfg.Partition.Workers = 1
	_, err := NewEngine(routed, cfg, nil, zap.NewNop()).Route(context.Background())
	require.NoError(t, err)

	filename := filepath.Join(t.TempDir(), "cross.route.bz2")
	require.NoError(t, WriteRouting(filename, routed))

	fresh := crossArch(t)
	bound, err := ReadRouting(filename, fresh)
	require.NoError(t, err)
	assert.Equal(t, len(routed.BoundPips()), bound)
	assert.Equal(t, routed.BoundPips(), fresh.BoundPips())
	assertLegal(t, fresh)
}

func TestReadRoutingRejectsUnknownNames(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{name: "unknown net", body: "1\nnope\tR0C0_Q0->R0C0_H01T0\n"},
		{name: "unknown pip", body: "1\na\tnope\n"},
		{name: "missing separator", body: "1\na R0C0\n"},
		{name: "bad header", body: "one\n"},
		{name: "short file", body: "2\n"},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			filename := filepath.Join(t.TempDir(), "bad.route.bz2")
			writeCompressed(t, filename, tt.body)

			_, err := ReadRouting(filename, crossArch(t))
			require.Error(t, err)
			assert.True(t, util.IsCode(err, util.ErrBadParamInput), err.Error())
		})
	}
}

func writeCompressed(t *testing.T, filename, body string) {
	t.Helper()
	f, err := os.Create(filename)
	require.NoError(t, err)
	defer f.Close()
	bz, err := bzip2.NewWriter(f, &bzip2.WriterConfig{})
	require.NoError(t, err)
	_, err = bz.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, bz.Close())
}
