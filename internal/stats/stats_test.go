package stats

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/allpairs/internal/codec"
	"github.com/Adithya-Monish-Kumar-K/allpairs/internal/intern"
	"github.com/Adithya-Monish-Kumar-K/allpairs/internal/measure"
	apperrors "github.com/Adithya-Monish-Kumar-K/allpairs/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/allpairs/pkg/metrics"
)

func TestLoadFeatures(t *testing.T) {
	path := filepath.Join(t.TempDir(), "features.tsv")
	require.NoError(t, os.WriteFile(path, []byte("f1\t10\nf2\t30\nf1\t5\n"), 0o644))

	tbl := intern.NewTable()
	m := metrics.New()
	freq, err := LoadFeatures(path, tbl, codec.UTF8, m)
	require.NoError(t, err)

	f1, _ := tbl.Lookup("f1")
	f2, _ := tbl.Lookup("f2")
	assert.Equal(t, 15.0, freq.Weight(f1))
	assert.Equal(t, 30.0, freq.Weight(f2))
	assert.Equal(t, 45.0, freq.Sum)
	assert.Equal(t, 2, freq.Occurring)
	assert.Equal(t, 1, freq.Duplicates)

	p := MeasureParams(measure.DefaultParams(), freq)
	assert.Equal(t, 45.0, p.FeatureTotal)
	assert.Equal(t, 2, p.FeatureCount)

	spec, err := measure.Lookup("lin")
	require.NoError(t, err)
	_, err = spec.Build(p)
	assert.NoError(t, err)
}

func TestLoadFeaturesMissing(t *testing.T) {
	_, err := LoadFeatures(filepath.Join(t.TempDir(), "nope.tsv"), intern.NewTable(), codec.UTF8, nil)
	assert.ErrorIs(t, err, apperrors.ErrMissingInput)

	_, err = LoadFeatures("", intern.NewTable(), codec.UTF8, nil)
	assert.ErrorIs(t, err, apperrors.ErrMissingInput)
}

func TestLoadFeaturesMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "features.tsv")
	require.NoError(t, os.WriteFile(path, []byte("f1\tlots\n"), 0o644))
	_, err := LoadFeatures(path, intern.NewTable(), codec.UTF8, nil)
	assert.ErrorIs(t, err, apperrors.ErrMalformedRecord)
}

func TestNeeded(t *testing.T) {
	for name, want := range map[string]bool{"jaccard": false, "lin": true, "kendall-tau": true, "recall": true} {
		spec, err := measure.Lookup(name)
		require.NoError(t, err)
		assert.Equal(t, want, Needed(spec), name)
	}
}
