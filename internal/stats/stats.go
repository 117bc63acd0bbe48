// Package stats loads the auxiliary frequency files some measures need
// before any comparison can run.
package stats

import (
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/allpairs/internal/codec"
	"github.com/Adithya-Monish-Kumar-K/allpairs/internal/intern"
	"github.com/Adithya-Monish-Kumar-K/allpairs/internal/measure"
	apperrors "github.com/Adithya-Monish-Kumar-K/allpairs/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/allpairs/pkg/metrics"
)

// LoadFeatures reads the feature frequency file at path, interning its tokens
// in features. Compressed files are decompressed on the fly. m may be nil.
func LoadFeatures(path string, features intern.Interner, cs *codec.Charset, m *metrics.Metrics) (*codec.Frequencies, error) {
	if path == "" {
		return nil, apperrors.New(apperrors.ErrMissingInput, "no feature frequency file configured")
	}
	r, err := codec.OpenStream(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	freq, err := codec.NewTokenSource(path, r, features, cs).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("loading feature frequencies: %w", err)
	}
	if m != nil {
		m.DuplicateKeysTotal.Add(float64(freq.Duplicates))
	}
	slog.Default().With("component", "stats").Info("feature frequencies loaded",
		"file", path,
		"features", freq.Occurring,
		"total", freq.Sum,
		"max", freq.Max,
		"duplicates", freq.Duplicates,
	)
	return freq, nil
}

// MeasureParams fills the statistics fields of p from freq.
func MeasureParams(p measure.Params, freq *codec.Frequencies) measure.Params {
	p.Features = freq
	p.FeatureTotal = freq.Sum
	p.FeatureCount = freq.Occurring
	return p
}

// Needed reports whether building spec requires the feature file.
func Needed(spec measure.Spec) bool {
	return spec.Requires != measure.NeedsNothing
}
