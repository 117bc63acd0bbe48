// Package codec reads and writes the tab separated token files consumed and
// produced by an all-pairs run.
//
// A pair file holds one record per line in the verbose form
//
//	entry TAB feature TAB weight
//
// or, in the compact form, one line per run of equal first tokens:
//
//	entry TAB feature1 TAB weight1 TAB feature2 TAB weight2 ...
//
// Readers accept both forms in the same file. A single-token file holds
// token TAB weight, with further weights for the same token allowed on the
// same line.
//
// Every reader can report its exact parse state as a Tell and later Seek back
// to it, including into the middle of a compact line.
package codec

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/allpairs/pkg/errors"
)

const maxFractionDigits = 6

// FormatWeight renders w the way every sink writes numbers: a bare integer
// when w is integral and fits in 32 bits, otherwise fixed notation with one
// to six fractional digits. Exponent notation is never produced. w must be
// finite; PairSink rejects NaN and infinities before formatting.
func FormatWeight(w float64) string {
	if w == math.Trunc(w) && w >= math.MinInt32 && w <= math.MaxInt32 {
		return strconv.FormatInt(int64(w), 10)
	}
	s := strconv.FormatFloat(w, 'f', maxFractionDigits, 64)
	dot := strings.IndexByte(s, '.')
	if dot < 0 {
		return s
	}
	end := len(s)
	for end > dot+2 && s[end-1] == '0' {
		end--
	}
	return s[:end]
}

// ParseWeight accepts an optionally signed integer or fixed-decimal literal.
// Exponents, hex floats, NaN and infinities are rejected, as are literals
// too large for a finite float64.
func ParseWeight(field string) (float64, error) {
	if !fixedDecimal(field) {
		return 0, fmt.Errorf("%q is not a fixed-decimal number", field)
	}
	w, err := strconv.ParseFloat(field, 64)
	if err != nil {
		return 0, err
	}
	return w, nil
}

func fixedDecimal(s string) bool {
	if s != "" && (s[0] == '+' || s[0] == '-') {
		s = s[1:]
	}
	digits, dot := 0, false
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c >= '0' && c <= '9':
			digits++
		case c == '.' && !dot:
			dot = true
		default:
			return false
		}
	}
	return digits > 0
}

func finite(w float64) bool {
	return !math.IsNaN(w) && !math.IsInf(w, 0)
}

// ParseError reports a malformed record at a byte offset of a named input.
type ParseError struct {
	File   string
	Offset int64
	Msg    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: offset %d: %s", e.File, e.Offset, e.Msg)
}

func (e *ParseError) Unwrap() error {
	return apperrors.ErrMalformedRecord
}

// Tell is an opaque snapshot of a reader's parse state. MidLine tells point
// into a compact line whose first token was Head.
type Tell struct {
	Offset  int64
	Head    int32
	MidLine bool
}

func (t Tell) String() string {
	if t.MidLine {
		return fmt.Sprintf("%d+%d", t.Offset, t.Head)
	}
	return strconv.FormatInt(t.Offset, 10)
}
