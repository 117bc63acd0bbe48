package codec

import (
	"bytes"
	"fmt"

	apperrors "github.com/Adithya-Monish-Kumar-K/allpairs/pkg/errors"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

// asciiProbe covers every byte the record grammar depends on.
const asciiProbe = "\t\n\r-.0123456789eE+ABCXYZabcxyz_"

// Charset is the text encoding of token fields. Fields are transcoded one at
// a time so that byte offsets always refer to the raw file.
type Charset struct {
	name string
	enc  encoding.Encoding // nil for UTF-8
}

// UTF8 is the default charset.
var UTF8 = &Charset{name: "utf-8"}

// LookupCharset resolves a WHATWG encoding label. Encodings that do not keep
// ASCII bytes unchanged cannot carry the tab separated grammar and are
// rejected.
func LookupCharset(label string) (*Charset, error) {
	if label == "" {
		return UTF8, nil
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, apperrors.Newf(apperrors.ErrUnsupportedCharset, "%q: %v", label, err)
	}
	name, err := htmlindex.Name(enc)
	if err != nil {
		name = label
	}
	if name == "utf-8" {
		return UTF8, nil
	}
	probe, err := enc.NewEncoder().Bytes([]byte(asciiProbe))
	if err != nil || !bytes.Equal(probe, []byte(asciiProbe)) {
		return nil, apperrors.Newf(apperrors.ErrUnsupportedCharset, "%q is not ASCII compatible", label)
	}
	return &Charset{name: name, enc: enc}, nil
}

func (c *Charset) Name() string { return c.name }

// fieldDecoder converts raw field bytes to strings. Not safe for concurrent
// use; every reader owns one.
type fieldDecoder struct {
	dec *encoding.Decoder
}

func (c *Charset) newDecoder() fieldDecoder {
	if c == nil || c.enc == nil {
		return fieldDecoder{}
	}
	return fieldDecoder{dec: c.enc.NewDecoder()}
}

func (d fieldDecoder) decode(raw []byte) (string, error) {
	if d.dec == nil {
		return string(raw), nil
	}
	out, err := d.dec.Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("decoding field: %w", err)
	}
	return string(out), nil
}

type fieldEncoder struct {
	enc *encoding.Encoder
}

func (c *Charset) newEncoder() fieldEncoder {
	if c == nil || c.enc == nil {
		return fieldEncoder{}
	}
	return fieldEncoder{enc: c.enc.NewEncoder()}
}

func (e fieldEncoder) encode(s string) (string, error) {
	if e.enc == nil {
		return s, nil
	}
	out, err := e.enc.String(s)
	if err != nil {
		return "", fmt.Errorf("encoding field %q: %w", s, err)
	}
	return out, nil
}
