package tiktok

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/vexofm/vexo/pkg/provider/tts"
)

// prefixLimit bounds the response prefix searched for the audio field.
const prefixLimit = 64 * 1024

var dataToken = []byte(`"data"`)

// decoder extracts the "data" field of a minified JSON response body and
// base64-decodes it incrementally, emitting audio bytes as quanta complete.
type decoder struct {
	src io.Reader

	quantum [4]byte
	qlen    int

	out     []byte // decoded bytes not yet handed to the reader
	pending []byte // raw payload bytes buffered during the prefix scan
	tmp     [4096]byte
	done    bool
}

// newDecoder scans the response prefix for the audio field. A null value
// yields [tts.ErrNullAudio]; a field not found within prefixLimit bytes
// yields [tts.ErrParse].
func newDecoder(src io.Reader) (*decoder, error) {
	var (
		buf = make([]byte, 0, 4096)
		tmp = make([]byte, 4096)
		eof bool
	)
	for {
		if i := bytes.Index(buf, dataToken); i >= 0 {
			rest := buf[i+len(dataToken):]
			start, kind := scanValueStart(rest)
			switch kind {
			case valueString:
				d := &decoder{src: src}
				d.pending = append([]byte(nil), rest[start:]...)
				return d, nil
			case valueNull:
				return nil, tts.ErrNullAudio
			case valueBad:
				return nil, tts.ErrParse
			}
			// valueIncomplete: need more bytes to classify.
		}
		if eof || len(buf) >= prefixLimit {
			return nil, tts.ErrParse
		}
		n, err := src.Read(tmp)
		buf = append(buf, tmp[:n]...)
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			eof = true
		default:
			return nil, fmt.Errorf("tiktok: read response: %w", err)
		}
	}
}

// valueKind classifies the bytes following the audio key.
type valueKind int

const (
	valueIncomplete valueKind = iota
	valueString
	valueNull
	valueBad
)

// scanValueStart skips whitespace around the colon after the audio key and
// classifies the value start. For valueString the returned offset points at
// the first payload byte past the opening quote.
func scanValueStart(rest []byte) (int, valueKind) {
	i := 0
	for i < len(rest) && isSpace(rest[i]) {
		i++
	}
	if i >= len(rest) {
		return 0, valueIncomplete
	}
	if rest[i] != ':' {
		return 0, valueBad
	}
	i++
	for i < len(rest) && isSpace(rest[i]) {
		i++
	}
	if i >= len(rest) {
		return 0, valueIncomplete
	}
	switch rest[i] {
	case '"':
		return i + 1, valueString
	case 'n':
		if len(rest)-i < 4 {
			if bytes.HasPrefix([]byte("null"), rest[i:]) {
				return 0, valueIncomplete
			}
			return 0, valueBad
		}
		if bytes.Equal(rest[i:i+4], []byte("null")) {
			return 0, valueNull
		}
		return 0, valueBad
	default:
		return 0, valueBad
	}
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// Read returns decoded audio bytes, pulling and decoding more of the
// payload as needed. EOF is reported after the closing quote.
func (d *decoder) Read(p []byte) (int, error) {
	for len(d.out) == 0 {
		if d.done {
			return 0, io.EOF
		}
		if err := d.fill(); err != nil {
			return 0, err
		}
	}
	n := copy(p, d.out)
	d.out = d.out[n:]
	return n, nil
}

// fill consumes one chunk of raw payload, appending decoded bytes to d.out.
func (d *decoder) fill() error {
	var chunk []byte
	if len(d.pending) > 0 {
		chunk = d.pending
		d.pending = nil
	} else {
		n, err := d.src.Read(d.tmp[:])
		if n == 0 {
			if err == nil {
				return nil
			}
			if errors.Is(err, io.EOF) {
				return fmt.Errorf("%w: payload truncated", tts.ErrDecode)
			}
			return fmt.Errorf("tiktok: read payload: %w", err)
		}
		chunk = d.tmp[:n]
	}
	return d.consume(chunk)
}

// consume feeds raw base64 bytes through the quantum decoder until the
// closing quote or the chunk is exhausted. Base64 text contains no escapes,
// so the first quote terminates the payload unambiguously.
func (d *decoder) consume(chunk []byte) error {
	for _, b := range chunk {
		if b == '"' {
			d.done = true
			return d.flush()
		}
		d.quantum[d.qlen] = b
		d.qlen++
		if d.qlen == 4 {
			var dst [3]byte
			n, err := base64.StdEncoding.Decode(dst[:], d.quantum[:])
			if err != nil {
				return fmt.Errorf("%w: %v", tts.ErrDecode, err)
			}
			d.out = append(d.out, dst[:n]...)
			d.qlen = 0
		}
	}
	return nil
}

// flush decodes any residual, unpadded quantum left at payload end.
func (d *decoder) flush() error {
	if d.qlen == 0 {
		return nil
	}
	dst := make([]byte, base64.RawStdEncoding.DecodedLen(d.qlen))
	n, err := base64.RawStdEncoding.Decode(dst, d.quantum[:d.qlen])
	if err != nil {
		return fmt.Errorf("%w: %v", tts.ErrDecode, err)
	}
	d.out = append(d.out, dst[:n]...)
	d.qlen = 0
	return nil
}
