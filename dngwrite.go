// Copyright 2026 Mohammad Shariful Islam
// SPDX-License-Identifier: MIT

// Package dngwrite serializes a single raw sensor plane plus camera
// calibration metadata into a minimal DNG container: a big-endian TIFF
// header with one image file directory, followed by one uncompressed strip
// of 32-bit float samples. It targets just enough conformance for a
// raw-capable reader to recover geometry, sample format, sensor mosaic and
// color calibration; compression, tiling, previews and the wider DNG tag
// set are out of scope.
package dngwrite

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

// UnknownPrefix is used as prefix for unknown tags.
const UnknownPrefix = "UnknownTag_"

var (
	// errInvalidInput marks geometry, mosaic or calibration input the
	// writer refuses to serialize.
	errInvalidInput = fmt.Errorf("dngwrite: invalid input")

	// errShortWrite marks a destination that accepted fewer bytes than the
	// container layout requires.
	errShortWrite = fmt.Errorf("dngwrite: short write")
)

// IsInvalidInput reports whether err was caused by invalid geometry,
// mosaic or calibration input.
func IsInvalidInput(err error) bool {
	return errors.Is(err, errInvalidInput)
}

// IsShortWrite reports whether err was caused by an incomplete header or
// pixel strip write. The partially written file is left in place.
func IsShortWrite(err error) bool {
	return errors.Is(err, errShortWrite)
}

// Frame is a single-channel raw pixel plane, read-only to the writer.
type Frame struct {
	Width  int
	Height int

	// Pixels holds Width*Height samples, row-major.
	Pixels []float32
}

// BayerPattern selects one of the four 2x2 Bayer arrangements, using the
// sensor filter codes of the capture pipeline.
type BayerPattern uint32

const (
	BayerRGGB BayerPattern = 0x94949494
	BayerGBRG BayerPattern = 0x49494949
	BayerGRBG BayerPattern = 0x61616161
	BayerBGGR BayerPattern = 0x16161616
)

// Mosaic describes the sensor color filter array: either a 2x2 Bayer
// arrangement or a 6x6 X-Trans style layout.
type Mosaic struct {
	bayer    BayerPattern
	xtrans   [6][6]byte
	isXTrans bool
}

// NewBayerMosaic returns a Mosaic for a 2x2 Bayer arrangement.
func NewBayerMosaic(p BayerPattern) Mosaic {
	return Mosaic{bayer: p}
}

// NewXTransMosaic returns a Mosaic for a 6x6 layout. The layout bytes are
// copied verbatim into the CFAPattern tag, row-major.
func NewXTransMosaic(layout [6][6]byte) Mosaic {
	return Mosaic{xtrans: layout, isXTrans: true}
}

// Calibration carries the camera calibration recorded with the frame.
type Calibration struct {
	// WhiteLevel is the sensor saturation level.
	WhiteLevel float32

	// WBCoeffs are the R, G, B white balance coefficients. All three must
	// be non-zero.
	WBCoeffs [3]float32

	// XYZToCam is the camera color calibration matrix, pre-scaled by the
	// Adobe coefficient factor. NaN in the first element marks it absent,
	// in which case a generic XYZ->sRGB matrix is written instead.
	XYZToCam [3][3]float32
}

// HasCameraMatrix reports whether a camera calibration matrix was supplied.
func (c Calibration) HasCameraMatrix() bool {
	return !math.IsNaN(float64(c.XYZToCam[0][0]))
}

// EmbedFunc splices a metadata blob into an already written DNG file. It is
// invoked only after the file has been flushed and closed, and must leave
// the header tags and the pixel strip intact.
type EmbedFunc func(path string, blob []byte) error

// Options contains the options for the Write and Encode functions.
type Options struct {
	// Path is the destination file. Created or truncated by Write.
	Path string

	// Frame is the raw pixel plane to serialize.
	Frame Frame

	// Mosaic describes the sensor color filter array.
	Mosaic Mosaic

	// Calibration is the camera calibration metadata.
	Calibration Calibration

	// EXIF is an optional metadata blob handed to Embed once the file is
	// closed. Nil means no metadata pass.
	EXIF []byte

	// Embed is the external metadata embedder. Ignored when EXIF is nil.
	Embed EmbedFunc

	// Warnf will be called for each warning.
	Warnf func(string, ...any)
}

func (o *Options) init() {
	if o.Warnf == nil {
		o.Warnf = func(string, ...any) {}
	}
}

func (o Options) validate() error {
	f := o.Frame
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("%w: geometry %dx%d", errInvalidInput, f.Width, f.Height)
	}
	// Width and height travel in SHORT fields.
	if f.Width > 0xffff || f.Height > 0xffff {
		return fmt.Errorf("%w: geometry %dx%d exceeds 16-bit tag fields", errInvalidInput, f.Width, f.Height)
	}
	if int64(f.Width)*int64(f.Height)*4 > math.MaxUint32 {
		return fmt.Errorf("%w: strip byte count for %dx%d exceeds 32-bit tag fields", errInvalidInput, f.Width, f.Height)
	}
	if len(f.Pixels) != f.Width*f.Height {
		return fmt.Errorf("%w: %d pixels for geometry %dx%d", errInvalidInput, len(f.Pixels), f.Width, f.Height)
	}
	// AsShotNeutral stores round(1e6 * G/k), so every ratio must stay
	// within the int32 numerator.
	wbG := float64(o.Calibration.WBCoeffs[1])
	for k, c := range o.Calibration.WBCoeffs {
		if c == 0 {
			return fmt.Errorf("%w: white balance coefficient %d is zero", errInvalidInput, k)
		}
		ratio := wbG / float64(c)
		if math.IsNaN(ratio) || math.Abs(ratio) > math.MaxInt32/float64(asShotDen) {
			return fmt.Errorf("%w: white balance ratio %g for coefficient %d out of range", errInvalidInput, ratio, k)
		}
	}
	return nil
}

// Encode writes the fixed 584-byte header followed by the raw pixel strip
// to w. It keeps no state between calls, so concurrent encodes to distinct
// writers need no coordination.
func Encode(w io.Writer, opts Options) error {
	opts.init()
	if err := opts.validate(); err != nil {
		return err
	}

	header, err := encodeHeader(opts)
	if err != nil {
		return err
	}

	sw := newStreamWriter(w)

	sw.writeBytes(header)
	if sw.writeErr != nil || sw.written != headerSize {
		opts.Warnf("failed to write image header: %d of %d bytes", sw.written, headerSize)
		return shortWriteError("header", sw.written, headerSize, sw.writeErr)
	}

	sw.writeSamples(opts.Frame.Pixels, opts.Frame.Width)
	want := int64(headerSize + len(opts.Frame.Pixels)*4)
	if sw.writeErr != nil || sw.written != want {
		opts.Warnf("failed to write pixel strip: %d of %d bytes", sw.written-headerSize, want-headerSize)
		return shortWriteError("pixel strip", sw.written-headerSize, want-headerSize, sw.writeErr)
	}

	return nil
}

// Write serializes opts.Frame to opts.Path: header, then pixel strip, then
// flush and close. When an EXIF blob and an Embed collaborator are both
// supplied, the closed file is handed over for the metadata pass as a
// separate step. A failed call does not remove the destination, so a
// truncated file can be left behind.
func Write(opts Options) error {
	opts.init()

	// Validate before touching the destination, so bad input never
	// truncates an existing file.
	if err := opts.validate(); err != nil {
		return err
	}

	file, err := os.Create(opts.Path)
	if err != nil {
		return fmt.Errorf("dngwrite: open %q: %w", opts.Path, err)
	}

	encErr := Encode(file, opts)
	closeErr := file.Close()
	if encErr != nil {
		return encErr
	}
	if closeErr != nil {
		return fmt.Errorf("dngwrite: close %q: %w", opts.Path, closeErr)
	}

	if opts.EXIF != nil && opts.Embed != nil {
		if err := opts.Embed(opts.Path, opts.EXIF); err != nil {
			return fmt.Errorf("dngwrite: embed metadata into %q: %w", opts.Path, err)
		}
	}

	return nil
}

func shortWriteError(stage string, got, want int64, err error) error {
	if err != nil {
		return fmt.Errorf("%w: %s: %d of %d bytes: %w", errShortWrite, stage, got, want, err)
	}
	return fmt.Errorf("%w: %s: %d of %d bytes", errShortWrite, stage, got, want)
}
