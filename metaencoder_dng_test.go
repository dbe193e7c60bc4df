package dngwrite

import (
	"encoding/binary"
	"math"
	"testing"

	qt "github.com/frankban/quicktest"
)

type dirEntry struct {
	id, typ      uint16
	count, value uint32
}

// parseDir walks the emitted byte stream the way a TIFF reader would.
func parseDir(c *qt.C, header []byte) []dirEntry {
	c.Assert(len(header), qt.Equals, headerSize)
	count := binary.BigEndian.Uint16(header[entryCountOffset:])
	entries := make([]dirEntry, count)
	for i := range entries {
		off := firstEntryOffset + i*12
		entries[i] = dirEntry{
			id:    binary.BigEndian.Uint16(header[off:]),
			typ:   binary.BigEndian.Uint16(header[off+2:]),
			count: binary.BigEndian.Uint32(header[off+4:]),
			value: binary.BigEndian.Uint32(header[off+8:]),
		}
	}
	return entries
}

func findEntry(c *qt.C, entries []dirEntry, id uint16) dirEntry {
	for _, e := range entries {
		if e.id == id {
			return e
		}
	}
	c.Fatalf("tag %s (%d) not found", tagName(id), id)
	return dirEntry{}
}

func readRational(header []byte, offset int) (int32, int32) {
	num := int32(binary.BigEndian.Uint32(header[offset:]))
	den := int32(binary.BigEndian.Uint32(header[offset+4:]))
	return num, den
}

func absentMatrix() [3][3]float32 {
	var m [3][3]float32
	m[0][0] = float32(math.NaN())
	return m
}

func testOptions() Options {
	opts := Options{
		Frame: Frame{
			Width:  100,
			Height: 50,
			Pixels: make([]float32, 100*50),
		},
		Mosaic: NewBayerMosaic(BayerRGGB),
		Calibration: Calibration{
			WhiteLevel: 1.0,
			WBCoeffs:   [3]float32{1, 1, 1},
			XYZToCam:   absentMatrix(),
		},
	}
	opts.init()
	return opts
}

func TestEncodeHeaderLayout(t *testing.T) {
	c := qt.New(t)

	header, err := encodeHeader(testOptions())
	c.Assert(err, qt.IsNil)
	c.Assert(len(header), qt.Equals, 584)

	c.Assert(header[:4], qt.DeepEquals, []byte{0x4d, 0x4d, 0x00, 0x2a})
	c.Assert(binary.BigEndian.Uint32(header[4:]), qt.Equals, uint32(10))
	c.Assert(binary.BigEndian.Uint16(header[10:]), qt.Equals, uint16(21))

	// Zero next-IFD offset right after the last entry.
	endOfEntries := firstEntryOffset + 21*12
	c.Assert(binary.BigEndian.Uint32(header[endOfEntries:]), qt.Equals, uint32(0))

	entries := parseDir(c, header)
	c.Assert(findEntry(c, entries, tagStripOffsets).value, qt.Equals, uint32(584))
	c.Assert(findEntry(c, entries, tagStripByteCounts).value, qt.Equals, uint32(100*50*4))
	c.Assert(findEntry(c, entries, tagImageWidth).value, qt.Equals, uint32(100)<<16)
	c.Assert(findEntry(c, entries, tagImageLength).value, qt.Equals, uint32(50)<<16)
	c.Assert(findEntry(c, entries, tagBitsPerSample).value, qt.Equals, uint32(32)<<16)
	c.Assert(findEntry(c, entries, tagCompression).value, qt.Equals, uint32(1)<<16)
	c.Assert(findEntry(c, entries, tagPhotometric).value, qt.Equals, uint32(32803)<<16)
	c.Assert(findEntry(c, entries, tagSamplesPerPixel).value, qt.Equals, uint32(1)<<16)
	c.Assert(findEntry(c, entries, tagRowsPerStrip).value, qt.Equals, uint32(50)<<16)
	c.Assert(findEntry(c, entries, tagSampleFormat).value, qt.Equals, uint32(3)<<16)
	c.Assert(findEntry(c, entries, tagDNGVersion).value, qt.Equals, uint32(1)<<24|uint32(2)<<16)
	c.Assert(findEntry(c, entries, tagDNGBackwardVersion).value, qt.Equals, uint32(1)<<24|uint32(1)<<16)
	c.Assert(findEntry(c, entries, tagCalibrationIlluminant1).value, qt.Equals, uint32(21)<<16)
}

func TestEncodeHeaderTagOrder(t *testing.T) {
	c := qt.New(t)

	for _, mosaic := range []Mosaic{
		NewBayerMosaic(BayerRGGB),
		NewXTransMosaic([6][6]byte{}),
	} {
		opts := testOptions()
		opts.Mosaic = mosaic
		header, err := encodeHeader(opts)
		c.Assert(err, qt.IsNil)

		entries := parseDir(c, header)
		for i := 1; i < len(entries); i++ {
			c.Assert(entries[i].id > entries[i-1].id, qt.IsTrue,
				qt.Commentf("tag %d before %d", entries[i-1].id, entries[i].id))
		}
	}
}

func TestPutTagEnforcesOrder(t *testing.T) {
	c := qt.New(t)

	e := newIFDEncoder()
	c.Assert(e.putTag(tagImageWidth, typeShort, 1, 0), qt.IsNil)
	c.Assert(e.putTag(tagNewSubfileType, typeLong, 1, 0), qt.IsNotNil)
	c.Assert(e.putTag(tagImageWidth, typeShort, 1, 0), qt.IsNotNil)
	c.Assert(e.putTag(tagImageLength, typeShort, 1, 0), qt.IsNil)
}

func TestBayerCFAPattern(t *testing.T) {
	c := qt.New(t)

	noWarn := func(format string, args ...any) {
		c.Fatalf("unexpected warning: "+format, args...)
	}

	c.Assert(bayerCFAPattern(BayerRGGB, noWarn), qt.Equals, uint32(0x00010102))
	c.Assert(bayerCFAPattern(BayerGBRG, noWarn), qt.Equals, uint32(0x01020001))
	c.Assert(bayerCFAPattern(BayerGRBG, noWarn), qt.Equals, uint32(0x01000201))
	c.Assert(bayerCFAPattern(BayerBGGR, noWarn), qt.Equals, uint32(0x02010100))

	var warnings int
	warnf := func(string, ...any) { warnings++ }
	c.Assert(bayerCFAPattern(BayerPattern(0xdeadbeef), warnf), qt.Equals, uint32(0x02010100))
	c.Assert(warnings, qt.Equals, 1)
}

func TestEncodeHeaderBayer(t *testing.T) {
	c := qt.New(t)

	opts := testOptions()
	header, err := encodeHeader(opts)
	c.Assert(err, qt.IsNil)

	entries := parseDir(c, header)
	dim := findEntry(c, entries, tagCFARepeatPatternDim)
	c.Assert(dim.count, qt.Equals, uint32(2))
	c.Assert(dim.value, qt.Equals, uint32(2)<<16|2)

	cfa := findEntry(c, entries, tagCFAPattern)
	c.Assert(cfa.typ, qt.Equals, typeByte)
	c.Assert(cfa.count, qt.Equals, uint32(4))
	c.Assert(cfa.value, qt.Equals, uint32(0x00010102))
}

func TestEncodeHeaderXTrans(t *testing.T) {
	c := qt.New(t)

	var layout [6][6]byte
	for row := 0; row < 6; row++ {
		for col := 0; col < 6; col++ {
			layout[row][col] = byte((row*6 + col) % 3)
		}
	}

	opts := testOptions()
	opts.Mosaic = NewXTransMosaic(layout)
	header, err := encodeHeader(opts)
	c.Assert(err, qt.IsNil)

	entries := parseDir(c, header)
	dim := findEntry(c, entries, tagCFARepeatPatternDim)
	c.Assert(dim.value, qt.Equals, uint32(6)<<16|6)

	cfa := findEntry(c, entries, tagCFAPattern)
	c.Assert(cfa.count, qt.Equals, uint32(36))
	c.Assert(cfa.value, qt.Equals, uint32(xtransBlockOffset))

	for row := 0; row < 6; row++ {
		got := header[xtransBlockOffset+row*6 : xtransBlockOffset+row*6+6]
		c.Assert(got, qt.DeepEquals, layout[row][:], qt.Commentf("row %d", row))
	}
}

func TestEncodeColorMatrixGeneric(t *testing.T) {
	c := qt.New(t)

	header, err := encodeHeader(testOptions())
	c.Assert(err, qt.IsNil)

	for k := 0; k < 9; k++ {
		num, den := readRational(header, colorMatrixOffset+k*8)
		c.Assert(num, qt.Equals, genericColorMatrix[k], qt.Commentf("element %d", k))
		c.Assert(den, qt.Equals, int32(1000000))
	}
}

func TestEncodeColorMatrixCamera(t *testing.T) {
	c := qt.New(t)

	opts := testOptions()
	opts.Calibration.XYZToCam = [3][3]float32{
		{0.7188, -0.1641, -0.0547},
		{-0.4766, 1.2734, 0.2266},
		{-0.0938, 0.2188, 0.6484},
	}
	header, err := encodeHeader(opts)
	c.Assert(err, qt.IsNil)

	for k := 0; k < 9; k++ {
		want := int32(math.Round(float64(opts.Calibration.XYZToCam[k/3][k%3]) * 10000))
		num, den := readRational(header, colorMatrixOffset+k*8)
		c.Assert(num, qt.Equals, want, qt.Commentf("element %d", k))
		c.Assert(den, qt.Equals, int32(10000))
	}
}

func TestEncodeAsShotNeutral(t *testing.T) {
	c := qt.New(t)

	opts := testOptions()
	opts.Calibration.WBCoeffs = [3]float32{2.0, 1.0, 1.5}
	header, err := encodeHeader(opts)
	c.Assert(err, qt.IsNil)

	wantNums := []int32{500000, 1000000, 666667}
	for k := 0; k < 3; k++ {
		num, den := readRational(header, asShotOffset+k*8)
		c.Assert(num, qt.Equals, wantNums[k], qt.Commentf("channel %d", k))
		c.Assert(den, qt.Equals, int32(1000000))
	}
}

func TestEncodeWhiteLevelBits(t *testing.T) {
	c := qt.New(t)

	opts := testOptions()
	opts.Calibration.WhiteLevel = 511.5
	header, err := encodeHeader(opts)
	c.Assert(err, qt.IsNil)

	entries := parseDir(c, header)
	wl := findEntry(c, entries, tagWhiteLevel)
	c.Assert(wl.typ, qt.Equals, typeLong)
	c.Assert(wl.value, qt.Equals, math.Float32bits(511.5))
}
