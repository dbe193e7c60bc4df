package dngwrite

import (
	"encoding/binary"
	"fmt"
	"math"
)

// The header is a fixed 584-byte region: file header at 0, directory
// entries from 12, then inline value blocks in pre-reserved slots. Because
// the blocks are not appended dynamically, the header size does not depend
// on the mosaic variant and the pixel strip always starts at byte 584.
const (
	headerSize       = 584
	firstIFDOffset   = 10
	entryCountOffset = 10
	firstEntryOffset = 12

	xtransBlockOffset = 400 // 36 mosaic bytes, 6x6 layouts only
	colorMatrixOffset = 480 // 9 signed rationals, row-major
	asShotOffset      = 556 // 3 rationals
)

// Generic XYZ->sRGB (D65) matrix, scaled by 1e6. Used for ColorMatrix1
// whenever the camera calibration matrix is absent.
var genericColorMatrix = [9]int32{
	3240454, -1537138, -498531,
	-969266, 1876010, 41556,
	55643, -204025, 1057225,
}

const (
	genericMatrixDen = 1000000
	asShotDen        = 1000000

	// Camera XYZ->CAM matrices ship pre-scaled by this factor, which then
	// doubles as the shared rational denominator.
	adobeCoeffFactor = 10000
)

// ifdEncoder accumulates directory entries into the fixed header buffer.
// TIFF readers rely on entries being sorted by tag id, so putTag enforces
// strictly ascending insertion instead of trusting its callers.
type ifdEncoder struct {
	buf    [headerSize]byte
	next   int // write cursor for the next 12-byte entry
	count  uint16
	lastID uint16
}

func newIFDEncoder() *ifdEncoder {
	e := &ifdEncoder{next: firstEntryOffset}
	binary.BigEndian.PutUint16(e.buf[0:], byteOrderBigEndian) // "MM"
	binary.BigEndian.PutUint16(e.buf[2:], tiffMagic)
	binary.BigEndian.PutUint32(e.buf[4:], firstIFDOffset)
	return e
}

// putTag appends one 12-byte directory entry: id, type, element count, and
// the inline value or the offset of the value block.
func (e *ifdEncoder) putTag(id, typ uint16, count, value uint32) error {
	if e.count > 0 && id <= e.lastID {
		return fmt.Errorf("dngwrite: tag %s (%d) after %s (%d) breaks ascending IFD order",
			tagName(id), id, tagName(e.lastID), e.lastID)
	}
	if e.next+12 > xtransBlockOffset {
		return fmt.Errorf("dngwrite: directory full: no room for tag %s (%d)", tagName(id), id)
	}
	binary.BigEndian.PutUint16(e.buf[e.next:], id)
	binary.BigEndian.PutUint16(e.buf[e.next+2:], typ)
	binary.BigEndian.PutUint32(e.buf[e.next+4:], count)
	binary.BigEndian.PutUint32(e.buf[e.next+8:], value)
	e.next += 12
	e.count++
	e.lastID = id
	return nil
}

// finish terminates the directory with a zero next-IFD offset and patches
// the entry count as a full two-byte field.
func (e *ifdEncoder) finish() {
	binary.BigEndian.PutUint32(e.buf[e.next:], 0)
	binary.BigEndian.PutUint16(e.buf[entryCountOffset:], e.count)
}

// putRational writes one num/den pair into an inline value block.
func (e *ifdEncoder) putRational(offset int, num, den int32) {
	binary.BigEndian.PutUint32(e.buf[offset:], uint32(num))
	binary.BigEndian.PutUint32(e.buf[offset+4:], uint32(den))
}

// bayerCFAPattern returns the inline 4-byte CFAPattern value for a 2x2
// arrangement. Unrecognized codes get the BGGR arrangement; the capture
// pipeline has always treated BGGR as the default for unknown sensor codes,
// so that stays a warning rather than an error.
func bayerCFAPattern(p BayerPattern, warnf func(string, ...any)) uint32 {
	switch p {
	case BayerRGGB:
		return 0<<24 | 1<<16 | 1<<8 | 2
	case BayerGBRG:
		return 1<<24 | 2<<16 | 0<<8 | 1
	case BayerGRBG:
		return 1<<24 | 0<<16 | 2<<8 | 1
	case BayerBGGR:
		return 2<<24 | 1<<16 | 1<<8 | 0
	default:
		warnf("unrecognized Bayer pattern code %#x, falling back to BGGR", uint32(p))
		return 2<<24 | 1<<16 | 1<<8 | 0
	}
}

// encodeColorMatrix fills the ColorMatrix1 block: the camera calibration
// matrix scaled to integers when present, else the generic matrix.
func encodeColorMatrix(e *ifdEncoder, cal Calibration) {
	m := genericColorMatrix
	den := int32(genericMatrixDen)
	if cal.HasCameraMatrix() {
		for k := 0; k < 3; k++ {
			for i := 0; i < 3; i++ {
				m[k*3+i] = int32(math.Round(float64(cal.XYZToCam[k][i]) * adobeCoeffFactor))
			}
		}
		den = adobeCoeffFactor
	}
	for k := 0; k < 9; k++ {
		e.putRational(colorMatrixOffset+k*8, m[k], den)
	}
}

// encodeAsShotNeutral fills the AsShotNeutral block with the white balance
// coefficients normalized against the green channel. Callers must reject
// zero coefficients first.
func encodeAsShotNeutral(e *ifdEncoder, wb [3]float32) {
	for k := 0; k < 3; k++ {
		num := math.Round(asShotDen * float64(wb[1]) / float64(wb[k]))
		e.putRational(asShotOffset+k*8, int32(num), asShotDen)
	}
}

// encodeHeader assembles the byte-exact 584-byte header for opts. The
// options must already be validated.
func encodeHeader(opts Options) ([]byte, error) {
	e := newIFDEncoder()

	width := uint32(opts.Frame.Width)
	height := uint32(opts.Frame.Height)

	var patternDim, cfaCount, cfaValue uint32
	if opts.Mosaic.isXTrans {
		patternDim = 6<<16 | 6
		cfaCount = 36
		cfaValue = xtransBlockOffset
	} else {
		patternDim = 2<<16 | 2
		cfaCount = 4
		cfaValue = bayerCFAPattern(opts.Mosaic.bayer, opts.Warnf)
	}

	// SHORT values sit in the upper two bytes of the big-endian value field.
	tags := []struct {
		id, typ      uint16
		count, value uint32
	}{
		{tagNewSubfileType, typeLong, 1, 0},
		{tagImageWidth, typeShort, 1, width << 16},
		{tagImageLength, typeShort, 1, height << 16},
		{tagBitsPerSample, typeShort, 1, 32 << 16},
		{tagCompression, typeShort, 1, compressionNone << 16},
		{tagPhotometric, typeShort, 1, photometricCFA << 16},
		{tagStripOffsets, typeLong, 1, headerSize},
		{tagOrientation, typeShort, 1, 1 << 16},
		{tagSamplesPerPixel, typeShort, 1, 1 << 16},
		{tagRowsPerStrip, typeShort, 1, height << 16},
		{tagStripByteCounts, typeLong, 1, width * height * 4},
		{tagPlanarConfig, typeShort, 1, 1 << 16},
		{tagSampleFormat, typeShort, 1, sampleFormatFloat << 16},
		{tagCFARepeatPatternDim, typeShort, 2, patternDim},
		{tagCFAPattern, typeByte, cfaCount, cfaValue},
		{tagDNGVersion, typeByte, 4, 1<<24 | 2<<16},
		{tagDNGBackwardVersion, typeByte, 4, 1<<24 | 1<<16},
		{tagWhiteLevel, typeLong, 1, floatBits(opts.Calibration.WhiteLevel)},
		{tagColorMatrix1, typeSRational, 9, colorMatrixOffset},
		{tagAsShotNeutral, typeRational, 3, asShotOffset},
		{tagCalibrationIlluminant1, typeShort, 1, illuminantD65 << 16},
	}
	for _, t := range tags {
		if err := e.putTag(t.id, t.typ, t.count, t.value); err != nil {
			return nil, err
		}
	}
	e.finish()

	if opts.Mosaic.isXTrans {
		// Single bytes, so no byte order concerns.
		for row := 0; row < 6; row++ {
			copy(e.buf[xtransBlockOffset+row*6:], opts.Mosaic.xtrans[row][:])
		}
	}
	encodeColorMatrix(e, opts.Calibration)
	encodeAsShotNeutral(e, opts.Calibration.WBCoeffs)

	return e.buf[:], nil
}
