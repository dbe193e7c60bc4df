package dngwrite

import "fmt"

// TIFF field types used by the directory entries we emit (TIFF 6.0).
const (
	typeByte      uint16 = 1
	typeASCII     uint16 = 2
	typeShort     uint16 = 3
	typeLong      uint16 = 4
	typeRational  uint16 = 5
	typeSRational uint16 = 10
)

// Directory tag ids written by this package, in ascending order.
const (
	tagNewSubfileType         uint16 = 254
	tagImageWidth             uint16 = 256
	tagImageLength            uint16 = 257
	tagBitsPerSample          uint16 = 258
	tagCompression            uint16 = 259
	tagPhotometric            uint16 = 262
	tagStripOffsets           uint16 = 273
	tagOrientation            uint16 = 274
	tagSamplesPerPixel        uint16 = 277
	tagRowsPerStrip           uint16 = 278
	tagStripByteCounts        uint16 = 279
	tagPlanarConfig           uint16 = 284
	tagSampleFormat           uint16 = 339
	tagCFARepeatPatternDim    uint16 = 33421
	tagCFAPattern             uint16 = 33422
	tagDNGVersion             uint16 = 50706
	tagDNGBackwardVersion     uint16 = 50707
	tagWhiteLevel             uint16 = 50717
	tagColorMatrix1           uint16 = 50721
	tagAsShotNeutral          uint16 = 50728
	tagCalibrationIlluminant1 uint16 = 50778
)

const (
	byteOrderBigEndian = 0x4d4d
	tiffMagic          = 42

	compressionNone   = 1
	photometricCFA    = 32803
	sampleFormatFloat = 3
	illuminantD65     = 21
)

// dngFields maps the tag ids this writer emits to their TIFF/DNG names.
// Diagnostics only; the wire format carries ids, not names.
var dngFields = map[uint16]string{
	tagNewSubfileType:         "NewSubfileType",
	tagImageWidth:             "ImageWidth",
	tagImageLength:            "ImageLength",
	tagBitsPerSample:          "BitsPerSample",
	tagCompression:            "Compression",
	tagPhotometric:            "PhotometricInterpretation",
	tagStripOffsets:           "StripOffsets",
	tagOrientation:            "Orientation",
	tagSamplesPerPixel:        "SamplesPerPixel",
	tagRowsPerStrip:           "RowsPerStrip",
	tagStripByteCounts:        "StripByteCounts",
	tagPlanarConfig:           "PlanarConfiguration",
	tagSampleFormat:           "SampleFormat",
	tagCFARepeatPatternDim:    "CFARepeatPatternDim",
	tagCFAPattern:             "CFAPattern",
	tagDNGVersion:             "DNGVersion",
	tagDNGBackwardVersion:     "DNGBackwardVersion",
	tagWhiteLevel:             "WhiteLevel",
	tagColorMatrix1:           "ColorMatrix1",
	tagAsShotNeutral:          "AsShotNeutral",
	tagCalibrationIlluminant1: "CalibrationIlluminant1",
}

func tagName(id uint16) string {
	if name, found := dngFields[id]; found {
		return name
	}
	return fmt.Sprintf("%s0x%x", UnknownPrefix, id)
}
