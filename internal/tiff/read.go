package tiff

import (
	"encoding/binary"
	"fmt"
	"math"
)

// ReadFloat decodes a single-strip-or-multi-strip grayscale TIFF,
// promoting uint8/16/32, int8/16/32, or float32 samples to float32.
// Exactly one sample per pixel is required.
func ReadFloat(data []byte) (image []float32, width, height uint32, hdr Header, err error) {
	d, err := decode(data)
	if err != nil {
		return nil, 0, 0, Header{}, err
	}

	width, ok := d.uint32Field(tagImageWidth)
	if !ok {
		return nil, 0, 0, Header{}, fmt.Errorf("tiff: missing ImageWidth")
	}
	height, ok = d.uint32Field(tagImageLength)
	if !ok {
		return nil, 0, 0, Header{}, fmt.Errorf("tiff: missing ImageLength")
	}

	samplesPerPixel, ok := d.uint16Field(tagSamplesPerPixel)
	if !ok {
		samplesPerPixel = 1
	}
	if samplesPerPixel != 1 {
		return nil, 0, 0, Header{}, fmt.Errorf("tiff: only single sample per pixel is supported, got %d", samplesPerPixel)
	}

	bitsPerSample, ok := d.uint16Field(tagBitsPerSample)
	if !ok {
		bitsPerSample = 8
	}
	sampleFormat, ok := d.uint16Field(tagSampleFormat)
	if !ok {
		sampleFormat = SampleFormatUint
	}

	hdr = readHeaderFields(d)

	rowBytes, readRow, err := rowReader(d.bo, sampleFormat, bitsPerSample)
	if err != nil {
		return nil, 0, 0, Header{}, err
	}

	pixels, err := readStrippedRows(d, width, height, rowBytes, readRow)
	if err != nil {
		return nil, 0, 0, Header{}, err
	}
	return pixels, width, height, hdr, nil
}

func readHeaderFields(d *decoded) Header {
	hdr := DefaultHeader()
	if v, ok := d.uint16Field(tagCompression); ok {
		hdr.Compression = v
	}
	if v, ok := d.uint16Field(tagPhotometric); ok {
		hdr.Photometric = v
	}
	if v, ok := d.uint16Field(tagOrientation); ok {
		hdr.Orientation = v
	}
	if v, ok := d.uint16Field(tagPlanarConfig); ok {
		hdr.PlanarConfig = v
	}
	if v, ok := d.rationalField(tagXResolution); ok {
		hdr.XResolution = v
	}
	if v, ok := d.rationalField(tagYResolution); ok {
		hdr.YResolution = v
	}
	if v, ok := d.uint16Field(tagResolutionUnit); ok {
		hdr.ResolutionUnit = v
	}
	if v, ok := d.asciiField(tagDateTime); ok {
		hdr.DateTime = v
	}
	if v, ok := d.asciiField(tagSoftware); ok {
		hdr.Software = v
	}
	if v, ok := d.asciiField(tagImageDesc); ok {
		hdr.Description = v
	}
	if v, ok := d.asciiField(tagArtist); ok {
		hdr.Artist = v
	}
	if v, ok := d.asciiField(tagCopyright); ok {
		hdr.Copyright = v
	}
	return hdr
}

// rowReader returns the per-sample byte width and a decoder for one
// sample at a given byte offset, for every sample layout this package
// promotes to float32.
func rowReader(bo binary.ByteOrder, sampleFormat, bitsPerSample uint16) (sampleBytes int, readSample func(b []byte) float32, err error) {
	switch {
	case sampleFormat == SampleFormatFloat && bitsPerSample == 32:
		return 4, func(b []byte) float32 {
			return math.Float32frombits(bo.Uint32(b))
		}, nil
	case sampleFormat == SampleFormatUint && bitsPerSample == 8:
		return 1, func(b []byte) float32 { return float32(b[0]) }, nil
	case sampleFormat == SampleFormatUint && bitsPerSample == 16:
		return 2, func(b []byte) float32 { return float32(bo.Uint16(b)) }, nil
	case sampleFormat == SampleFormatUint && bitsPerSample == 32:
		return 4, func(b []byte) float32 { return float32(bo.Uint32(b)) }, nil
	case sampleFormat == SampleFormatInt && bitsPerSample == 8:
		return 1, func(b []byte) float32 { return float32(int8(b[0])) }, nil
	case sampleFormat == SampleFormatInt && bitsPerSample == 16:
		return 2, func(b []byte) float32 { return float32(int16(bo.Uint16(b))) }, nil
	case sampleFormat == SampleFormatInt && bitsPerSample == 32:
		return 4, func(b []byte) float32 { return float32(int32(bo.Uint32(b))) }, nil
	default:
		return 0, nil, fmt.Errorf("tiff: unsupported sample layout (format=%d bits=%d)", sampleFormat, bitsPerSample)
	}
}

// readStrippedRows concatenates every strip's bytes and decodes
// width*height samples out of the result, independent of how rows are
// distributed across strips (RowsPerStrip is not required to divide
// evenly into height for the last strip).
func readStrippedRows(d *decoded, width, height uint32, sampleBytes int, readSample func([]byte) float32) ([]float32, error) {
	offsets, byteCounts, err := d.strips()
	if err != nil {
		return nil, err
	}

	var payload []byte
	for i := range offsets {
		start, end := offsets[i], offsets[i]+byteCounts[i]
		if int(end) > len(d.data) {
			return nil, fmt.Errorf("tiff: strip %d out of range", i)
		}
		payload = append(payload, d.data[start:end]...)
	}

	needed := int(width) * int(height) * sampleBytes
	if len(payload) < needed {
		return nil, fmt.Errorf("tiff: strip payload too short: have %d need %d", len(payload), needed)
	}

	out := make([]float32, int(width)*int(height))
	for i := range out {
		off := i * sampleBytes
		out[i] = readSample(payload[off : off+sampleBytes])
	}
	return out, nil
}
