package tiff

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/lattice-sci/frameark/internal/domain"
)

// alignment is the pre-strip padding boundary enforced on every
// writeTiffInt32Aligned output.
const alignment = 4096

// WriteAligned writes img (width w, height h) as a classic,
// uncompressed, single-strip, int32 TIFF, padding the file to a
// 4096-byte boundary before the strip payload. Non-image tags come
// from hdr, matching the original's writeTiffInt32Aligned.
func WriteAligned(path string, img []float32, w, h uint32, hdr Header) error {
	if uint32(len(img)) != w*h {
		return fmt.Errorf("tiff: image length %d does not match %dx%d", len(img), w, h)
	}

	bo := binary.LittleEndian
	stripOffset := uint32(8)
	if stripOffset%alignment != 0 {
		stripOffset += alignment - stripOffset%alignment
	}
	stripLen := w * h * 4

	buf := make([]byte, stripOffset)
	buf[0], buf[1] = 'I', 'I'
	bo.PutUint16(buf[2:4], 42)
	// ifdOffset is patched in once the strip has been appended.

	row := make([]byte, 4)
	for _, v := range img {
		bo.PutUint32(row, uint32(int32(v)))
		buf = append(buf, row...)
	}
	if uint32(len(buf))-stripOffset != stripLen {
		return fmt.Errorf("tiff: internal strip length mismatch")
	}

	ifdOffset := uint32(len(buf))
	entries := alignedEntries(w, h, stripOffset, stripLen, hdr)
	ifdBytes, err := encodeIFD(bo, entries, ifdOffset)
	if err != nil {
		return err
	}
	buf = append(buf, ifdBytes...)

	bo.PutUint32(buf[4:8], ifdOffset)

	return os.WriteFile(path, buf, 0o644)
}

type fieldValue struct {
	tag   uint16
	typ   uint16
	count uint32
	bytes []byte // already byte-order-encoded
}

func alignedEntries(w, h, stripOffset, stripLen uint32, hdr Header) []fieldValue {
	bo := binary.LittleEndian
	u16 := func(v uint16) []byte { b := make([]byte, 2); bo.PutUint16(b, v); return b }
	u32 := func(v uint32) []byte { b := make([]byte, 4); bo.PutUint32(b, v); return b }
	rational := func(v float64) []byte {
		b := make([]byte, 8)
		bo.PutUint32(b[0:4], uint32(v*1000))
		bo.PutUint32(b[4:8], 1000)
		return b
	}

	entries := []fieldValue{
		{tagImageWidth, typeLong, 1, u32(w)},
		{tagImageLength, typeLong, 1, u32(h)},
		{tagBitsPerSample, typeShort, 1, u16(32)},
		{tagCompression, typeShort, 1, u16(1)},
		{tagPhotometric, typeShort, 1, u16(hdr.Photometric)},
		{tagStripOffsets, typeLong, 1, u32(stripOffset)},
		{tagOrientation, typeShort, 1, u16(hdr.Orientation)},
		{tagSamplesPerPixel, typeShort, 1, u16(1)},
		{tagRowsPerStrip, typeLong, 1, u32(h)},
		{tagStripByteCounts, typeLong, 1, u32(stripLen)},
		{tagXResolution, typeRational, 1, rational(hdr.XResolution)},
		{tagYResolution, typeRational, 1, rational(hdr.YResolution)},
		{tagPlanarConfig, typeShort, 1, u16(hdr.PlanarConfig)},
		{tagResolutionUnit, typeShort, 1, u16(hdr.ResolutionUnit)},
		{tagSampleFormat, typeShort, 1, u16(SampleFormatInt)},
	}
	if hdr.DateTime != "" {
		entries = append(entries, asciiField(tagDateTime, hdr.DateTime))
	}
	if hdr.Software != "" {
		entries = append(entries, asciiField(tagSoftware, hdr.Software))
	}
	if hdr.Description != "" {
		entries = append(entries, asciiField(tagImageDesc, hdr.Description))
	}
	if hdr.Artist != "" {
		entries = append(entries, asciiField(tagArtist, hdr.Artist))
	}
	if hdr.Copyright != "" {
		entries = append(entries, asciiField(tagCopyright, hdr.Copyright))
	}
	return entries
}

func asciiField(tag uint16, s string) fieldValue {
	b := append([]byte(s), 0)
	return fieldValue{tag, typeASCII, uint32(len(b)), b}
}

// encodeIFD lays out one IFD: count(2) + 12-byte entries (sorted by
// tag per the TIFF spec) + nextIFDOffset(4)=0, followed immediately by
// the overflow area for any value wider than 4 bytes. base is the file
// offset the IFD is written at, so overflow value offsets are absolute.
func encodeIFD(bo binary.ByteOrder, entries []fieldValue, base uint32) ([]byte, error) {
	sortFields(entries)

	tableSize := 2 + 12*len(entries) + 4
	var overflow []byte
	table := make([]byte, tableSize)
	bo.PutUint16(table[0:2], uint16(len(entries)))

	pos := 2
	overflowBase := base + uint32(tableSize)
	for _, e := range entries {
		bo.PutUint16(table[pos:pos+2], e.tag)
		bo.PutUint16(table[pos+2:pos+4], e.typ)
		bo.PutUint32(table[pos+4:pos+8], e.count)
		if len(e.bytes) <= 4 {
			copy(table[pos+8:pos+12], e.bytes)
		} else {
			bo.PutUint32(table[pos+8:pos+12], overflowBase+uint32(len(overflow)))
			overflow = append(overflow, e.bytes...)
		}
		pos += 12
	}
	// nextIFDOffset left as zero: this is the only IFD in the file.
	return append(table, overflow...), nil
}

func sortFields(entries []fieldValue) {
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && entries[j-1].tag > entries[j].tag; j-- {
			entries[j-1], entries[j] = entries[j], entries[j-1]
		}
	}
}

// WriteWithOriginalHeader copies originalTiff verbatim except for the
// strip payload, which is overwritten with img encoded as int32: the
// exact byte image of the first contributing frame is reused so every
// non-image tag (including vendor private tags) survives untouched.
// Fails with
// domain.ErrHeaderMismatch if the encoded payload does not fit within
// the original's strip capacity.
func WriteWithOriginalHeader(path string, img []float32, w, h uint32, originalTiff []byte) error {
	d, err := decode(originalTiff)
	if err != nil {
		return err
	}

	offsets, byteCounts, err := d.strips()
	if err != nil {
		return err
	}
	if len(offsets) == 0 {
		return fmt.Errorf("%w: no strips in original TIFF", domain.ErrHeaderMismatch)
	}

	data := make([]byte, len(originalTiff))
	copy(data, originalTiff)

	needed := uint32(len(img)) * 4
	var capacity uint32
	for _, bc := range byteCounts {
		capacity += bc
	}
	if needed > capacity {
		return fmt.Errorf("%w: encoded payload %d bytes exceeds original strip capacity %d bytes", domain.ErrHeaderMismatch, needed, capacity)
	}

	row := make([]byte, 4)
	written := uint32(0)
	for i, off := range offsets {
		stripCap := byteCounts[i]
		n := stripCap
		if needed-written < n {
			n = needed - written
		}
		for p := uint32(0); p < n; p += 4 {
			d.bo.PutUint32(row, uint32(int32(img[(written+p)/4])))
			copy(data[off+p:off+p+4], row)
		}
		written += n
		if written >= needed {
			break
		}
	}

	return os.WriteFile(path, data, 0o644)
}
