package domain

// Codec identifies which block compressor an archive's payload was
// written with. The metadata framing is identical across codecs; only
// the magic number and the compression primitive differ.
type Codec string

const (
	// CodecLZ4 is the default archive codec.
	CodecLZ4 Codec = "lz4"

	// CodecSnappy is the supplemental codec carried over from the
	// original tool's dual-codec design (see SPEC_FULL.md).
	CodecSnappy Codec = "snappy"
)

const (
	// MagicLZ4 is "LZ4A" read little-endian, the magic number of an
	// LZ4-coded archive's metadata section.
	MagicLZ4 uint32 = 0x41345A4C

	// MagicSnappy is "SNPY" read little-endian, the magic number of a
	// Snappy-coded archive's metadata section.
	MagicSnappy uint32 = 0x59504E53

	// ArchiveVersion is the only metadata version either codec emits or
	// accepts today.
	ArchiveVersion uint32 = 1
)

// MagicFor returns the magic number an archive of the given codec must
// carry, and false if the codec is unrecognized.
func MagicFor(c Codec) (uint32, bool) {
	switch c {
	case CodecLZ4:
		return MagicLZ4, true
	case CodecSnappy:
		return MagicSnappy, true
	default:
		return 0, false
	}
}

// CodecForMagic is the inverse of MagicFor, used by the decompressor to
// pick an implementation purely from the bytes on disk.
func CodecForMagic(magic uint32) (Codec, bool) {
	switch magic {
	case MagicLZ4:
		return CodecLZ4, true
	case MagicSnappy:
		return CodecSnappy, true
	default:
		return "", false
	}
}

// FileEntry is one row of an archive's metadata table: the original
// file's name and extension, its uncompressed size, and its offset
// within the concatenated uncompressed payload.
type FileEntry struct {
	Name          string
	Ext           string
	OriginalSize  uint64
	PayloadOffset uint64
}

// ArchiveMetadata is the fully-parsed metadata section of an archive
// container.
type ArchiveMetadata struct {
	Magic   uint32
	Version uint32
	Files   []FileEntry
}

// PayloadSize returns the sum of all entries' OriginalSize, the expected
// length of the decompressed payload.
func (m *ArchiveMetadata) PayloadSize() uint64 {
	var total uint64
	for _, f := range m.Files {
		total += f.OriginalSize
	}
	return total
}

// BuildMetadata lays out the metadata table for a codec given an
// ordered list of (name, ext, size) triples, computing each entry's
// cumulative PayloadOffset so that payloadOffset[0] == 0 and
// payloadOffset[i+1] == payloadOffset[i] + originalSize[i].
func BuildMetadata(codec Codec, names, exts []string, sizes []uint64) (*ArchiveMetadata, bool) {
	magic, ok := MagicFor(codec)
	if !ok || len(names) != len(exts) || len(names) != len(sizes) {
		return nil, false
	}
	files := make([]FileEntry, len(names))
	var offset uint64
	for i := range names {
		files[i] = FileEntry{
			Name:          names[i],
			Ext:           exts[i],
			OriginalSize:  sizes[i],
			PayloadOffset: offset,
		}
		offset += sizes[i]
	}
	return &ArchiveMetadata{Magic: magic, Version: ArchiveVersion, Files: files}, true
}
