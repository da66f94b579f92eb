// Package codec implements the archive container format: a
// length-prefixed metadata section followed by a length-prefixed
// compressed payload, with one [ports.ArchiveCodec] implementation per
// supported [domain.Codec].
package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/lattice-sci/frameark/internal/domain"
	"github.com/lattice-sci/frameark/internal/ports"
)

// writeMetadata serializes meta into its on-disk metadataSection layout.
func writeMetadata(meta *domain.ArchiveMetadata) []byte {
	var buf bytes.Buffer
	var u32 [4]byte
	var u64 [8]byte

	binary.LittleEndian.PutUint32(u32[:], meta.Magic)
	buf.Write(u32[:])
	binary.LittleEndian.PutUint32(u32[:], meta.Version)
	buf.Write(u32[:])
	binary.LittleEndian.PutUint64(u64[:], uint64(len(meta.Files)))
	buf.Write(u64[:])

	for _, f := range meta.Files {
		binary.LittleEndian.PutUint32(u32[:], uint32(len(f.Name)))
		buf.Write(u32[:])
		buf.WriteString(f.Name)

		binary.LittleEndian.PutUint32(u32[:], uint32(len(f.Ext)))
		buf.Write(u32[:])
		buf.WriteString(f.Ext)

		binary.LittleEndian.PutUint64(u64[:], f.OriginalSize)
		buf.Write(u64[:])
		binary.LittleEndian.PutUint64(u64[:], f.PayloadOffset)
		buf.Write(u64[:])
	}

	return buf.Bytes()
}

// readMetadata parses a metadataSection, validating magic and version
// against wantMagic.
func readMetadata(data []byte, wantMagic uint32) (*domain.ArchiveMetadata, error) {
	r := bytes.NewReader(data)

	var magic, version uint32
	var fileCount uint64
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return nil, fmt.Errorf("%w: reading magic: %v", domain.ErrMalformedArchive, err)
	}
	if magic != wantMagic {
		return nil, fmt.Errorf("%w: magic %#x, want %#x", domain.ErrMalformedArchive, magic, wantMagic)
	}
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("%w: reading version: %v", domain.ErrMalformedArchive, err)
	}
	if version != domain.ArchiveVersion {
		return nil, fmt.Errorf("%w: version %d", domain.ErrUnsupportedVersion, version)
	}
	if err := binary.Read(r, binary.LittleEndian, &fileCount); err != nil {
		return nil, fmt.Errorf("%w: reading fileCount: %v", domain.ErrMalformedArchive, err)
	}

	files := make([]domain.FileEntry, fileCount)
	for i := range files {
		name, err := readLenPrefixedString(r)
		if err != nil {
			return nil, fmt.Errorf("%w: reading name[%d]: %v", domain.ErrMalformedArchive, i, err)
		}
		ext, err := readLenPrefixedString(r)
		if err != nil {
			return nil, fmt.Errorf("%w: reading ext[%d]: %v", domain.ErrMalformedArchive, i, err)
		}
		var originalSize, payloadOffset uint64
		if err := binary.Read(r, binary.LittleEndian, &originalSize); err != nil {
			return nil, fmt.Errorf("%w: reading originalSize[%d]: %v", domain.ErrMalformedArchive, i, err)
		}
		if err := binary.Read(r, binary.LittleEndian, &payloadOffset); err != nil {
			return nil, fmt.Errorf("%w: reading payloadOffset[%d]: %v", domain.ErrMalformedArchive, i, err)
		}
		files[i] = domain.FileEntry{
			Name:          name,
			Ext:           ext,
			OriginalSize:  originalSize,
			PayloadOffset: payloadOffset,
		}
	}

	return &domain.ArchiveMetadata{Magic: magic, Version: version, Files: files}, nil
}

func readLenPrefixedString(r *bytes.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// writeContainer assembles the full archive byte stream from a metadata
// section and a compressed payload, using the two-length-prefix outer
// framing shared by every codec.
func writeContainer(metadataSection, compressedPayload []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(8 + len(metadataSection) + 8 + len(compressedPayload))

	var u64 [8]byte
	binary.LittleEndian.PutUint64(u64[:], uint64(len(metadataSection)))
	buf.Write(u64[:])
	buf.Write(metadataSection)
	binary.LittleEndian.PutUint64(u64[:], uint64(len(compressedPayload)))
	buf.Write(u64[:])
	buf.Write(compressedPayload)

	return buf.Bytes()
}

// splitContainer reverses writeContainer, returning the metadata and
// compressed-payload sections without interpreting either.
func splitContainer(archive []byte) (metadataSection, compressedPayload []byte, err error) {
	if len(archive) < 8 {
		return nil, nil, fmt.Errorf("%w: truncated metadataSize", domain.ErrMalformedArchive)
	}
	metaSize := binary.LittleEndian.Uint64(archive[:8])
	archive = archive[8:]

	if uint64(len(archive)) < metaSize {
		return nil, nil, fmt.Errorf("%w: truncated metadataSection", domain.ErrMalformedArchive)
	}
	metadataSection = archive[:metaSize]
	archive = archive[metaSize:]

	if len(archive) < 8 {
		return nil, nil, fmt.Errorf("%w: truncated compressedSize", domain.ErrMalformedArchive)
	}
	compSize := binary.LittleEndian.Uint64(archive[:8])
	archive = archive[8:]

	if uint64(len(archive)) < compSize {
		return nil, nil, fmt.Errorf("%w: truncated compressedPayload", domain.ErrMalformedArchive)
	}
	compressedPayload = archive[:compSize]

	return metadataSection, compressedPayload, nil
}

// entriesToMetadata builds an ArchiveMetadata for files, computing each
// entry's cumulative PayloadOffset.
func entriesToMetadata(codecType domain.Codec, files []ports.CodecFile) (*domain.ArchiveMetadata, error) {
	names := make([]string, len(files))
	exts := make([]string, len(files))
	sizes := make([]uint64, len(files))
	for i, f := range files {
		names[i] = f.Name
		exts[i] = f.Ext
		sizes[i] = uint64(len(f.Bytes))
	}
	meta, ok := domain.BuildMetadata(codecType, names, exts, sizes)
	if !ok {
		return nil, fmt.Errorf("%w: building metadata", domain.ErrMalformedArchive)
	}
	return meta, nil
}

// sliceByMetadata cuts a flat decompressed payload into per-file byte
// ranges per the metadata table, validating that payload length matches
// the metadata sum and that offsets are contiguous and start at zero.
func sliceByMetadata(meta *domain.ArchiveMetadata, payload []byte) ([]ports.CodecFile, error) {
	if uint64(len(payload)) != meta.PayloadSize() {
		return nil, fmt.Errorf("%w: payload %d bytes, metadata sum %d", domain.ErrCorruptPayload, len(payload), meta.PayloadSize())
	}

	out := make([]ports.CodecFile, len(meta.Files))
	var expected uint64
	for i, f := range meta.Files {
		if f.PayloadOffset != expected {
			return nil, fmt.Errorf("%w: entry %d offset %d, expected %d", domain.ErrMalformedArchive, i, f.PayloadOffset, expected)
		}
		end := f.PayloadOffset + f.OriginalSize
		if end > uint64(len(payload)) {
			return nil, fmt.Errorf("%w: entry %d exceeds payload bounds", domain.ErrMalformedArchive, i)
		}
		out[i] = ports.CodecFile{
			Name:  f.Name,
			Ext:   f.Ext,
			Bytes: payload[f.PayloadOffset:end],
		}
		expected = end
	}
	return out, nil
}
