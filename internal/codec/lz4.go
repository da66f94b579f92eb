package codec

import (
	"fmt"

	"github.com/pierrec/lz4/v4"

	"github.com/lattice-sci/frameark/internal/domain"
	"github.com/lattice-sci/frameark/internal/ports"
)

// LZ4Codec implements ports.ArchiveCodec using an LZ-family block
// compressor, identified by the magic number "LZ4A".
type LZ4Codec struct{}

// NewLZ4Codec returns the default archive codec.
func NewLZ4Codec() *LZ4Codec {
	return &LZ4Codec{}
}

// Compress implements ports.ArchiveCodec.
func (LZ4Codec) Compress(files []ports.CodecFile) ([]byte, error) {
	meta, err := entriesToMetadata(domain.CodecLZ4, files)
	if err != nil {
		return nil, err
	}

	payload := concatenate(files)

	bound := lz4.CompressBlockBound(len(payload))
	compressed := make([]byte, bound)

	var c lz4.Compressor
	n, err := c.CompressBlock(payload, compressed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCompressFailure, err)
	}
	compressed = compressed[:n]

	metadataSection := writeMetadata(meta)
	archive := writeContainer(metadataSection, compressed)

	if _, err := selfCheck(archive, len(files), meta); err != nil {
		return nil, err
	}

	return archive, nil
}

// Decompress implements ports.ArchiveCodec.
func (LZ4Codec) Decompress(archive []byte) ([]ports.CodecFile, error) {
	metadataSection, compressedPayload, err := splitContainer(archive)
	if err != nil {
		return nil, err
	}

	meta, err := readMetadata(metadataSection, domain.MagicLZ4)
	if err != nil {
		return nil, err
	}

	payload := make([]byte, meta.PayloadSize())
	n, err := lz4.UncompressBlock(compressedPayload, payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCorruptPayload, err)
	}
	if uint64(n) != meta.PayloadSize() {
		return nil, fmt.Errorf("%w: decompressed %d bytes, want %d", domain.ErrCorruptPayload, n, meta.PayloadSize())
	}

	return sliceByMetadata(meta, payload)
}

func concatenate(files []ports.CodecFile) []byte {
	var total int
	for _, f := range files {
		total += len(f.Bytes)
	}
	out := make([]byte, 0, total)
	for _, f := range files {
		out = append(out, f.Bytes...)
	}
	return out
}

// selfCheck performs an in-memory decompression round-trip before any
// archive bytes are written: it is the only guarantee protecting source
// files from premature deletion.
func selfCheck(archive []byte, wantCount int, meta *domain.ArchiveMetadata) ([]ports.CodecFile, error) {
	codecType, ok := domain.CodecForMagic(meta.Magic)
	if !ok {
		return nil, fmt.Errorf("%w: unrecognized magic for self-check", domain.ErrMalformedArchive)
	}
	var c ports.ArchiveCodec
	switch codecType {
	case domain.CodecLZ4:
		c = LZ4Codec{}
	case domain.CodecSnappy:
		c = SnappyCodec{}
	default:
		return nil, fmt.Errorf("%w: unsupported codec for self-check", domain.ErrMalformedArchive)
	}

	result, err := c.Decompress(archive)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIntegrityFailure, err)
	}
	if len(result) != wantCount {
		return nil, fmt.Errorf("%w: self-check produced %d entries, want %d", domain.ErrIntegrityFailure, len(result), wantCount)
	}
	for i, f := range result {
		if uint64(len(f.Bytes)) != meta.Files[i].OriginalSize {
			return nil, fmt.Errorf("%w: self-check entry %d size %d, want %d", domain.ErrIntegrityFailure, i, len(f.Bytes), meta.Files[i].OriginalSize)
		}
	}
	return result, nil
}
