package codec

import (
	"fmt"

	"github.com/golang/snappy"

	"github.com/lattice-sci/frameark/internal/domain"
	"github.com/lattice-sci/frameark/internal/ports"
)

// SnappyCodec implements ports.ArchiveCodec with magic "SNPY", a second
// selectable codec alongside the default LZ4 one.
type SnappyCodec struct{}

// NewSnappyCodec returns the supplemental Snappy archive codec.
func NewSnappyCodec() *SnappyCodec {
	return &SnappyCodec{}
}

// Compress implements ports.ArchiveCodec.
func (SnappyCodec) Compress(files []ports.CodecFile) ([]byte, error) {
	meta, err := entriesToMetadata(domain.CodecSnappy, files)
	if err != nil {
		return nil, err
	}

	payload := concatenate(files)
	compressed := snappy.Encode(nil, payload)

	metadataSection := writeMetadata(meta)
	archive := writeContainer(metadataSection, compressed)

	if _, err := selfCheck(archive, len(files), meta); err != nil {
		return nil, err
	}

	return archive, nil
}

// Decompress implements ports.ArchiveCodec.
func (SnappyCodec) Decompress(archive []byte) ([]ports.CodecFile, error) {
	metadataSection, compressedPayload, err := splitContainer(archive)
	if err != nil {
		return nil, err
	}

	meta, err := readMetadata(metadataSection, domain.MagicSnappy)
	if err != nil {
		return nil, err
	}

	payload, err := snappy.Decode(nil, compressedPayload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCorruptPayload, err)
	}

	return sliceByMetadata(meta, payload)
}
