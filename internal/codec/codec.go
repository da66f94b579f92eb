package codec

import (
	"fmt"

	"github.com/lattice-sci/frameark/internal/domain"
	"github.com/lattice-sci/frameark/internal/ports"
)

// For resolves the ports.ArchiveCodec implementation for a configured
// domain.Codec identifier.
func For(c domain.Codec) (ports.ArchiveCodec, error) {
	switch c {
	case domain.CodecLZ4, "":
		return NewLZ4Codec(), nil
	case domain.CodecSnappy:
		return NewSnappyCodec(), nil
	default:
		return nil, fmt.Errorf("%w: unknown codec %q", domain.ErrInvalidConfig, c)
	}
}

// DetectAndDecompress picks a codec by reading the magic number out of
// archive's metadata section, without the caller needing to know which
// codec originally wrote it. Used by the archive reader, which consumes
// archives that may have been written with either codec.
func DetectAndDecompress(archive []byte) ([]ports.CodecFile, error) {
	metadataSection, _, err := splitContainer(archive)
	if err != nil {
		return nil, err
	}
	if len(metadataSection) < 4 {
		return nil, fmt.Errorf("%w: metadata too short to contain a magic number", domain.ErrMalformedArchive)
	}
	magic := uint32(metadataSection[0]) | uint32(metadataSection[1])<<8 | uint32(metadataSection[2])<<16 | uint32(metadataSection[3])<<24

	codecType, ok := domain.CodecForMagic(magic)
	if !ok {
		return nil, fmt.Errorf("%w: unrecognized magic %#x", domain.ErrMalformedArchive, magic)
	}

	c, err := For(codecType)
	if err != nil {
		return nil, err
	}
	return c.Decompress(archive)
}
