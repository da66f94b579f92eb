package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/lattice-sci/frameark/internal/domain"
	"github.com/lattice-sci/frameark/internal/ports"
)

func sampleFiles() []ports.CodecFile {
	return []ports.CodecFile{
		{Name: "test_01_00001", Ext: "tif", Bytes: bytes.Repeat([]byte{0xAB}, 1024)},
		{Name: "test_01_00002", Ext: "tif", Bytes: bytes.Repeat([]byte{0x01, 0x02}, 512)},
		{Name: "test_01_00003", Ext: "tif", Bytes: []byte{}},
		{Name: "test_01_00004", Ext: "tif", Bytes: []byte("hello world")},
	}
}

func TestLZ4RoundTrip(t *testing.T) {
	testCodecRoundTrip(t, NewLZ4Codec())
}

func TestSnappyRoundTrip(t *testing.T) {
	testCodecRoundTrip(t, NewSnappyCodec())
}

func testCodecRoundTrip(t *testing.T, c ports.ArchiveCodec) {
	files := sampleFiles()
	archive, err := c.Compress(files)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}

	got, err := c.Decompress(archive)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if len(got) != len(files) {
		t.Fatalf("Decompress returned %d entries, want %d", len(got), len(files))
	}
	for i, f := range files {
		if got[i].Name != f.Name || got[i].Ext != f.Ext {
			t.Errorf("entry %d name/ext = %q/%q, want %q/%q", i, got[i].Name, got[i].Ext, f.Name, f.Ext)
		}
		if !bytes.Equal(got[i].Bytes, f.Bytes) {
			t.Errorf("entry %d bytes mismatch", i)
		}
	}
}

func TestArchiveSizeInvariant(t *testing.T) {
	files := sampleFiles()
	archive, err := NewLZ4Codec().Compress(files)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}

	metaSize := binary.LittleEndian.Uint64(archive[:8])
	compSize := binary.LittleEndian.Uint64(archive[8+metaSize : 8+metaSize+8])
	want := 16 + metaSize + compSize
	if got := uint64(len(archive)); got != want {
		t.Errorf("archive size = %d, want %d (16 + metadataSize + compressedSize)", got, want)
	}
}

func TestDetectAndDecompressPicksCodec(t *testing.T) {
	files := sampleFiles()

	lz4Archive, err := NewLZ4Codec().Compress(files)
	if err != nil {
		t.Fatalf("lz4 Compress: %v", err)
	}
	snappyArchive, err := NewSnappyCodec().Compress(files)
	if err != nil {
		t.Fatalf("snappy Compress: %v", err)
	}

	for _, archive := range [][]byte{lz4Archive, snappyArchive} {
		got, err := DetectAndDecompress(archive)
		if err != nil {
			t.Fatalf("DetectAndDecompress: %v", err)
		}
		if len(got) != len(files) {
			t.Fatalf("DetectAndDecompress returned %d entries, want %d", len(got), len(files))
		}
	}
}

func TestDecompressUnsupportedVersion(t *testing.T) {
	archive, err := NewLZ4Codec().Compress(sampleFiles())
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}

	metaSize := binary.LittleEndian.Uint64(archive[:8])
	versionOffset := 8 + 4 // magic then version within metadataSection
	binary.LittleEndian.PutUint32(archive[versionOffset:versionOffset+4], 99)
	_ = metaSize

	_, err = NewLZ4Codec().Decompress(archive)
	if !errors.Is(err, domain.ErrUnsupportedVersion) {
		t.Errorf("Decompress with bumped version err = %v, want ErrUnsupportedVersion", err)
	}
}

func TestDecompressMalformedArchive(t *testing.T) {
	cases := map[string][]byte{
		"too short for metadataSize":         {1, 2, 3},
		"metadataSize exceeds remaining data": func() []byte {
			var buf bytes.Buffer
			var u64 [8]byte
			binary.LittleEndian.PutUint64(u64[:], 1000)
			buf.Write(u64[:])
			buf.Write([]byte{1, 2})
			return buf.Bytes()
		}(),
	}
	for name, archive := range cases {
		if _, err := NewLZ4Codec().Decompress(archive); !errors.Is(err, domain.ErrMalformedArchive) {
			t.Errorf("%s: err = %v, want ErrMalformedArchive", name, err)
		}
	}
}

func TestDecompressWrongMagic(t *testing.T) {
	archive, err := NewLZ4Codec().Compress(sampleFiles())
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	// Decompressing an LZ4 archive with the Snappy codec trips the magic check.
	if _, err := NewSnappyCodec().Decompress(archive); !errors.Is(err, domain.ErrMalformedArchive) {
		t.Errorf("cross-codec Decompress err = %v, want ErrMalformedArchive", err)
	}
}

func TestCodecForRejectsUnknown(t *testing.T) {
	if _, err := For("bogus"); !errors.Is(err, domain.ErrInvalidConfig) {
		t.Errorf("For(bogus) err = %v, want ErrInvalidConfig", err)
	}
	if _, err := For(domain.CodecLZ4); err != nil {
		t.Errorf("For(lz4) err = %v, want nil", err)
	}
	if _, err := For(""); err != nil {
		t.Errorf("For(\"\") err = %v, want nil (defaults to lz4)", err)
	}
}
