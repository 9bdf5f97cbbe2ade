package storage

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"time"
)

// Index file layout:
//
//	magic "DQIX" | uint32 version | uint32 metadata length | metadata JSON |
//	float32 vectors (little-endian, chunk order) | uint32 CRC-32 of all preceding bytes
const (
	indexMagic   = "DQIX"
	indexVersion = 1
	headerSize   = 12
	trailerSize  = 4
)

type indexMeta struct {
	Spaces map[string]int `json:"spaces"` // Space -> dimension
	Chunks []chunkMeta    `json:"chunks"`
}

type chunkMeta struct {
	ID        string    `json:"id"`
	DocID     string    `json:"doc_id"`
	Source    string    `json:"source"`
	Kind      string    `json:"kind"`
	Position  int       `json:"position"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	Space     string    `json:"space"`
}

// encodeIndex serialises chunks and their space dimensions.
func encodeIndex(dims map[string]int, chunks []Chunk) ([]byte, error) {
	meta := indexMeta{Spaces: dims, Chunks: make([]chunkMeta, len(chunks))}
	if meta.Spaces == nil {
		meta.Spaces = map[string]int{}
	}
	for i, c := range chunks {
		meta.Chunks[i] = chunkMeta{
			ID:        c.ID,
			DocID:     c.DocID,
			Source:    c.Source,
			Kind:      c.Kind,
			Position:  c.Position,
			Text:      c.Text,
			CreatedAt: c.CreatedAt,
			Space:     c.Space,
		}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshal index metadata: %w", err)
	}

	buf := new(bytes.Buffer)
	buf.WriteString(indexMagic)
	_ = binary.Write(buf, binary.LittleEndian, uint32(indexVersion))
	_ = binary.Write(buf, binary.LittleEndian, uint32(len(metaJSON)))
	buf.Write(metaJSON)
	for _, c := range chunks {
		_ = binary.Write(buf, binary.LittleEndian, c.Vector)
	}
	_ = binary.Write(buf, binary.LittleEndian, crc32.ChecksumIEEE(buf.Bytes()))
	return buf.Bytes(), nil
}

// decodeIndex parses an index file. Every failure wraps ErrStoreCorrupted.
func decodeIndex(data []byte) (map[string]int, []Chunk, error) {
	if len(data) < headerSize+trailerSize {
		return nil, nil, fmt.Errorf("%w: truncated file (%d bytes)", ErrStoreCorrupted, len(data))
	}
	if string(data[:4]) != indexMagic {
		return nil, nil, fmt.Errorf("%w: bad magic", ErrStoreCorrupted)
	}

	body, trailer := data[:len(data)-trailerSize], data[len(data)-trailerSize:]
	if got, want := crc32.ChecksumIEEE(body), binary.LittleEndian.Uint32(trailer); got != want {
		return nil, nil, fmt.Errorf("%w: checksum mismatch", ErrStoreCorrupted)
	}
	if v := binary.LittleEndian.Uint32(data[4:8]); v != indexVersion {
		return nil, nil, fmt.Errorf("%w: unsupported version %d", ErrStoreCorrupted, v)
	}

	metaLen := int(binary.LittleEndian.Uint32(data[8:12]))
	if metaLen > len(body)-headerSize {
		return nil, nil, fmt.Errorf("%w: metadata length %d exceeds file", ErrStoreCorrupted, metaLen)
	}
	var meta indexMeta
	if err := json.Unmarshal(body[headerSize:headerSize+metaLen], &meta); err != nil {
		return nil, nil, fmt.Errorf("%w: metadata: %v", ErrStoreCorrupted, err)
	}

	r := bytes.NewReader(body[headerSize+metaLen:])
	chunks := make([]Chunk, len(meta.Chunks))
	for i, m := range meta.Chunks {
		dim, ok := meta.Spaces[m.Space]
		if !ok || dim <= 0 {
			return nil, nil, fmt.Errorf("%w: chunk %s has unknown space %q", ErrStoreCorrupted, m.ID, m.Space)
		}
		vec := make([]float32, dim)
		if err := binary.Read(r, binary.LittleEndian, vec); err != nil {
			return nil, nil, fmt.Errorf("%w: vector %d: %v", ErrStoreCorrupted, i, err)
		}
		chunks[i] = Chunk{
			ID:        m.ID,
			DocID:     m.DocID,
			Source:    m.Source,
			Kind:      m.Kind,
			Position:  m.Position,
			Text:      m.Text,
			CreatedAt: m.CreatedAt,
			Space:     m.Space,
			Vector:    vec,
		}
	}
	if r.Len() != 0 {
		return nil, nil, fmt.Errorf("%w: %d trailing bytes", ErrStoreCorrupted, r.Len())
	}
	if meta.Spaces == nil {
		meta.Spaces = map[string]int{}
	}
	return meta.Spaces, chunks, nil
}
