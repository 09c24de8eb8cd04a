package asset

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

const (
	glbMagic     = 0x46546C67 // "glTF"
	glbVersion   = 2
	glbChunkJSON = 0x4E4F534A // "JSON"

	// maxDocumentSize bounds the JSON part of an asset; binary buffers are
	// never read.
	maxDocumentSize = 16 << 20
)

// FormatError reports an asset that is not a readable glTF 2.0 document.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return "invalid glTF asset: " + e.Reason
}

// readDocument returns the glTF JSON document from either a binary .glb
// container or a plain .gltf stream.
func readDocument(r io.Reader) ([]byte, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(4)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, "peek header")
	}
	if len(head) == 4 && binary.LittleEndian.Uint32(head) == glbMagic {
		return readGLB(br)
	}

	doc, err := io.ReadAll(io.LimitReader(br, maxDocumentSize+1))
	if err != nil {
		return nil, errors.Wrap(err, "read document")
	}
	if len(doc) > maxDocumentSize {
		return nil, &FormatError{Reason: "document too large"}
	}
	return doc, nil
}

// readGLB reads the 12-byte header and the first chunk, which the format
// requires to be JSON.
func readGLB(r io.Reader) ([]byte, error) {
	var header struct {
		Magic   uint32
		Version uint32
		Length  uint32
	}
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, &FormatError{Reason: "truncated header"}
	}
	if header.Version != glbVersion {
		return nil, &FormatError{Reason: "unsupported container version"}
	}

	var chunk struct {
		Length uint32
		Type   uint32
	}
	if err := binary.Read(r, binary.LittleEndian, &chunk); err != nil {
		return nil, &FormatError{Reason: "truncated chunk header"}
	}
	if chunk.Type != glbChunkJSON {
		return nil, &FormatError{Reason: "first chunk is not JSON"}
	}
	if chunk.Length > maxDocumentSize {
		return nil, &FormatError{Reason: "document too large"}
	}

	doc := make([]byte, chunk.Length)
	if _, err := io.ReadFull(r, doc); err != nil {
		return nil, &FormatError{Reason: "truncated JSON chunk"}
	}
	// The JSON chunk is padded with spaces to a 4-byte boundary.
	return bytes.TrimRight(doc, " \x00"), nil
}

// parseVariants extracts the KHR_materials_variants names in declaration
// order. A document without the extension has no variants.
func parseVariants(doc []byte) ([]string, error) {
	names := []string{}
	d := jx.DecodeBytes(doc)
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		if string(key) != "extensions" {
			return d.Skip()
		}
		return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
			if string(key) != "KHR_materials_variants" {
				return d.Skip()
			}
			return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
				if string(key) != "variants" {
					return d.Skip()
				}
				return d.Arr(func(d *jx.Decoder) error {
					var name string
					if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
						if string(key) != "name" {
							return d.Skip()
						}
						s, err := d.Str()
						name = s
						return err
					}); err != nil {
						return err
					}
					if name != "" {
						names = append(names, name)
					}
					return nil
				})
			})
		})
	})
	if err != nil {
		return nil, &FormatError{Reason: err.Error()}
	}
	return names, nil
}
