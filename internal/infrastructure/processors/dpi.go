package processors

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"math"

	"github.com/histopathai/print-resize-service/pkg/errors"
)

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

const metresPerInch = 0.0254

// SetPNGPhys returns a copy of a PNG stream whose pHYs chunk declares dpi in
// both directions. Any existing pHYs chunk is replaced; the new one follows
// IHDR so it always precedes the image data.
func SetPNGPhys(data []byte, dpi int) ([]byte, error) {
	if !bytes.HasPrefix(data, pngSignature) {
		return nil, errors.NewEncodeError("not a PNG stream")
	}

	ppm := uint32(math.Round(float64(dpi) / metresPerInch))
	phys := make([]byte, 9)
	binary.BigEndian.PutUint32(phys[0:4], ppm)
	binary.BigEndian.PutUint32(phys[4:8], ppm)
	phys[8] = 1 // unit: metre

	var out bytes.Buffer
	out.Grow(len(data) + 21)
	out.Write(pngSignature)

	inserted := false
	err := walkPNGChunks(data, func(typ string, chunk, payload []byte) {
		if typ != "pHYs" {
			out.Write(chunk)
		}
		if typ == "IHDR" && !inserted {
			writePNGChunk(&out, "pHYs", phys)
			inserted = true
		}
	})
	if err != nil {
		return nil, err
	}
	if !inserted {
		return nil, errors.NewEncodeError("PNG stream has no IHDR chunk")
	}
	return out.Bytes(), nil
}

// PNGPhysDPI reads the resolution declared by a PNG pHYs chunk.
func PNGPhysDPI(data []byte) (int, bool) {
	if !bytes.HasPrefix(data, pngSignature) {
		return 0, false
	}
	dpi, found := 0, false
	_ = walkPNGChunks(data, func(typ string, chunk, payload []byte) {
		if typ == "pHYs" && len(payload) == 9 && payload[8] == 1 && !found {
			ppm := binary.BigEndian.Uint32(payload[0:4])
			dpi = int(math.Round(float64(ppm) * metresPerInch))
			found = true
		}
	})
	return dpi, found
}

func walkPNGChunks(data []byte, fn func(typ string, chunk, payload []byte)) error {
	pos := len(pngSignature)
	for pos < len(data) {
		if pos+8 > len(data) {
			return errors.NewEncodeError("truncated PNG chunk header").
				WithContext("offset", pos)
		}
		length := int(binary.BigEndian.Uint32(data[pos : pos+4]))
		typ := string(data[pos+4 : pos+8])
		end := pos + 12 + length
		if length < 0 || end > len(data) {
			return errors.NewEncodeError("truncated PNG chunk").
				WithContext("chunk", typ).
				WithContext("offset", pos)
		}
		fn(typ, data[pos:end], data[pos+8:pos+8+length])
		pos = end
	}
	return nil
}

func writePNGChunk(out *bytes.Buffer, typ string, payload []byte) {
	var header [8]byte
	binary.BigEndian.PutUint32(header[0:4], uint32(len(payload)))
	copy(header[4:8], typ)
	out.Write(header[:])
	out.Write(payload)

	crc := crc32.NewIEEE()
	crc.Write(header[4:8])
	crc.Write(payload)
	var sum [4]byte
	binary.BigEndian.PutUint32(sum[:], crc.Sum32())
	out.Write(sum[:])
}

// jfifHeaderLen covers SOI through the APP0 thumbnail dimensions.
const jfifHeaderLen = 20

// SetJPEGDensity returns a copy of a JPEG stream whose JFIF APP0 segment
// declares dpi in both directions. A JFIF segment directly after SOI is
// patched in place, otherwise one is inserted.
func SetJPEGDensity(data []byte, dpi int) ([]byte, error) {
	if len(data) < 4 || data[0] != 0xFF || data[1] != 0xD8 {
		return nil, errors.NewEncodeError("not a JPEG stream")
	}
	if dpi <= 0 || dpi > math.MaxUint16 {
		return nil, errors.NewEncodeError("dpi does not fit a JFIF density").
			WithContext("dpi", dpi)
	}

	if hasJFIF(data) {
		out := make([]byte, len(data))
		copy(out, data)
		out[13] = 1 // units: dots per inch
		binary.BigEndian.PutUint16(out[14:16], uint16(dpi))
		binary.BigEndian.PutUint16(out[16:18], uint16(dpi))
		return out, nil
	}

	app0 := []byte{
		0xFF, 0xE0, // APP0
		0x00, 0x10, // segment length
		'J', 'F', 'I', 'F', 0x00,
		0x01, 0x01, // version 1.01
		0x01,       // units: dots per inch
		0x00, 0x00, // x density
		0x00, 0x00, // y density
		0x00, 0x00, // no thumbnail
	}
	binary.BigEndian.PutUint16(app0[12:14], uint16(dpi))
	binary.BigEndian.PutUint16(app0[14:16], uint16(dpi))

	out := make([]byte, 0, len(data)+len(app0))
	out = append(out, data[:2]...)
	out = append(out, app0...)
	out = append(out, data[2:]...)
	return out, nil
}

// JPEGDensity reads the JFIF density of a JPEG stream when it is given in
// dots per inch.
func JPEGDensity(data []byte) (x, y int, ok bool) {
	if !hasJFIF(data) || data[13] != 1 {
		return 0, 0, false
	}
	return int(binary.BigEndian.Uint16(data[14:16])), int(binary.BigEndian.Uint16(data[16:18])), true
}

func hasJFIF(data []byte) bool {
	return len(data) >= jfifHeaderLen &&
		data[0] == 0xFF && data[1] == 0xD8 &&
		data[2] == 0xFF && data[3] == 0xE0 &&
		bytes.Equal(data[6:11], []byte("JFIF\x00"))
}
