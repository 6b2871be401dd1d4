package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// TerritoryRect is one row-run rectangle on the wire. Coordinates are world pixels.
type TerritoryRect struct {
	X, Y, W, H uint16
	Owner      uint16
	R, G, B    uint8
}

type RectKey struct {
	X, Y uint16
}

const territoryRectSize = 13

// MaxFrameEntries is the largest added or removed count a territory frame can carry.
const MaxFrameEntries = 1<<16 - 1

var errShortFrame = errors.New("frame truncated")

// ErrFrameTooLarge is returned when a territory frame would overflow its u16 counts.
var ErrFrameTooLarge = errors.New("territory frame too large")

// EncodeTerritory writes a little-endian territory diff frame:
// u16 added, added × (x,y,w,h,owner u16; r,g,b u8), u16 removed, removed × (x,y u16).
func EncodeTerritory(added []TerritoryRect, removed []RectKey) ([]byte, error) {
	if len(added) > MaxFrameEntries || len(removed) > MaxFrameEntries {
		return nil, fmt.Errorf("%w: added=%d removed=%d", ErrFrameTooLarge, len(added), len(removed))
	}
	b := make([]byte, 0, 4+len(added)*territoryRectSize+len(removed)*4)
	b = binary.LittleEndian.AppendUint16(b, uint16(len(added)))
	for _, r := range added {
		b = binary.LittleEndian.AppendUint16(b, r.X)
		b = binary.LittleEndian.AppendUint16(b, r.Y)
		b = binary.LittleEndian.AppendUint16(b, r.W)
		b = binary.LittleEndian.AppendUint16(b, r.H)
		b = binary.LittleEndian.AppendUint16(b, r.Owner)
		b = append(b, r.R, r.G, r.B)
	}
	b = binary.LittleEndian.AppendUint16(b, uint16(len(removed)))
	for _, k := range removed {
		b = binary.LittleEndian.AppendUint16(b, k.X)
		b = binary.LittleEndian.AppendUint16(b, k.Y)
	}
	return b, nil
}

func DecodeTerritory(b []byte) ([]TerritoryRect, []RectKey, error) {
	if len(b) < 2 {
		return nil, nil, errShortFrame
	}
	n := int(binary.LittleEndian.Uint16(b))
	off := 2
	if len(b) < off+n*territoryRectSize+2 {
		return nil, nil, errShortFrame
	}
	added := make([]TerritoryRect, n)
	for i := range added {
		p := b[off:]
		added[i] = TerritoryRect{
			X:     binary.LittleEndian.Uint16(p[0:]),
			Y:     binary.LittleEndian.Uint16(p[2:]),
			W:     binary.LittleEndian.Uint16(p[4:]),
			H:     binary.LittleEndian.Uint16(p[6:]),
			Owner: binary.LittleEndian.Uint16(p[8:]),
			R:     p[10], G: p[11], B: p[12],
		}
		off += territoryRectSize
	}
	m := int(binary.LittleEndian.Uint16(b[off:]))
	off += 2
	if len(b) < off+m*4 {
		return nil, nil, errShortFrame
	}
	removed := make([]RectKey, m)
	for i := range removed {
		removed[i] = RectKey{X: binary.LittleEndian.Uint16(b[off:]), Y: binary.LittleEndian.Uint16(b[off+2:])}
		off += 4
	}
	return added, removed, nil
}

// EncodeTerritoryFull packs every current rect as additions and zstd-compresses the frame.
func EncodeTerritoryFull(rects []TerritoryRect) ([]byte, error) {
	enc, _, err := zstdCodec()
	if err != nil {
		return nil, err
	}
	raw, err := EncodeTerritory(rects, nil)
	if err != nil {
		return nil, err
	}
	return enc.EncodeAll(raw, nil), nil
}

func DecodeTerritoryFull(b []byte) ([]TerritoryRect, error) {
	_, dec, err := zstdCodec()
	if err != nil {
		return nil, err
	}
	raw, err := dec.DecodeAll(b, nil)
	if err != nil {
		return nil, fmt.Errorf("territory full: %w", err)
	}
	added, _, err := DecodeTerritory(raw)
	return added, err
}

type TrailPoint struct {
	X, Y int
}

func clampDelta(d int) int8 {
	if d < -128 {
		return -128
	}
	if d > 127 {
		return 127
	}
	return int8(d)
}

func clampU16(v int) uint16 {
	if v < 0 {
		return 0
	}
	if v > 0xFFFF {
		return 0xFFFF
	}
	return uint16(v)
}

// EncodeTrailFull writes u16 start x,y followed by i8 dx,dy pairs.
func EncodeTrailFull(pts []TrailPoint) []byte {
	if len(pts) == 0 {
		return nil
	}
	b := make([]byte, 0, 4+2*(len(pts)-1))
	b = binary.LittleEndian.AppendUint16(b, clampU16(pts[0].X))
	b = binary.LittleEndian.AppendUint16(b, clampU16(pts[0].Y))
	return appendTrailDeltas(b, pts[0], pts[1:])
}

// EncodeTrailDelta writes only i8 pairs for pts, relative to the last point already sent.
func EncodeTrailDelta(last TrailPoint, pts []TrailPoint) []byte {
	return appendTrailDeltas(make([]byte, 0, 2*len(pts)), last, pts)
}

func appendTrailDeltas(b []byte, prev TrailPoint, pts []TrailPoint) []byte {
	for _, p := range pts {
		b = append(b, byte(clampDelta(p.X-prev.X)), byte(clampDelta(p.Y-prev.Y)))
		prev = p
	}
	return b
}

func DecodeTrailFull(b []byte) ([]TrailPoint, error) {
	if len(b) < 4 || (len(b)-4)%2 != 0 {
		return nil, errShortFrame
	}
	start := TrailPoint{X: int(binary.LittleEndian.Uint16(b)), Y: int(binary.LittleEndian.Uint16(b[2:]))}
	return append([]TrailPoint{start}, DecodeTrailDelta(start, b[4:])...), nil
}

func DecodeTrailDelta(last TrailPoint, b []byte) []TrailPoint {
	out := make([]TrailPoint, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		last = TrailPoint{X: last.X + int(int8(b[i])), Y: last.Y + int(int8(b[i+1]))}
		out = append(out, last)
	}
	return out
}

// ParseColor reads "#rrggbb"; malformed input yields grey.
func ParseColor(s string) (r, g, b uint8) {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return 0x80, 0x80, 0x80
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0x80, 0x80, 0x80
	}
	return uint8(v >> 16), uint8(v >> 8), uint8(v)
}
