package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

func TestTerritoryFrameLayout(t *testing.T) {
	added := []TerritoryRect{{X: 10, Y: 20, W: 30, H: 10, Owner: 0x0102, R: 0xef, G: 0x44, B: 0x44}}
	removed := []RectKey{{X: 40, Y: 50}}
	b, err := EncodeTerritory(added, removed)
	if err != nil {
		t.Fatalf("EncodeTerritory: %v", err)
	}
	if len(b) != 2+13+2+4 {
		t.Fatalf("len=%d", len(b))
	}
	want := []byte{1, 0, 10, 0, 20, 0, 30, 0, 10, 0, 0x02, 0x01, 0xef, 0x44, 0x44, 1, 0, 40, 0, 50, 0}
	if !bytes.Equal(b, want) {
		t.Fatalf("frame=%v", b)
	}
	a2, r2, err := DecodeTerritory(b)
	if err != nil {
		t.Fatalf("DecodeTerritory: %v", err)
	}
	if len(a2) != 1 || a2[0] != added[0] || len(r2) != 1 || r2[0] != removed[0] {
		t.Fatalf("decoded %+v %+v", a2, r2)
	}
	if _, _, err := DecodeTerritory(b[:5]); err == nil {
		t.Fatalf("truncated frame accepted")
	}
}

func TestTerritoryFrameRejectsOverflow(t *testing.T) {
	if _, err := EncodeTerritory(make([]TerritoryRect, MaxFrameEntries), nil); err != nil {
		t.Fatalf("max entries refused: %v", err)
	}
	if _, err := EncodeTerritory(nil, make([]RectKey, MaxFrameEntries+1)); !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("removed overflow: %v", err)
	}
	if _, err := EncodeTerritoryFull(make([]TerritoryRect, MaxFrameEntries+1)); !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("full overflow: %v", err)
	}
}

func TestTerritoryFullCompressed(t *testing.T) {
	var rects []TerritoryRect
	for i := 0; i < 200; i++ {
		rects = append(rects, TerritoryRect{X: uint16(i * 10), Y: 30, W: 10, H: 10, Owner: 3, R: 1, G: 2, B: 3})
	}
	b, err := EncodeTerritoryFull(rects)
	if err != nil {
		t.Fatalf("EncodeTerritoryFull: %v", err)
	}
	got, err := DecodeTerritoryFull(b)
	if err != nil {
		t.Fatalf("DecodeTerritoryFull: %v", err)
	}
	if len(got) != len(rects) || got[199] != rects[199] {
		t.Fatalf("got %d rects", len(got))
	}
}

func TestTrailFullAndDelta(t *testing.T) {
	pts := []TrailPoint{{100, 200}, {110, 200}, {110, 190}, {105, 185}}
	full := EncodeTrailFull(pts)
	if binary.LittleEndian.Uint16(full) != 100 || binary.LittleEndian.Uint16(full[2:]) != 200 || len(full) != 4+6 {
		t.Fatalf("full=%v", full)
	}
	got, err := DecodeTrailFull(full)
	if err != nil {
		t.Fatalf("DecodeTrailFull: %v", err)
	}
	for i := range pts {
		if got[i] != pts[i] {
			t.Fatalf("point %d = %v", i, got[i])
		}
	}
	delta := EncodeTrailDelta(pts[3], []TrailPoint{{100, 185}})
	if len(delta) != 2 || int8(delta[0]) != -5 || delta[1] != 0 {
		t.Fatalf("delta=%v", delta)
	}
	if EncodeTrailFull(nil) != nil {
		t.Fatalf("empty trail encoded")
	}
}

func TestInputDecode(t *testing.T) {
	if _, ok := DecodeInput(nil); ok {
		t.Fatalf("empty input accepted")
	}
	if _, ok := DecodeInput([]byte{1, 2, 3}); ok {
		t.Fatalf("3-byte input accepted")
	}
	in, ok := DecodeInput([]byte{AngleKeep, 1})
	if !ok || in.HasAngle || !in.Boost {
		t.Fatalf("keep+boost: %+v", in)
	}
	in, _ = DecodeInput([]byte{127})
	if !in.HasAngle || math.Abs(in.Angle) > 0.03 {
		t.Fatalf("mid angle: %+v", in)
	}
	in, _ = DecodeInput([]byte{0})
	if math.Abs(in.Angle+math.Pi) > 1e-9 {
		t.Fatalf("min angle: %v", in.Angle)
	}
	if b := EncodeAngle(math.Pi / 2); b != 191 {
		t.Fatalf("EncodeAngle(pi/2)=%d", b)
	}
}

func TestParseColor(t *testing.T) {
	r, g, b := ParseColor("#3b82f6")
	if r != 0x3b || g != 0x82 || b != 0xf6 {
		t.Fatalf("ParseColor=%x %x %x", r, g, b)
	}
	if r, _, _ := ParseColor("nope"); r != 0x80 {
		t.Fatalf("fallback=%x", r)
	}
}

func TestMsgpackStateEnvelope(t *testing.T) {
	in := StateMsg{Type: TypeState, TerritoryVersion: 9, Players: []PlayerView{{ID: 4, X: 10, Y: 20, State: StateActive}}}
	b, err := Encode(in)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	typ, err := PeekType(b)
	if err != nil || typ != TypeState {
		t.Fatalf("PeekType=%q %v", typ, err)
	}
	var out StateMsg
	if err := Decode(b, &out); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if out.TerritoryVersion != 9 || len(out.Players) != 1 || out.Players[0].ID != 4 {
		t.Fatalf("out=%+v", out)
	}
}

func TestMinimapCompression(t *testing.T) {
	bm := make([]byte, 900)
	bm[5] = 2
	z, err := CompressMinimap(bm)
	if err != nil {
		t.Fatalf("CompressMinimap: %v", err)
	}
	got, err := DecompressMinimap(z)
	if err != nil || !bytes.Equal(got, bm) {
		t.Fatalf("DecompressMinimap: %v", err)
	}
}
