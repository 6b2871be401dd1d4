package world

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
)

// stateDigest hashes everything the simulation reads on the next tick: arena shape,
// grid ownership, agents in id order and the round clock.
func (w *World) stateDigest(nowTick uint64) string {
	h := sha256.New()
	var tmp [8]byte
	u64 := func(v uint64) {
		binary.LittleEndian.PutUint64(tmp[:], v)
		h.Write(tmp[:])
	}
	f64 := func(v float64) { u64(math.Float64bits(v)) }

	u64(nowTick)
	u64(uint64(w.round.Number))
	u64(uint64(w.round.EndsAt))
	u64(uint64(w.grid.WorldSize))
	u64(uint64(w.rects.Version()))
	for _, c := range w.grid.Cells() {
		binary.LittleEndian.PutUint16(tmp[:2], c)
		h.Write(tmp[:2])
	}
	for _, id := range w.order {
		a := w.agents[id]
		u64(uint64(a.ID))
		h.Write([]byte(a.Name))
		h.Write([]byte{0, byte(a.State), boolByte(a.Joined)})
		f64(a.X)
		f64(a.Y)
		f64(a.DX)
		f64(a.DY)
		u64(uint64(a.Score))
		u64(uint64(a.Kills))
		u64(uint64(a.RespawnAt))
		u64(uint64(len(a.Trail)))
		for _, p := range a.Trail {
			u64(uint64(p.X)<<32 | uint64(uint32(p.Y)))
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
