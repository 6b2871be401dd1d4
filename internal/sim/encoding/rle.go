package encoding

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
)

// MaxDecodedCells bounds DecodeRLE output; the largest arena is 500x500 cells.
const MaxDecodedCells = 1 << 20

// EncodeRLE encodes grid owner ids as base64(varint owner, varint run) pairs.
func EncodeRLE(ids []uint16) string {
	var buf bytes.Buffer
	var tmp [binary.MaxVarintLen64]byte

	for i := 0; i < len(ids); {
		owner := ids[i]
		j := i + 1
		for j < len(ids) && ids[j] == owner {
			j++
		}
		n := binary.PutUvarint(tmp[:], uint64(owner))
		buf.Write(tmp[:n])
		n = binary.PutUvarint(tmp[:], uint64(j-i))
		buf.Write(tmp[:n])
		i = j
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func DecodeRLE(b64 string) ([]uint16, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}
	var out []uint16
	for i := 0; i < len(raw); {
		owner, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		run, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		if owner > 0xFFFF {
			return nil, fmt.Errorf("owner id too large: %d", owner)
		}
		if run == 0 || uint64(len(out))+run > MaxDecodedCells {
			return nil, fmt.Errorf("bad run length %d at %d", run, i)
		}
		for k := uint64(0); k < run; k++ {
			out = append(out, uint16(owner))
		}
	}
	return out, nil
}
