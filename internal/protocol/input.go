package protocol

import "math"

// AngleKeep in the first input byte leaves the current heading unchanged.
const AngleKeep = 255

// Input is a decoded binary steering frame.
type Input struct {
	HasAngle bool
	Angle    float64
	Boost    bool
}

// DecodeInput parses a 1-2 byte input frame. The first byte maps 0..254 onto [-π, π];
// a second byte of 1 requests boost.
func DecodeInput(b []byte) (Input, bool) {
	if len(b) < 1 || len(b) > 2 {
		return Input{}, false
	}
	var in Input
	if b[0] != AngleKeep {
		in.HasAngle = true
		in.Angle = float64(b[0])/254*2*math.Pi - math.Pi
	}
	if len(b) == 2 && b[1] == 1 {
		in.Boost = true
	}
	return in, true
}

func EncodeAngle(angle float64) byte {
	for angle < -math.Pi {
		angle += 2 * math.Pi
	}
	for angle > math.Pi {
		angle -= 2 * math.Pi
	}
	v := math.Round((angle + math.Pi) / (2 * math.Pi) * 254)
	return byte(v)
}

func EncodeInput(angle float64, keep, boost bool) []byte {
	b := byte(AngleKeep)
	if !keep {
		b = EncodeAngle(angle)
	}
	if boost {
		return []byte{b, 1}
	}
	return []byte{b}
}
