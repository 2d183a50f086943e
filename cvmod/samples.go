package cvmod

import (
	"encoding/binary"
	"math"
)

// Samples are stored in native byte order, which is what OpenCV buffers use.
var byteOrder = binary.NativeEndian

// Saturate converts v to the range of d the way OpenCV's saturate_cast does:
// integer depths round half to even and clamp, float depths pass through.
func Saturate(d Depth, v float64) float64 {
	switch d {
	case Depth8U:
		return clampRound(v, 0, math.MaxUint8)
	case Depth8S:
		return clampRound(v, math.MinInt8, math.MaxInt8)
	case Depth16U:
		return clampRound(v, 0, math.MaxUint16)
	case Depth16S:
		return clampRound(v, math.MinInt16, math.MaxInt16)
	case Depth32S:
		return clampRound(v, math.MinInt32, math.MaxInt32)
	case Depth32F:
		return float64(float32(v))
	default:
		return v
	}
}

func clampRound(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	r := math.RoundToEven(v)
	if r < lo {
		return lo
	}
	if r > hi {
		return hi
	}
	return r
}

// PutSample writes v, saturated to d, into b. b must hold d.Size() bytes.
func PutSample(b []byte, d Depth, v float64) {
	v = Saturate(d, v)
	switch d {
	case Depth8U:
		b[0] = uint8(v)
	case Depth8S:
		b[0] = byte(int8(v))
	case Depth16U:
		byteOrder.PutUint16(b, uint16(v))
	case Depth16S:
		byteOrder.PutUint16(b, uint16(int16(v)))
	case Depth32S:
		byteOrder.PutUint32(b, uint32(int32(v)))
	case Depth32F:
		byteOrder.PutUint32(b, math.Float32bits(float32(v)))
	case Depth64F:
		byteOrder.PutUint64(b, math.Float64bits(v))
	}
}

// Sample reads one sample of depth d from b.
func Sample(b []byte, d Depth) float64 {
	switch d {
	case Depth8U:
		return float64(b[0])
	case Depth8S:
		return float64(int8(b[0]))
	case Depth16U:
		return float64(byteOrder.Uint16(b))
	case Depth16S:
		return float64(int16(byteOrder.Uint16(b)))
	case Depth32S:
		return float64(int32(byteOrder.Uint32(b)))
	case Depth32F:
		return float64(math.Float32frombits(byteOrder.Uint32(b)))
	case Depth64F:
		return math.Float64frombits(byteOrder.Uint64(b))
	default:
		return 0
	}
}

// EncodeSamples packs values into a buffer of depth d, saturating each one.
func EncodeSamples(d Depth, values []float64) []byte {
	size := d.Size()
	out := make([]byte, len(values)*size)
	for i, v := range values {
		PutSample(out[i*size:], d, v)
	}
	return out
}

// DecodeSamples unpacks every sample of depth d in b.
func DecodeSamples(d Depth, b []byte) []float64 {
	size := d.Size()
	if size == 0 {
		return nil
	}
	out := make([]float64, len(b)/size)
	for i := range out {
		out[i] = Sample(b[i*size:], d)
	}
	return out
}
