package packet

import (
	"encoding/binary"
	"fmt"
	"math"
)

// ImageShape returns the shape for an h x w x c uint8 image frame.
func ImageShape(h, w, c int) Shape {
	return Shape{
		Name:        fmt.Sprintf("image_%dx%dx%d", h, w, c),
		PayloadSize: h * w * c,
	}
}

// InferenceShape returns the extended shape for an inference result of
// chunk rows by dof columns of float32 values. The extended header records
// when inference began and at what rate.
func InferenceShape(chunk, dof int) Shape {
	return Shape{
		Name:        fmt.Sprintf("inference_%dx%d", chunk, dof),
		PayloadSize: chunk * dof * 4,
		Extended:    true,
	}
}

// FixedShape returns a simple shape with a literal payload size.
func FixedShape(name string, size int) Shape {
	return Shape{Name: name, PayloadSize: size}
}

// The shape catalog in active use. These mirror the wire contract with
// remote peers; adding shapes is fine, changing an existing one is not.
var (
	Image640x480 = ImageShape(640, 480, 3)
	Image960x540 = ImageShape(960, 540, 3)
	Image224x224 = ImageShape(224, 224, 3)

	Inference20x8 = InferenceShape(20, 8)
	Inference50x8 = InferenceShape(50, 8)

	ControlShape = FixedShape("control", 10)
	ArmPoseShape = FixedShape("arm_pose", 32) // 8 float32 joint values
	StatusShape  = FixedShape("status", 1)
)

// Float32s decodes a payload of packed little-endian float32 values, as
// produced for arm-pose and inference buffers. Trailing bytes that do not
// fill a full value are ignored.
func Float32s(payload []byte) []float32 {
	out := make([]float32, 0, len(payload)/4)
	for i := 0; i+4 <= len(payload); i += 4 {
		out = append(out, math.Float32frombits(binary.LittleEndian.Uint32(payload[i:i+4])))
	}
	return out
}

// PutFloat32s packs values into a little-endian float32 payload.
func PutFloat32s(values []float32) []byte {
	buf := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}
