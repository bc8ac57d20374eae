package protocol

import (
	"encoding/json"
	"fmt"
)

// PatchOp is the type of patch operation.
type PatchOp string

const (
	PatchSetAttr    PatchOp = "set-attr"    // Set attribute Key to Value
	PatchRemoveAttr PatchOp = "remove-attr" // Remove attribute Key
	PatchSetProp    PatchOp = "set-prop"    // Set element property Key to Value
	PatchHTML       PatchOp = "html"        // Replace the children with Value
)

// Patch is one change to a rendered element.
//
// For PatchHTML the value is the serialized children of the target, with
// data-tal-id attributes on new elements.
type Patch struct {
	Op    PatchOp `json:"op"`
	ID    uint64  `json:"id"`
	Key   string  `json:"key,omitempty"`
	Value any     `json:"value"`
}

func (p Patch) String() string {
	if p.Key == "" {
		return fmt.Sprintf("%s #%d", p.Op, p.ID)
	}
	return fmt.Sprintf("%s #%d %s", p.Op, p.ID, p.Key)
}

// EncodePatches packs patches into as few frames as fit MaxPayloadSize. The
// last frame carries FlagFinal. A single patch larger than a payload fails
// with ErrFrameTooLarge.
func EncodePatches(patches []Patch) ([]*Frame, error) {
	var frames []*Frame
	buf := []byte{'['}
	flush := func() {
		buf = append(buf, ']')
		frames = append(frames, &Frame{Type: FramePatches, Payload: buf})
		buf = []byte{'['}
	}

	for _, p := range patches {
		b, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("protocol: encode patch %s: %w", p, err)
		}
		if len(b)+2 > MaxPayloadSize {
			return nil, fmt.Errorf("%w: patch %s", ErrFrameTooLarge, p)
		}
		if len(buf)+len(b)+2 > MaxPayloadSize {
			flush()
		}
		if len(buf) > 1 {
			buf = append(buf, ',')
		}
		buf = append(buf, b...)
	}
	if len(buf) > 1 || len(frames) == 0 {
		flush()
	}
	frames[len(frames)-1].Flags |= FlagFinal
	return frames, nil
}

// Patches decodes the payload of a FramePatches frame.
func (f *Frame) Patches() ([]Patch, error) {
	if f.Type != FramePatches {
		return nil, fmt.Errorf("%w: %s frame holds no patches", ErrInvalidFrameType, f.Type)
	}
	var patches []Patch
	if err := f.Decode(&patches); err != nil {
		return nil, err
	}
	return patches, nil
}
