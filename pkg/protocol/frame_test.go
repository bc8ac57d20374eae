package protocol

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFrameEncodeDecode(t *testing.T) {
	tests := []struct {
		name    string
		frame   Frame
		wantLen int
	}{
		{"empty_payload", Frame{Type: FrameEvent, Payload: []byte{}}, FrameHeaderSize},
		{"with_payload", Frame{Type: FramePatches, Flags: FlagFinal, Payload: []byte("[]")}, FrameHeaderSize + 2},
		{"control", Frame{Type: FrameControl, Payload: []byte(`{"type":"ping"}`)}, FrameHeaderSize + 15},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			encoded := tc.frame.Encode()
			if len(encoded) != tc.wantLen {
				t.Errorf("Encode() length = %d, want %d", len(encoded), tc.wantLen)
			}

			decoded, err := DecodeFrame(encoded)
			if err != nil {
				t.Fatalf("DecodeFrame() error = %v", err)
			}
			if diff := cmp.Diff(&tc.frame, decoded); diff != "" {
				t.Errorf("frame mismatch (-want +got):\n%s", diff)
			}

			read, err := ReadFrame(bytes.NewReader(encoded))
			if err != nil {
				t.Fatalf("ReadFrame() error = %v", err)
			}
			if diff := cmp.Diff(&tc.frame, read); diff != "" {
				t.Errorf("ReadFrame mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFrameHeaderLayout(t *testing.T) {
	f := Frame{Type: FramePatches, Flags: FlagFinal, Payload: make([]byte, 0x0102)}
	got := f.Encode()[:FrameHeaderSize]
	if want := []byte{0x02, 0x04, 0x01, 0x02}; !bytes.Equal(got, want) {
		t.Errorf("header = %x, want %x", got, want)
	}
}

func TestDecodeFrameErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"short header", []byte{0x01, 0x00}, io.ErrUnexpectedEOF},
		{"short payload", []byte{0x01, 0x00, 0x00, 0x05, 'a'}, io.ErrUnexpectedEOF},
		{"unknown type", []byte{0x7f, 0x00, 0x00, 0x00}, ErrInvalidFrameType},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := DecodeFrame(tc.data); !errors.Is(err, tc.want) {
				t.Errorf("DecodeFrame() error = %v, want %v", err, tc.want)
			}
		})
	}

	if _, err := DecodeFrame([]byte{0x01, 0x00, 0x00, 0x00, 'x'}); err == nil {
		t.Error("expected an error for trailing bytes")
	}
}

func TestWriteFrameTooLarge(t *testing.T) {
	f := &Frame{Type: FrameEvent, Payload: make([]byte, MaxPayloadSize+1)}
	if err := WriteFrame(io.Discard, f); !errors.Is(err, ErrFrameTooLarge) {
		t.Errorf("WriteFrame() error = %v, want ErrFrameTooLarge", err)
	}
}

func TestNewFrameRoundTrip(t *testing.T) {
	want := Hello{Session: "abc", Version: ProtocolVersion, Events: []string{"click"}}
	f, err := NewFrame(FrameHandshake, want)
	if err != nil {
		t.Fatalf("NewFrame() error = %v", err)
	}
	if !f.Flags.Has(FlagFinal) {
		t.Error("single frames should be final")
	}

	var buf bytes.Buffer
	if err := WriteFrame(&buf, f); err != nil {
		t.Fatalf("WriteFrame() error = %v", err)
	}
	read, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("ReadFrame() error = %v", err)
	}
	var got Hello
	if err := read.Decode(&got); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("hello mismatch (-want +got):\n%s", diff)
	}
}

func TestFrameTypeString(t *testing.T) {
	if FramePatches.String() != "Patches" || FrameType(0x42).String() != "Unknown" {
		t.Error("unexpected frame type names")
	}
	if FrameType(0x04).Valid() {
		t.Error("0x04 is not a frame type")
	}
}
