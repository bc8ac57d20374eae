// Package protocol defines the frames exchanged by a live page and its server
// session over a WebSocket.
//
// Every message is a frame with a 4-byte header followed by a JSON payload:
//
//	┌─────────────┬──────────────┬───────────────────────────────┐
//	│ Frame Type  │ Flags        │ Payload Length                │
//	│ (1 byte)    │ (1 byte)     │ (2 bytes, big-endian)         │
//	└─────────────┴──────────────┴───────────────────────────────┘
//
// # Frame Types
//
//   - FrameHandshake (0x00): Hello, server → client after the upgrade
//   - FrameEvent (0x01): Event, client → server
//   - FramePatches (0x02): []Patch, server → client
//   - FrameControl (0x03): ping, pong and close
//   - FrameError (0x05): ErrorMessage, server → client
//
// A batch of patches larger than one payload is split over several frames.
// The last frame of a batch carries FlagFinal.
//
// # Nodes
//
// Patches and events address nodes by the numeric id the server renders into
// the data-tal-id attribute of each element.
package protocol
