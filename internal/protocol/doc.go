// Package protocol implements the device wire protocol for the
// greenhouse gateway: decoding inbound topic payloads into typed partial
// updates, and encoding control commands into the rw_prot downlink
// envelope.
//
// # Downlink Format
//
// Control commands are published on the command topic as:
//
//	{
//	  "rw_prot": {
//	    "Ver": "1.0.1",
//	    "dir": "down",
//	    "id": "<uuid>",
//	    "w_data": [{"name": "node0601", "value": "1"}]
//	  }
//	}
//
// Relay commands write a single node060N entry (relay 5 maps to node0601,
// relay 8 to node0604). LED commands write all four node0501-node0504
// channels in one envelope.
//
// # Error Handling
//
// All decode and validation failures return sentinel-wrapped errors
// (ErrDecodeFailed, ErrInvalidRelayNumber, ...) checkable with
// errors.Is(). Validation always runs before any envelope is built.
//
// The codec is stateless; all functions are safe for concurrent use.
package protocol
