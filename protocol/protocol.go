// Package protocol implements the binary frame used by the TCP transport.
//
// TCP is a byte stream, so JSON-RPC payloads need explicit boundaries. Each payload
// travels behind a fixed 10-byte header carrying its length; the receiver reads the
// header first, then exactly that many bytes.
//
// Frame format:
//
//	0      3  4  5  6         10
//	┌──────┬──┬──┬──┬─────────┬───────────────┐
//	│magic │v │ct│mt│ bodyLen │    body ...    │
//	│ mjr  │01│  │  │ uint32  │ bodyLen bytes  │
//	└──────┴──┴──┴──┴─────────┴───────────────┘
//
// The header carries no sequence number: correlation happens on the JSON-RPC id
// inside the body, never on the frame.
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	MagicNumber byte   = 0x6d // 'm'
	MagicByte2  byte   = 0x6a // 'j'
	MagicByte3  byte   = 0x72 // 'r'
	Version     byte   = 0x01
	HeaderSize  int    = 10 // 3 (magic) + 1 (version) + 1 (content type) + 1 (msgType) + 4 (bodyLen)
	MaxBodyLen  uint32 = 64 << 20
)

// MsgType distinguishes payload frames from keep-alive frames.
type MsgType byte

const (
	MsgTypeData      MsgType = 0 // Carries one JSON-RPC payload (single or batch)
	MsgTypeHeartbeat MsgType = 1 // KeepAlive probe (no body)
)

// ContentType identifies the body encoding.
type ContentType byte

const (
	ContentTypeJSON ContentType = 0
)

// ErrBodyTooLarge is returned by Decode when a header announces more than MaxBodyLen bytes.
var ErrBodyTooLarge = errors.New("frame body too large")

// Header is the fixed frame header.
type Header struct {
	ContentType ContentType
	MsgType     MsgType
	BodyLen     uint32
}

// ContentTypeFor maps a MIME content type to its frame code.
func ContentTypeFor(mime string) (ContentType, error) {
	switch mime {
	case "application/json", "":
		return ContentTypeJSON, nil
	}
	return 0, fmt.Errorf("unsupported content type: %q", mime)
}

// Encode writes a complete frame (header + body) to w.
// The caller must serialize concurrent writers, otherwise frames interleave.
func Encode(w io.Writer, h *Header, body []byte) error {
	buf := make([]byte, HeaderSize+len(body))

	copy(buf[0:3], []byte{MagicNumber, MagicByte2, MagicByte3})
	buf[3] = Version
	buf[4] = byte(h.ContentType)
	buf[5] = byte(h.MsgType)
	binary.BigEndian.PutUint32(buf[6:10], uint32(len(body)))
	copy(buf[HeaderSize:], body)

	// One write per frame keeps header and body together on the wire
	_, err := w.Write(buf)
	return err
}

// Decode reads a complete frame (header + body) from r.
// It returns io.EOF only when the stream ends cleanly between frames.
func Decode(r io.Reader) (*Header, []byte, error) {
	headerBuf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, headerBuf); err != nil {
		return nil, nil, err
	}

	if headerBuf[0] != MagicNumber || headerBuf[1] != MagicByte2 || headerBuf[2] != MagicByte3 {
		return nil, nil, fmt.Errorf("invalid magic number: %x", headerBuf[0:3])
	}
	if headerBuf[3] != Version {
		return nil, nil, fmt.Errorf("unsupported version: %d", headerBuf[3])
	}
	if ContentType(headerBuf[4]) != ContentTypeJSON {
		return nil, nil, fmt.Errorf("unsupported content type: %d", headerBuf[4])
	}
	msgType := MsgType(headerBuf[5])
	if msgType != MsgTypeData && msgType != MsgTypeHeartbeat {
		return nil, nil, fmt.Errorf("unsupported message type: %d", msgType)
	}

	bodyLen := binary.BigEndian.Uint32(headerBuf[6:10])
	if bodyLen > MaxBodyLen {
		return nil, nil, fmt.Errorf("%w: %d bytes", ErrBodyTooLarge, bodyLen)
	}

	body := make([]byte, bodyLen)
	if _, err := io.ReadFull(r, body); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, nil, err
	}

	return &Header{
		ContentType: ContentType(headerBuf[4]),
		MsgType:     msgType,
		BodyLen:     bodyLen,
	}, body, nil
}
