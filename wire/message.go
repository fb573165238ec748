// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/spreadcoin/spreadd/util/chainhash"
)

// MessageHeaderSize is the number of bytes in a message header.
// Network (magic) 4 bytes + command 12 bytes + payload length 4 bytes +
// checksum 4 bytes.
const MessageHeaderSize = 24

// CommandSize is the fixed size of all commands in the common message
// header. Shorter commands must be zero padded.
const CommandSize = 12

// MaxMessagePayload is the maximum bytes a message can be regardless of other
// individual limits imposed by messages themselves.
const MaxMessagePayload = 1024 * 1024 * 32 // 32MB

// Commands used in message headers which describe the type of message.
const (
	CmdVerAck     = "verack"
	CmdGetHeaders = "getheaders"
	CmdHeaders    = "headers"
	CmdAddr       = "addr"
	CmdBlock      = "block"
	CmdTx         = "tx"
	CmdPing       = "ping"
	CmdPong       = "pong"
)

// Message is an interface that describes a message. The codec passed to
// BtcDecode and BtcEncode carries the network settings the encoding depends
// on.
type Message interface {
	BtcDecode(r io.Reader, c *Codec) error
	BtcEncode(w io.Writer, c *Codec) error
	Command() string
}

// messageConstructors maps every known command to a constructor of an empty
// message of that kind. It is filled once and never modified.
var messageConstructors map[string]func() Message

func init() {
	messageConstructors = map[string]func() Message{
		CmdVerAck:     func() Message { return &MsgVerAck{} },
		CmdGetHeaders: func() Message { return &MsgGetHeaders{} },
		CmdHeaders:    func() Message { return &MsgHeaders{} },
		CmdAddr:       func() Message { return &MsgAddr{} },
		CmdBlock:      func() Message { return &MsgBlock{} },
		CmdTx:         func() Message { return &MsgTx{} },
		CmdPing:       func() Message { return &MsgPing{} },
		CmdPong:       func() Message { return &MsgPong{} },
	}
}

// makeEmptyMessage creates a message of the appropriate concrete type based
// on the command.
func makeEmptyMessage(command string) (Message, error) {
	constructor, ok := messageConstructors[command]
	if !ok {
		str := fmt.Sprintf("unhandled command [%s]", command)
		return nil, messageError(ErrUnknownMessageType, "makeEmptyMessage", str)
	}
	return constructor(), nil
}

// messageHeader defines the header structure for all protocol messages.
type messageHeader struct {
	magic    BitcoinNet // 4 bytes
	command  string     // 12 bytes
	length   uint32     // 4 bytes
	checksum [4]byte    // 4 bytes
}

// readHeaderAfterMagic reads the command, length and checksum of a message
// header. The magic must already have been consumed.
func readHeaderAfterMagic(r io.Reader) (int, *messageHeader, error) {
	var headerBytes [MessageHeaderSize - 4]byte
	n, err := io.ReadFull(r, headerBytes[:])
	if err != nil {
		return n, nil, errors.WithStack(err)
	}
	hr := bytes.NewReader(headerBytes[:])

	// Strip trailing zeros from command string.
	hdr := messageHeader{}
	var command [CommandSize]byte
	_, err = io.ReadFull(hr, command[:])
	if err != nil {
		return n, nil, errors.WithStack(err)
	}
	hdr.command = string(bytes.TrimRight(command[:], "\x00"))
	err = readElements(hr, &hdr.length, &hdr.checksum)
	if err != nil {
		return n, nil, err
	}

	return n, &hdr, nil
}

// discardInput reads n bytes from reader r in chunks and discards the read
// bytes. This is used to skip payloads when various errors occur and helps
// prevent rogue nodes from causing massive memory allocation through forging
// header length.
func discardInput(r io.Reader, n uint32) (int, error) {
	maxSize := uint32(10 * 1024) // 10k at a time
	numReads := n / maxSize
	bytesRemaining := n % maxSize
	read := 0
	if n > 0 {
		buf := make([]byte, maxSize)
		for i := uint32(0); i < numReads; i++ {
			m, err := io.ReadFull(r, buf)
			read += m
			if err != nil {
				return read, errors.WithStack(err)
			}
		}
	}
	if bytesRemaining > 0 {
		buf := make([]byte, bytesRemaining)
		m, err := io.ReadFull(r, buf)
		read += m
		if err != nil {
			return read, errors.WithStack(err)
		}
	}
	return read, nil
}

// checksum returns the first four bytes of the double-SHA256 of payload.
func checksum(payload []byte) [4]byte {
	var sum [4]byte
	copy(sum[:], chainhash.DoubleHashB(payload)[0:4])
	return sum
}

// WriteMessageN writes a message to w including the necessary header
// information and returns the number of bytes written. The command of msg
// must be one this package can also read.
func (c *Codec) WriteMessageN(w io.Writer, msg Message) (int, error) {
	totalBytes := 0

	// Enforce max command size.
	var command [CommandSize]byte
	cmd := msg.Command()
	if _, ok := messageConstructors[cmd]; !ok {
		str := fmt.Sprintf("command [%s] is not registered", cmd)
		return totalBytes, messageError(ErrUnknownMessageType, "WriteMessage", str)
	}
	if len(cmd) > CommandSize {
		str := fmt.Sprintf("command [%s] is too long [max %v]",
			cmd, CommandSize)
		return totalBytes, messageError(ErrMalformedEncoding, "WriteMessage", str)
	}
	copy(command[:], []byte(cmd))

	// Encode the message payload.
	var bw bytes.Buffer
	err := msg.BtcEncode(&bw, c)
	if err != nil {
		return totalBytes, err
	}
	payload := bw.Bytes()
	lenp := len(payload)

	// Enforce maximum overall message payload.
	if lenp > MaxMessagePayload {
		str := fmt.Sprintf("message payload is too large - encoded "+
			"%d bytes, but maximum message payload is %d bytes",
			lenp, MaxMessagePayload)
		return totalBytes, messageError(ErrMalformedEncoding, "WriteMessage", str)
	}

	// Encode the header for the message. This is done to a buffer
	// rather than directly to the writer since writeElements doesn't
	// return the number of bytes written.
	hw := newBufferSized(MessageHeaderSize)
	err = writeElements(hw, c.net, command, uint32(lenp), checksum(payload))
	if err != nil {
		return totalBytes, err
	}

	// Write header.
	n, err := w.Write(hw.Bytes())
	totalBytes += n
	if err != nil {
		return totalBytes, errors.WithStack(err)
	}

	// Only write the payload if there is one, e.g., verack messages don't
	// have one.
	if len(payload) > 0 {
		n, err = w.Write(payload)
		totalBytes += n
	}

	return totalBytes, errors.WithStack(err)
}

// WriteMessage writes a message to w including the necessary header
// information.
func (c *Codec) WriteMessage(w io.Writer, msg Message) error {
	_, err := c.WriteMessageN(w, msg)
	return err
}

// Serialize returns the complete framed bytes of msg.
func (c *Codec) Serialize(msg Message) ([]byte, error) {
	var buf bytes.Buffer
	err := c.WriteMessage(&buf, msg)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ReadMessageN reads, validates, and parses the next message from r. It
// returns the number of bytes read in addition to the parsed message and its
// raw payload.
//
// A message with an unknown command has its payload consumed and is reported
// with ErrUnknownMessageType, so the caller may go on reading the stream. An
// io.EOF is returned as is when the stream ends cleanly before a new
// message starts.
func (c *Codec) ReadMessageN(r io.Reader) (int, Message, []byte, error) {
	var magic BitcoinNet
	var magicBytes [4]byte
	n, err := io.ReadFull(r, magicBytes[:])
	if err != nil {
		if n == 0 && errors.Is(err, io.EOF) {
			return n, nil, nil, io.EOF
		}
		return n, nil, nil, malformedError("ReadMessage", err)
	}
	magic = BitcoinNet(bigEndian.Uint32(magicBytes[:]))
	if magic != c.net {
		str := fmt.Sprintf("message from other network [%v]", magic)
		return n, nil, nil, messageError(ErrStreamDesynchronized, "ReadMessage", str)
	}

	totalBytes, msg, payload, err := c.readMessageAfterMagic(r)
	return n + totalBytes, msg, payload, err
}

// ReadMessageAfterMagic reads the next message from r after its magic bytes
// have already been consumed, typically by SeekPastMagic.
func (c *Codec) ReadMessageAfterMagic(r io.Reader) (int, Message, []byte, error) {
	n, msg, payload, err := c.readMessageAfterMagic(r)
	return n + 4, msg, payload, err
}

func (c *Codec) readMessageAfterMagic(r io.Reader) (int, Message, []byte, error) {
	totalBytes := 0
	n, hdr, err := readHeaderAfterMagic(r)
	totalBytes += n
	if err != nil {
		return totalBytes, nil, nil, malformedError("ReadMessage", err)
	}

	// Enforce maximum message payload.
	if hdr.length > MaxMessagePayload {
		str := fmt.Sprintf("message payload is too large - header "+
			"indicates %d bytes, but max message payload is %d "+
			"bytes.", hdr.length, MaxMessagePayload)
		return totalBytes, nil, nil, messageError(ErrMalformedEncoding, "ReadMessage", str)
	}

	// Check for malformed commands.
	command := hdr.command
	if !utf8.ValidString(command) {
		discarded, err := discardInput(r, hdr.length)
		totalBytes += discarded
		if err != nil {
			return totalBytes, nil, nil, malformedError("ReadMessage", err)
		}
		str := fmt.Sprintf("invalid command %v", []byte(command))
		return totalBytes, nil, nil, messageError(ErrMalformedEncoding, "ReadMessage", str)
	}

	// Create struct of appropriate message type based on the command.
	msg, err := makeEmptyMessage(command)
	if err != nil {
		discarded, discardErr := discardInput(r, hdr.length)
		totalBytes += discarded
		if discardErr != nil {
			return totalBytes, nil, nil, malformedError("ReadMessage", discardErr)
		}
		return totalBytes, nil, nil, err
	}

	// Read payload.
	payload := make([]byte, hdr.length)
	n, err = io.ReadFull(r, payload)
	totalBytes += n
	if err != nil {
		return totalBytes, nil, nil, malformedError("ReadMessage", err)
	}

	// Test checksum.
	if sum := checksum(payload); sum != hdr.checksum {
		str := fmt.Sprintf("payload checksum failed - header "+
			"indicates %x, but actual checksum is %x.",
			hdr.checksum, sum)
		return totalBytes, nil, nil, messageError(ErrChecksumMismatch, "ReadMessage", str)
	}

	// Unmarshal message. The payload slice is handed to the message as is
	// so lazily decoded entities can keep referring to it.
	err = msg.BtcDecode(newByteReader(payload), c)
	if err != nil {
		return totalBytes, nil, nil, malformedError("ReadMessage", err)
	}

	return totalBytes, msg, payload, nil
}

// ReadMessage reads, validates, and parses the next message from r. It
// returns the parsed message and its raw payload.
func (c *Codec) ReadMessage(r io.Reader) (Message, []byte, error) {
	_, msg, buf, err := c.ReadMessageN(r)
	return msg, buf, err
}

// DeserializeOne parses the first message framed in buf and returns it with
// the number of bytes it occupied. A buffer that ends before the message does
// is reported as ErrMalformedEncoding. For ErrUnknownMessageType the returned
// count covers the skipped message, so the caller can resume after it.
func (c *Codec) DeserializeOne(buf []byte) (Message, int, error) {
	n, msg, _, err := c.ReadMessageN(bytes.NewReader(buf))
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, n, messageError(ErrMalformedEncoding, "DeserializeOne",
				"buffer holds no message")
		}
		return nil, n, err
	}
	return msg, n, nil
}

// SeekPastMagic consumes bytes from r until the network magic has been read,
// leaving r positioned at the command of the message that follows. At most
// budget bytes are consumed. Running out of budget or input fails with
// ErrStreamDesynchronized.
func (c *Codec) SeekPastMagic(r io.ByteReader, budget int) error {
	magic := c.net.magicBytes()
	var window [4]byte
	for consumed := 0; consumed < budget; consumed++ {
		b, err := r.ReadByte()
		if err != nil {
			str := fmt.Sprintf("stream ended after %d bytes without "+
				"network magic: %v", consumed, err)
			return messageError(ErrStreamDesynchronized, "SeekPastMagic", str)
		}
		copy(window[:], window[1:])
		window[3] = b
		if consumed >= 3 && window == magic {
			return nil
		}
	}
	str := fmt.Sprintf("no network magic within %d bytes", budget)
	return messageError(ErrStreamDesynchronized, "SeekPastMagic", str)
}
