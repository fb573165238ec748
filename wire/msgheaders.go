// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// MaxBlockHeadersPerMsg is the maximum number of block headers that can be in
// a single bitcoin headers message.
const MaxBlockHeadersPerMsg = 2000

// MsgHeaders implements the Message interface and represents a bitcoin headers
// message. It is used to deliver block header information in response
// to a getheaders message (MsgGetHeaders). The maximum number of block headers
// per message is currently 2000. See MsgGetHeaders for details on requesting
// the headers.
type MsgHeaders struct {
	Headers []*BlockHeader
}

// AddBlockHeader adds a new block header to the message.
func (msg *MsgHeaders) AddBlockHeader(bh *BlockHeader) error {
	if len(msg.Headers)+1 > MaxBlockHeadersPerMsg {
		str := fmt.Sprintf("too many block headers in message [max %v]",
			MaxBlockHeadersPerMsg)
		return messageError(ErrMalformedEncoding, "MsgHeaders.AddBlockHeader", str)
	}

	msg.Headers = append(msg.Headers, bh)
	return nil
}

// BtcDecode decodes r using the bitcoin protocol encoding into the receiver.
// This is part of the Message interface implementation.
func (msg *MsgHeaders) BtcDecode(r io.Reader, c *Codec) error {
	c = codecOrDefault(c)
	br, err := asByteReader(r, func(r io.Reader) error { return scanHeaders(r, c) })
	if err != nil {
		return malformedError("MsgHeaders.BtcDecode", err)
	}

	count, err := ReadVarInt(br)
	if err != nil {
		return malformedError("MsgHeaders.BtcDecode", err)
	}

	// Limit to max block headers per message.
	if count > MaxBlockHeadersPerMsg {
		str := fmt.Sprintf("too many block headers for message "+
			"[count %v, max %v]", count, MaxBlockHeadersPerMsg)
		return messageError(ErrMalformedEncoding, "MsgHeaders.BtcDecode", str)
	}

	msg.Headers = make([]*BlockHeader, 0, count)
	for i := uint64(0); i < count; i++ {
		bh := &BlockHeader{}
		err := bh.decode(br, c, newCacheArena(), noParent)
		if err != nil {
			return malformedError("MsgHeaders.BtcDecode", err)
		}

		txCount, err := ReadVarInt(br)
		if err != nil {
			return malformedError("MsgHeaders.BtcDecode", err)
		}

		// Ensure the transaction count is zero for headers.
		if txCount > 0 {
			str := fmt.Sprintf("block headers may not contain "+
				"transactions [count %v]", txCount)
			return messageError(ErrMalformedEncoding, "MsgHeaders.BtcDecode", str)
		}
		msg.Headers = append(msg.Headers, bh)
	}

	return nil
}

// BtcEncode encodes the receiver to w using the bitcoin protocol encoding.
// This is part of the Message interface implementation.
func (msg *MsgHeaders) BtcEncode(w io.Writer, c *Codec) error {
	// Limit to max block headers per message.
	count := len(msg.Headers)
	if count > MaxBlockHeadersPerMsg {
		str := fmt.Sprintf("too many block headers for message "+
			"[count %v, max %v]", count, MaxBlockHeadersPerMsg)
		return messageError(ErrMalformedEncoding, "MsgHeaders.BtcEncode", str)
	}

	err := WriteVarInt(w, uint64(count))
	if err != nil {
		return err
	}

	for _, bh := range msg.Headers {
		raw, err := bh.Bytes()
		if err != nil {
			return err
		}
		_, err = w.Write(raw)
		if err != nil {
			return errors.WithStack(err)
		}

		// The wire protocol encoding always includes a 0 for the number
		// of transactions on header messages.
		err = WriteVarInt(w, 0)
		if err != nil {
			return err
		}
	}

	return nil
}

// Command returns the protocol command string for the message. This is part
// of the Message interface implementation.
func (msg *MsgHeaders) Command() string {
	return CmdHeaders
}

// NewMsgHeaders returns a new bitcoin headers message that conforms to the
// Message interface. See MsgHeaders for details.
func NewMsgHeaders() *MsgHeaders {
	return &MsgHeaders{
		Headers: make([]*BlockHeader, 0, MaxBlockHeadersPerMsg),
	}
}

func scanHeaders(r io.Reader, c *Codec) error {
	count, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	if count > MaxBlockHeadersPerMsg {
		str := fmt.Sprintf("too many block headers for message "+
			"[count %v, max %v]", count, MaxBlockHeadersPerMsg)
		return messageError(ErrMalformedEncoding, "scanHeaders", str)
	}
	for i := uint64(0); i < count; i++ {
		err = scanHeader(r, c)
		if err != nil {
			return err
		}
		_, err = ReadVarInt(r)
		if err != nil {
			return err
		}
	}
	return nil
}
