package comlink

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/bnema/job-launcher/internal/domain"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	DefaultMaxFrameBytes = 64 * 1024
	headerSize           = 4
)

var ErrFrameTooLarge = errors.New("frame exceeds size limit")

// frame is the msgpack payload of one length-prefixed wire frame.
type frame struct {
	Type  uint8  `msgpack:"type"`
	Count int    `msgpack:"count,omitempty"`
	Text  string `msgpack:"text,omitempty"`
}

func writeFrame(w io.Writer, msg domain.Message, maxBytes int) error {
	payload, err := msgpack.Marshal(frame{Type: uint8(msg.Type), Count: msg.Count, Text: msg.Text})
	if err != nil {
		return fmt.Errorf("encode %s frame: %w", msg.Type, err)
	}
	if len(payload) > maxBytes {
		return fmt.Errorf("encode %s frame of %d bytes: %w", msg.Type, len(payload), ErrFrameTooLarge)
	}

	buf := make([]byte, headerSize+len(payload))
	binary.BigEndian.PutUint32(buf[:headerSize], uint32(len(payload)))
	copy(buf[headerSize:], payload)

	total := 0
	for total < len(buf) {
		n, err := w.Write(buf[total:])
		if err != nil {
			return err
		}
		total += n
	}

	return nil
}

// readFrame returns io.EOF only when the stream ends cleanly between frames.
func readFrame(r io.Reader, maxBytes int) (domain.Message, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return domain.Message{}, err
	}

	size := binary.BigEndian.Uint32(header[:])
	if uint64(size) > uint64(maxBytes) {
		return domain.Message{}, fmt.Errorf("read frame of %d bytes: %w", size, ErrFrameTooLarge)
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return domain.Message{}, fmt.Errorf("read frame payload: %w", err)
	}

	var f frame
	if err := msgpack.Unmarshal(payload, &f); err != nil {
		return domain.Message{}, fmt.Errorf("decode frame: %w", err)
	}

	return domain.Message{Type: domain.MessageType(f.Type), Count: f.Count, Text: f.Text}, nil
}
