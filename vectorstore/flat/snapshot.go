package flat

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/hupe1980/imgsim/codec"
	"github.com/hupe1980/imgsim/vectorstore"
)

// Snapshot container layout:
//
//	[magic 8B][codec name len uint16][codec name][compression uint8]
//	[block]...[block]
//
// The payload is the codec-marshaled snapshotPayload, split into
// compressed blocks (see compression.go). Files are self-describing:
// codec and compression are read back from the header, not from options.
var snapshotMagic = [8]byte{'I', 'M', 'G', 'S', 'N', 'A', 'P', '1'}

var (
	// ErrBadSnapshot is returned when a snapshot stream is malformed.
	ErrBadSnapshot = errors.New("flat: malformed snapshot")

	// ErrUnknownCodec is returned when the snapshot names a codec this
	// build does not know.
	ErrUnknownCodec = errors.New("flat: unknown snapshot codec")
)

type snapshotPayload struct {
	Dimension int                  `json:"dimension"`
	Records   []vectorstore.Record `json:"records"`
}

// SaveTo serializes the full collection state to w.
func (s *Store) SaveTo(ctx context.Context, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.writeSnapshot(w)
}

func (s *Store) writeSnapshot(w io.Writer) error {
	st := s.getState()

	payload := snapshotPayload{
		Dimension: int(s.dim.Load()),
		Records:   make([]vectorstore.Record, 0, len(st.byID)),
	}

	it := st.live.Iterator()
	for it.HasNext() {
		payload.Records = append(payload.Records, st.slots[it.Next()])
	}

	data, err := s.opts.Codec.Marshal(payload)
	if err != nil {
		return fmt.Errorf("flat: snapshot encode: %w", err)
	}

	if _, err := w.Write(snapshotMagic[:]); err != nil {
		return fmt.Errorf("%w: %w", vectorstore.ErrUnavailable, err)
	}

	name := []byte(s.opts.Codec.Name())
	var nameLen [2]byte
	binary.LittleEndian.PutUint16(nameLen[:], uint16(len(name)))
	if _, err := w.Write(nameLen[:]); err != nil {
		return fmt.Errorf("%w: %w", vectorstore.ErrUnavailable, err)
	}
	if _, err := w.Write(name); err != nil {
		return fmt.Errorf("%w: %w", vectorstore.ErrUnavailable, err)
	}
	if _, err := w.Write([]byte{byte(s.opts.Compression)}); err != nil {
		return fmt.Errorf("%w: %w", vectorstore.ErrUnavailable, err)
	}

	bw := newCompressedBlockWriter(w, s.opts.Compression, 0)
	if _, err := bw.Write(data); err != nil {
		return fmt.Errorf("%w: %w", vectorstore.ErrUnavailable, err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("%w: %w", vectorstore.ErrUnavailable, err)
	}
	return nil
}

// LoadFrom replaces the collection state with the snapshot read from r.
func (s *Store) LoadFrom(ctx context.Context, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("%w: %w", vectorstore.ErrUnavailable, err)
	}

	payload, dim, err := decodeSnapshot(raw)
	if err != nil {
		return err
	}

	st := emptyState()
	for _, rec := range payload {
		slot := uint32(len(st.slots))
		if old, exists := st.byID[rec.ID]; exists {
			st.live.Remove(old)
		}
		st.slots = append(st.slots, rec)
		st.live.Add(slot)
		st.byID[rec.ID] = slot
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.dim.Store(int32(dim))
	s.state.Store(st)
	return nil
}

func decodeSnapshot(raw []byte) ([]vectorstore.Record, int, error) {
	// magic + name length + compression byte is the minimum.
	if len(raw) < len(snapshotMagic)+3 {
		return nil, 0, ErrBadSnapshot
	}
	if !bytes.Equal(raw[:len(snapshotMagic)], snapshotMagic[:]) {
		return nil, 0, ErrBadSnapshot
	}

	off := len(snapshotMagic)
	nameLen := int(binary.LittleEndian.Uint16(raw[off:]))
	off += 2
	if len(raw) < off+nameLen+1 {
		return nil, 0, ErrBadSnapshot
	}

	codecName := string(raw[off : off+nameLen])
	off += nameLen

	c, ok := codec.ByName(codecName)
	if !ok {
		return nil, 0, fmt.Errorf("%w: %q", ErrUnknownCodec, codecName)
	}

	compression := CompressionType(raw[off])
	off++

	data, err := decompressAll(raw, int64(off), compression)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrBadSnapshot, err)
	}

	var payload snapshotPayload
	if err := c.Unmarshal(data, &payload); err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrBadSnapshot, err)
	}
	return payload.Records, payload.Dimension, nil
}
