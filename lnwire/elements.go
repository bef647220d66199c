package lnwire

// Fixed-order field codec, in the idiom of elkrem/serdes.go's
// encoding/binary + io based (de)serialization: each wire type gets a
// writeElement/readElement case, and writeElements/readElements apply them
// in argument order. There is no generated-code layer (spec.md §9, "a
// hand-rolled tagged codec over the schema is authoritative, not any
// generated stub").

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// writeElement serializes a single element to w according to its concrete
// type. Every numeric field is big-endian, per spec.md §6.1.
func writeElement(w io.Writer, element interface{}) error {
	switch e := element.(type) {
	case uint8:
		return binary.Write(w, binary.BigEndian, e)
	case bool:
		var b uint8
		if e {
			b = 1
		}
		return binary.Write(w, binary.BigEndian, b)
	case uint16:
		return binary.Write(w, binary.BigEndian, e)
	case uint32:
		return binary.Write(w, binary.BigEndian, e)
	case uint64:
		return binary.Write(w, binary.BigEndian, e)
	case int64:
		return binary.Write(w, binary.BigEndian, e)
	case MilliSatoshi:
		return binary.Write(w, binary.BigEndian, uint64(e))
	case btcutil.Amount:
		return binary.Write(w, binary.BigEndian, int64(e))
	case ChannelID:
		_, err := w.Write(e[:])
		return err
	case chainhash.Hash:
		_, err := w.Write(e[:])
		return err
	case [32]byte:
		_, err := w.Write(e[:])
		return err
	case []byte:
		if len(e) > MaxMessagePayload {
			return fmt.Errorf("byte slice too long: %d bytes", len(e))
		}
		if err := binary.Write(w, binary.BigEndian, uint32(len(e))); err != nil {
			return err
		}
		_, err := w.Write(e)
		return err
	case wire.OutPoint:
		if _, err := w.Write(e.Hash[:]); err != nil {
			return err
		}
		return binary.Write(w, binary.BigEndian, e.Index)
	case *btcec.PublicKey:
		if e == nil {
			var zero [33]byte
			_, err := w.Write(zero[:])
			return err
		}
		_, err := w.Write(e.SerializeCompressed())
		return err
	case [][]byte:
		if len(e) > 0xffff {
			return fmt.Errorf("too many elements: %d", len(e))
		}
		if err := binary.Write(w, binary.BigEndian, uint16(len(e))); err != nil {
			return err
		}
		for _, b := range e {
			if err := writeElement(w, b); err != nil {
				return err
			}
		}
		return nil
	case []chainhash.Hash:
		if len(e) > 0xffff {
			return fmt.Errorf("too many elements: %d", len(e))
		}
		if err := binary.Write(w, binary.BigEndian, uint16(len(e))); err != nil {
			return err
		}
		for _, h := range e {
			if err := writeElement(w, h); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unsupported type for writeElement: %T", e)
	}
}

// readElement deserializes a single element from r into the pointer
// element, the inverse of writeElement.
func readElement(r io.Reader, element interface{}) error {
	switch e := element.(type) {
	case *uint8:
		return binary.Read(r, binary.BigEndian, e)
	case *bool:
		var b uint8
		if err := binary.Read(r, binary.BigEndian, &b); err != nil {
			return err
		}
		*e = b != 0
		return nil
	case *uint16:
		return binary.Read(r, binary.BigEndian, e)
	case *uint32:
		return binary.Read(r, binary.BigEndian, e)
	case *uint64:
		return binary.Read(r, binary.BigEndian, e)
	case *int64:
		return binary.Read(r, binary.BigEndian, e)
	case *MilliSatoshi:
		var v uint64
		if err := binary.Read(r, binary.BigEndian, &v); err != nil {
			return err
		}
		*e = MilliSatoshi(v)
		return nil
	case *btcutil.Amount:
		var v int64
		if err := binary.Read(r, binary.BigEndian, &v); err != nil {
			return err
		}
		*e = btcutil.Amount(v)
		return nil
	case *ChannelID:
		_, err := io.ReadFull(r, e[:])
		return err
	case *chainhash.Hash:
		_, err := io.ReadFull(r, e[:])
		return err
	case *[32]byte:
		_, err := io.ReadFull(r, e[:])
		return err
	case *[]byte:
		var length uint32
		if err := binary.Read(r, binary.BigEndian, &length); err != nil {
			return err
		}
		if length > MaxMessagePayload {
			return fmt.Errorf("byte slice too long: %d bytes", length)
		}
		buf := make([]byte, length)
		if _, err := io.ReadFull(r, buf); err != nil {
			return err
		}
		*e = buf
		return nil
	case *wire.OutPoint:
		if _, err := io.ReadFull(r, e.Hash[:]); err != nil {
			return err
		}
		return binary.Read(r, binary.BigEndian, &e.Index)
	case **btcec.PublicKey:
		var buf [33]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return err
		}
		isZero := true
		for _, b := range buf {
			if b != 0 {
				isZero = false
				break
			}
		}
		if isZero {
			*e = nil
			return nil
		}
		pub, err := btcec.ParsePubKey(buf[:])
		if err != nil {
			return err
		}
		*e = pub
		return nil
	case *[][]byte:
		var count uint16
		if err := binary.Read(r, binary.BigEndian, &count); err != nil {
			return err
		}
		out := make([][]byte, count)
		for i := range out {
			if err := readElement(r, &out[i]); err != nil {
				return err
			}
		}
		*e = out
		return nil
	case *[]chainhash.Hash:
		var count uint16
		if err := binary.Read(r, binary.BigEndian, &count); err != nil {
			return err
		}
		out := make([]chainhash.Hash, count)
		for i := range out {
			if err := readElement(r, &out[i]); err != nil {
				return err
			}
		}
		*e = out
		return nil
	default:
		return fmt.Errorf("unsupported type for readElement: %T", e)
	}
}

// writeElements applies writeElement to each element in order, short
// circuiting on the first error.
func writeElements(w io.Writer, elements ...interface{}) error {
	for _, element := range elements {
		if err := writeElement(w, element); err != nil {
			return err
		}
	}
	return nil
}

// readElements applies readElement to each element in order, short
// circuiting on the first error.
func readElements(r io.Reader, elements ...interface{}) error {
	for _, element := range elements {
		if err := readElement(r, element); err != nil {
			return err
		}
	}
	return nil
}
