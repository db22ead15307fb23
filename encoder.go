// encoder.go: pure DLT wire-format serialization
//
// Produces the bit-exact byte sequence of SPEC_FULL.md section 6: a 16-byte
// storage header, a standard header with WEID+WTMS optional fields, a
// 10-byte extended header, and a single string-typed verbose argument. The
// scratch buffer comes from internal/bufpool and its contents are copied
// into an owned, right-sized slice before the pooled buffer is returned —
// internal/bufferpool's original contract, generalized from per-logger
// byte-slice building to per-record DLT frame building.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package dlt

import (
	"encoding/binary"
	"sync/atomic"
	"time"

	"github.com/agilira/dlt/internal/bufpool"
)

const (
	storageMagic0 = 'D'
	storageMagic1 = 'L'
	storageMagic2 = 'T'
	storageMagic3 = 1

	stdHdrFlagUEH  = 0x01 // use extended header
	stdHdrFlagMSBF = 0x02 // payload is big-endian
	stdHdrFlagWEID = 0x04 // standard header carries ecu_id
	stdHdrFlagWSID = 0x08 // standard header carries session_id
	stdHdrFlagWTMS = 0x10 // standard header carries timestamp
	stdHdrVersion1 = 0x01 << 5

	argTypeInfoString = 0x00008200 // string, ASCII, per section 6
)

// Encoder serializes LogRecords into DLT wire frames. Safe for concurrent
// use: the only shared mutable state is the message counter, advanced with
// a single atomic add per call.
type Encoder struct {
	defaultEcuID [4]byte
	maxPayload   int
	counter      atomic.Uint32 // wraps mod 256, per section 6 "message counter (u8, wraps)"
	timeFn       func() time.Time
}

// NewEncoder builds an Encoder. defaultEcuID is used for any LogRecord that
// leaves EcuID empty; maxPayload <= 0 uses MaxPayload.
func NewEncoder(defaultEcuID string, maxPayload int, timeFn func() time.Time) *Encoder {
	if maxPayload <= 0 {
		maxPayload = MaxPayload
	}
	if timeFn == nil {
		timeFn = time.Now
	}
	e := &Encoder{maxPayload: maxPayload, timeFn: timeFn}
	copy(e.defaultEcuID[:], padID(defaultEcuID))
	return e
}

// padID right-pads id with NUL to 4 bytes, truncating anything longer. It
// does no validation; NewEncoder uses it for the default ECU id, while
// per-record ids go through encodeID.
func padID(id string) []byte {
	out := make([]byte, 4)
	copy(out, id)
	return out
}

// encodeID validates and pads a 4-byte wire identifier.
func encodeID(id string) ([4]byte, error) {
	var out [4]byte
	if len(id) > 4 {
		return out, newEngineError(ErrCodeEncodeBadID, "identifier longer than 4 characters: "+id)
	}
	for i := 0; i < len(id); i++ {
		if id[i] > 0x7F {
			return out, newEngineError(ErrCodeEncodeBadID, "identifier is not ASCII: "+id)
		}
	}
	copy(out[:], id)
	return out, nil
}

// Encode builds the wire frame for record. The returned EncodedRecord owns
// its bytes independently of any pooled scratch buffer.
func (e *Encoder) Encode(record LogRecord) (EncodedRecord, error) {
	if len(record.Payload) > e.maxPayload {
		return EncodedRecord{}, newEngineError(ErrCodeEncodeTooLarge,
			"payload exceeds configured maximum")
	}

	ecuID := e.defaultEcuID
	if record.EcuID != "" {
		id, err := encodeID(record.EcuID)
		if err != nil {
			return EncodedRecord{}, err
		}
		ecuID = id
	}
	appID, err := encodeID(record.AppID)
	if err != nil {
		return EncodedRecord{}, err
	}
	ctxID, err := encodeID(record.CtxID)
	if err != nil {
		return EncodedRecord{}, err
	}

	ts := record.Timestamp
	if ts.IsZero() {
		ts = e.timeFn()
	}

	buf := bufpool.Get()
	defer bufpool.Put(buf)

	// Standard header: base 4 bytes + WEID (4) + WTMS (4). No WSID: the
	// wire format described in section 6 carries no session concept.
	stdHdrLen := 4 + 4 + 4
	extHdrLen := 10
	argCount := record.ArgCount
	if argCount == 0 {
		argCount = 1
	}
	payloadLen := 4 + 2 + len(record.Payload) + 1
	totalLen := stdHdrLen + extHdrLen + payloadLen

	// Storage header (16 bytes) — section 6: not counted in total_length,
	// which per the DLT standard spans only standard+extended headers and
	// payload.
	buf.WriteByte(storageMagic0)
	buf.WriteByte(storageMagic1)
	buf.WriteByte(storageMagic2)
	buf.WriteByte(storageMagic3)
	var secMicro [8]byte
	binary.LittleEndian.PutUint32(secMicro[0:4], uint32(ts.Unix()))
	binary.LittleEndian.PutUint32(secMicro[4:8], uint32(ts.Nanosecond()/1000))
	buf.Write(secMicro[:])
	buf.Write(ecuID[:])

	// Standard header.
	flags := byte(stdHdrFlagUEH | stdHdrFlagMSBF | stdHdrFlagWEID | stdHdrFlagWTMS | stdHdrVersion1)
	counter := byte(e.counter.Add(1))
	buf.WriteByte(flags)
	buf.WriteByte(counter)
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(totalLen))
	buf.Write(lenBuf[:])
	buf.Write(ecuID[:])
	var tsBuf [4]byte
	// 0.1ms units, low 32 bits; wraps roughly every 119 hours at this
	// resolution (section 6 documents the microsecond-field wrap for the
	// storage header's separate field, not this one).
	binary.BigEndian.PutUint32(tsBuf[:], uint32(ts.UnixNano()/100000))
	buf.Write(tsBuf[:])

	// Extended header.
	msin := (record.Level.dltSubtype() << 4) | 0x01 // verbose bit set: one typed argument follows
	buf.WriteByte(msin)
	buf.WriteByte(argCount)
	buf.Write(appID[:])
	buf.Write(ctxID[:])

	// Payload: one string-typed argument.
	var typeInfo [4]byte
	binary.BigEndian.PutUint32(typeInfo[:], argTypeInfoString)
	buf.Write(typeInfo[:])
	var strLen [2]byte
	binary.LittleEndian.PutUint16(strLen[:], uint16(len(record.Payload)+1))
	buf.Write(strLen[:])
	buf.Write(record.Payload)
	buf.WriteByte(0)

	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())

	return EncodedRecord{
		bytes:     out,
		echo:      append([]byte(nil), record.Payload...),
		localEcho: record.localEcho(false),
	}, nil
}
