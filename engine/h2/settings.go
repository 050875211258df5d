/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 */

package h2

import (
	"encoding/binary"
	"errors"
)

type settingID uint16

const (
	settingHeaderTableSize      settingID = 0x1
	settingEnablePush           settingID = 0x2
	settingMaxConcurrentStreams settingID = 0x3
	settingInitialWindowSize    settingID = 0x4
	settingMaxFrameSize         settingID = 0x5
	settingMaxHeaderListSize    settingID = 0x6
)

var errMalformedSettings = errors.New("h2: malformed settings frame")

// defaultClientSettings is the SETTINGS payload we advertise on connect:
// push disabled (we never act on PUSH_PROMISE, see read.go) and our
// concurrency cap.
func defaultClientSettings(selfCap uint32) []byte {
	var out []byte
	out = appendSetting(out, settingEnablePush, 0)
	out = appendSetting(out, settingMaxConcurrentStreams, selfCap)
	out = appendSetting(out, settingInitialWindowSize, defaultInitialWindowSize)
	return out
}

func appendSetting(out []byte, id settingID, val uint32) []byte {
	var b [6]byte
	binary.BigEndian.PutUint16(b[0:2], uint16(id))
	binary.BigEndian.PutUint32(b[2:6], val)
	return append(out, b[:]...)
}

// parseSettings decodes a SETTINGS frame payload into id->value pairs,
// ignoring any identifier it doesn't recognize per RFC 7540 §6.5.2.
func parseSettings(payload []byte) (map[settingID]uint32, error) {
	if len(payload)%6 != 0 {
		return nil, errMalformedSettings
	}
	out := make(map[settingID]uint32, len(payload)/6)
	for i := 0; i+6 <= len(payload); i += 6 {
		id := settingID(binary.BigEndian.Uint16(payload[i : i+2]))
		val := binary.BigEndian.Uint32(payload[i+2 : i+6])
		out[id] = val
	}
	return out, nil
}
