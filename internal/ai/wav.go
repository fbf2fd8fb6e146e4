package ai

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
)

// EncodeWAV wraps raw PCM in a canonical 44 byte RIFF/WAVE header
func EncodeWAV(audio *Audio) []byte {
	channels := audio.Channels
	if channels <= 0 {
		channels = 1
	}
	bits := audio.BitsPerSample
	if bits <= 0 {
		bits = 16
	}
	rate := audio.SampleRate
	if rate <= 0 {
		rate = 24000
	}
	blockAlign := channels * bits / 8
	dataLen := len(audio.PCM)

	var buf bytes.Buffer
	buf.Grow(44 + dataLen)
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataLen))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(channels))
	binary.Write(&buf, binary.LittleEndian, uint32(rate))
	binary.Write(&buf, binary.LittleEndian, uint32(rate*blockAlign))
	binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(&buf, binary.LittleEndian, uint16(bits))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataLen))
	buf.Write(audio.PCM)
	return buf.Bytes()
}

// WAVDataURI encodes audio as a data:audio/wav;base64 URI
func WAVDataURI(audio *Audio) string {
	return "data:audio/wav;base64," + base64.StdEncoding.EncodeToString(EncodeWAV(audio))
}
