package audio

import (
	"encoding/binary"
	"testing"
	"time"
)

func TestEncodeWAVPCM16LEHeader(t *testing.T) {
	pcm := make([]byte, 320)
	out := EncodeWAVPCM16LE(pcm, 16000)

	if !IsWAV(out) {
		t.Fatalf("encoded output is not a RIFF/WAVE stream")
	}
	if len(out) != 44+len(pcm) {
		t.Fatalf("len = %d, want %d", len(out), 44+len(pcm))
	}
	if rate := binary.LittleEndian.Uint32(out[24:28]); rate != 16000 {
		t.Fatalf("sample rate = %d, want 16000", rate)
	}
	if dataSize := binary.LittleEndian.Uint32(out[40:44]); dataSize != uint32(len(pcm)) {
		t.Fatalf("data size = %d, want %d", dataSize, len(pcm))
	}
}

func TestSilenceWAVDuration(t *testing.T) {
	out := SilenceWAV(time.Second, 8000)
	// 1s of mono PCM16 at 8kHz is 16000 bytes of data.
	if dataSize := binary.LittleEndian.Uint32(out[40:44]); dataSize != 16000 {
		t.Fatalf("data size = %d, want 16000", dataSize)
	}
	for _, b := range out[44:] {
		if b != 0 {
			t.Fatalf("silence contains non-zero sample byte")
		}
	}
}

func TestIsWAVRejectsOtherData(t *testing.T) {
	if IsWAV([]byte("ID3\x04mp3 frame data here")) {
		t.Fatalf("IsWAV accepted non-WAV data")
	}
	if IsWAV(nil) {
		t.Fatalf("IsWAV accepted nil")
	}
}
