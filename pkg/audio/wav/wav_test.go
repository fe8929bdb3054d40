package wav

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/matryer/is"

	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/rtc"
)

func frame(rate int, fill byte) rtc.AudioFrame {
	data := bytes.Repeat([]byte{fill}, rtc.FrameBytes(rate, 1))
	return rtc.AudioFrame{Data: data, SampleRate: rate, SamplesPerChannel: rate / 100, NumChannels: 1}
}

func TestWriterRoundTrip(t *testing.T) {
	is := is.New(t)
	path := filepath.Join(t.TempDir(), "out.wav")

	w := NewWriter(path)
	is.NoErr(w.WriteFrame(frame(24000, 1)))
	is.NoErr(w.WriteFrame(frame(24000, 2)))
	is.NoErr(w.Sync())
	is.NoErr(w.WriteFrame(frame(24000, 3)))
	is.NoErr(w.Close())

	info, err := os.Stat(path)
	is.NoErr(err)
	is.Equal(info.Size(), int64(headerSize+3*480))

	format, frames, err := ReadFile(path)
	is.NoErr(err)
	is.Equal(format, Format{SampleRate: 24000, NumChannels: 1, DataSize: 3 * 480})
	is.Equal(len(frames), 3)
	is.Equal(frames[2].Data[0], byte(3))
	is.Equal(frames[1].Timestamp.Milliseconds(), int64(10))
}

func TestWriterRejectsFormatChange(t *testing.T) {
	is := is.New(t)
	w := NewWriter(filepath.Join(t.TempDir(), "out.wav"))
	defer w.Close()

	is.NoErr(w.WriteFrame(frame(24000, 0)))
	is.True(w.WriteFrame(frame(48000, 0)) != nil)
}

func TestWriterWithoutFramesCreatesNothing(t *testing.T) {
	is := is.New(t)
	path := filepath.Join(t.TempDir(), "out.wav")

	w := NewWriter(path)
	is.NoErr(w.Sync())
	is.NoErr(w.Close())

	_, err := os.Stat(path)
	is.True(os.IsNotExist(err))
}

func TestReadPadsShortFrame(t *testing.T) {
	is := is.New(t)

	var buf bytes.Buffer
	h := newHeader(16000, 1, 100)
	is.NoErr(writeStruct(&buf, h))
	buf.Write(bytes.Repeat([]byte{7}, 100))

	format, frames, err := Read(&buf)
	is.NoErr(err)
	is.Equal(format.SampleRate, 16000)
	is.Equal(len(frames), 1)
	is.Equal(len(frames[0].Data), 320)
	is.Equal(frames[0].Data[99], byte(7))
	is.Equal(frames[0].Data[100], byte(0))
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
	}{
		{"empty", nil},
		{"not riff", []byte("RIFX\x00\x00\x00\x00WAVE")},
		{"truncated chunks", []byte("RIFF\x00\x00\x00\x00WAVE")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is := is.New(t)
			_, _, err := Read(bytes.NewReader(tt.input))
			is.True(err != nil)
		})
	}
}
