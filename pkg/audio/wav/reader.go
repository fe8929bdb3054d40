package wav

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/rtc"
)

// Format describes the PCM stream in a WAV file.
type Format struct {
	SampleRate  int
	NumChannels int
	DataSize    int
}

// ReadFile decodes a 16-bit PCM WAV file into 10 ms frames. A short final
// frame is zero-padded.
func ReadFile(path string) (Format, []rtc.AudioFrame, error) {
	f, err := os.Open(path)
	if err != nil {
		return Format{}, nil, fmt.Errorf("wav: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Read decodes a WAV stream from r.
func Read(r io.Reader) (Format, []rtc.AudioFrame, error) {
	format, err := readHeader(r)
	if err != nil {
		return Format{}, nil, err
	}

	size := rtc.FrameBytes(format.SampleRate, format.NumChannels)
	data := io.LimitReader(r, int64(format.DataSize))

	var frames []rtc.AudioFrame
	for i := 0; ; i++ {
		buf := make([]byte, size)
		n, err := io.ReadFull(data, buf)
		if n > 0 {
			f, ferr := rtc.NewAudioFrame(buf, format.SampleRate, format.NumChannels, time.Duration(i)*10*time.Millisecond)
			if ferr != nil {
				return Format{}, nil, fmt.Errorf("wav: %w", ferr)
			}
			frames = append(frames, *f)
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return format, frames, nil
		}
		if err != nil {
			return Format{}, nil, fmt.Errorf("wav: read data: %w", err)
		}
	}
}

func readHeader(r io.Reader) (Format, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return Format{}, fmt.Errorf("wav: read RIFF header: %w", err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return Format{}, errors.New("wav: not a RIFF/WAVE file")
	}

	var format Format
	sawFmt := false
	for {
		var chunk [8]byte
		if _, err := io.ReadFull(r, chunk[:]); err != nil {
			return Format{}, fmt.Errorf("wav: read chunk header: %w", err)
		}
		id := string(chunk[0:4])
		size := binary.LittleEndian.Uint32(chunk[4:8])

		switch id {
		case "fmt ":
			if size < 16 {
				return Format{}, fmt.Errorf("wav: fmt chunk too small: %d bytes", size)
			}
			fmtData := make([]byte, size)
			if _, err := io.ReadFull(r, fmtData); err != nil {
				return Format{}, fmt.Errorf("wav: read fmt chunk: %w", err)
			}
			if audioFormat := binary.LittleEndian.Uint16(fmtData[0:2]); audioFormat != 1 {
				return Format{}, fmt.Errorf("wav: only PCM is supported, got format %d", audioFormat)
			}
			if bits := binary.LittleEndian.Uint16(fmtData[14:16]); bits != bitsPerSample {
				return Format{}, fmt.Errorf("wav: only 16-bit samples are supported, got %d-bit", bits)
			}
			format.NumChannels = int(binary.LittleEndian.Uint16(fmtData[2:4]))
			format.SampleRate = int(binary.LittleEndian.Uint32(fmtData[4:8]))
			if format.SampleRate%100 != 0 || format.NumChannels < 1 || format.NumChannels > 2 {
				return Format{}, fmt.Errorf("wav: unsupported format %d Hz x%d", format.SampleRate, format.NumChannels)
			}
			sawFmt = true
		case "data":
			if !sawFmt {
				return Format{}, errors.New("wav: data chunk before fmt chunk")
			}
			format.DataSize = int(size)
			return format, nil
		default:
			if _, err := io.CopyN(io.Discard, r, int64(size)); err != nil {
				return Format{}, fmt.Errorf("wav: skip %q chunk: %w", id, err)
			}
		}
	}
}
