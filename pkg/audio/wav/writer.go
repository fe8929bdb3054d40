// Package wav records and reads 16-bit PCM WAV files as rtc.AudioFrames.
package wav

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/rtc"
)

const (
	bitsPerSample = 16
	headerSize    = 44
)

// header is the canonical 44-byte PCM header.
type header struct {
	RIFF          [4]byte
	ChunkSize     uint32
	WAVE          [4]byte
	Fmt           [4]byte
	FmtSize       uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Data          [4]byte
	DataSize      uint32
}

func newHeader(sampleRate uint32, numChannels uint16, dataSize uint32) header {
	return header{
		RIFF:          [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     dataSize + headerSize - 8,
		WAVE:          [4]byte{'W', 'A', 'V', 'E'},
		Fmt:           [4]byte{'f', 'm', 't', ' '},
		FmtSize:       16,
		AudioFormat:   1,
		NumChannels:   numChannels,
		SampleRate:    sampleRate,
		ByteRate:      sampleRate * uint32(numChannels) * bitsPerSample / 8,
		BlockAlign:    numChannels * bitsPerSample / 8,
		BitsPerSample: bitsPerSample,
		Data:          [4]byte{'d', 'a', 't', 'a'},
		DataSize:      dataSize,
	}
}

// Writer appends frames to a WAV file. The format is fixed by the first
// frame; later frames must match it. Safe for concurrent use.
type Writer struct {
	mu       sync.Mutex
	path     string
	file     *os.File
	rate     uint32
	channels uint16
	dataSize uint32
}

// NewWriter returns a Writer for path. The file is created on the first
// frame.
func NewWriter(path string) *Writer {
	return &Writer{path: path}
}

// WriteFrame appends one frame.
func (w *Writer) WriteFrame(f rtc.AudioFrame) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		if err := w.open(f); err != nil {
			return err
		}
	}
	if uint32(f.SampleRate) != w.rate || uint16(f.NumChannels) != w.channels {
		return fmt.Errorf("wav: frame is %d Hz x%d, file is %d Hz x%d",
			f.SampleRate, f.NumChannels, w.rate, w.channels)
	}

	n, err := w.file.Write(f.Data)
	w.dataSize += uint32(n)
	if err != nil {
		return fmt.Errorf("wav: write frame: %w", err)
	}
	return nil
}

func (w *Writer) open(f rtc.AudioFrame) error {
	if f.SampleRate <= 0 || f.NumChannels <= 0 {
		return fmt.Errorf("wav: invalid frame format %d Hz x%d", f.SampleRate, f.NumChannels)
	}
	file, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("wav: %w", err)
	}
	w.file = file
	w.rate = uint32(f.SampleRate)
	w.channels = uint16(f.NumChannels)
	return w.writeHeader()
}

// writeHeader rewrites the header with the current size and returns to the
// end of the data.
func (w *Writer) writeHeader() error {
	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("wav: %w", err)
	}
	if err := writeStruct(w.file, newHeader(w.rate, w.channels, w.dataSize)); err != nil {
		return fmt.Errorf("wav: write header: %w", err)
	}
	if _, err := w.file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("wav: %w", err)
	}
	return nil
}

// Sync updates the header so the file is playable as written so far.
func (w *Writer) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	return w.writeHeader()
}

// Close finalizes the header and closes the file. A Writer that never saw
// a frame creates no file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.writeHeader()
	if cerr := w.file.Close(); err == nil {
		err = cerr
	}
	w.file = nil
	return err
}

func writeStruct(w io.Writer, h header) error {
	return binary.Write(w, binary.LittleEndian, h)
}
