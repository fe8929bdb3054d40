package rtc

// Decoder turns one encoded packet payload into 16-bit PCM.
type Decoder interface {
	Decode(payload []byte) ([]byte, error)
}
