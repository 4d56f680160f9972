// Package capture abstracts the external pitch detector as a stream of
// timed frequency samples.
package capture

// Sample is one raw detector output. Confidence below 0.5 or a non-positive
// frequency marks the sample unvoiced downstream.
type Sample struct {
	Time       float64
	Hz         float64
	Confidence float64
}

// Source is a live pitch sample stream. Start may be called again after
// Stop; each Start returns a fresh channel that is closed when the stream
// ends or Stop is called.
type Source interface {
	Start() (<-chan Sample, error)
	Stop()
}
