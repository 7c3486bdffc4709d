package capture

// State is the lifecycle position of one capture.
type State int

const (
	StateIdle State = iota
	StateStreamOpened
	StateEncoderInitialized
	StateSinkBound
	StateRowsWriting
	StateFinalizing
	StatePublished
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreamOpened:
		return "stream_opened"
	case StateEncoderInitialized:
		return "encoder_initialized"
	case StateSinkBound:
		return "sink_bound"
	case StateRowsWriting:
		return "rows_writing"
	case StateFinalizing:
		return "finalizing"
	case StatePublished:
		return "published"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Terminal reports whether the capture is over.
func (s State) Terminal() bool {
	return s == StatePublished || s == StateAborted
}
