package playback

// AudioState is the playback state the application believes it is in.
type AudioState int

const (
	// Idle means nothing is being spoken.
	Idle AudioState = iota
	// LoadingSpeech means a story or an utterance has been requested but not confirmed.
	LoadingSpeech
	// Playing means an utterance is being spoken.
	Playing
	// Paused means an utterance is suspended and can be resumed.
	Paused
	// Error means the last story fetch or utterance failed.
	Error
)

func (s AudioState) String() string {
	switch s {
	case Idle:
		return "idle"
	case LoadingSpeech:
		return "loading"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Diverged reports whether the driver's observed state contradicts the believed state
// in a way that should reset playback to Idle. speaking is true while an utterance is
// active, paused or not.
func Diverged(believed AudioState, speaking, paused bool) bool {
	switch believed {
	case Playing:
		return !speaking && !paused
	case Paused:
		return !paused && !speaking
	default:
		return false
	}
}
