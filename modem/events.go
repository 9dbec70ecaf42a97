package modem

// EventKind tags the variant carried by an Event (§5).
type EventKind int

const (
	// EventInit (re)initializes the core with a Profile, rebuilding the
	// waveform bank and all ring/tx/rx state.
	EventInit EventKind = iota

	// EventDataOn starts continuous-carrier transmission of the profile's
	// InitialPattern.
	EventDataOn

	// EventDataOff stops transmission; output is silent from the next
	// sub-frame.
	EventDataOff

	// EventDataSend installs a new payload buffer to transmit in place of
	// the continuous pattern.
	EventDataSend

	// EventDataClear resets the receiver's accumulated message buffer.
	EventDataClear

	// EventTerminate asks the core worker goroutine to exit.
	EventTerminate
)

// Event is one entry in the bounded UI-to-core input queue (§5). Only the
// field relevant to Kind is populated.
type Event struct {
	Kind    EventKind
	Profile Profile // EventInit
	Data    []byte  // EventDataSend
}
