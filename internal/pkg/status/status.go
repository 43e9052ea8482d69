package status

// Status represents transcription job status
type Status int

const (
	// Pending - job is created but not yet picked for processing
	Pending Status = iota + 1
	// Processing - job media was dispatched to the transcription engine
	Processing
	// Completed - transcript is ready
	Completed
	// Failed - engine or storage fault, no transcript
	Failed
)

var (
	statusName = map[Status]string{Pending: "PENDING", Processing: "PROCESSING",
		Completed: "COMPLETED", Failed: "FAILED"}
	nameStatus = map[string]Status{"PENDING": Pending, "PROCESSING": Processing,
		"COMPLETED": Completed, "FAILED": Failed}
)

// Name returns string representation of status
func (st Status) Name() string {
	return statusName[st]
}

// From converts string to Status, 0 for unknown value
func From(st string) Status {
	return nameStatus[st]
}

// Terminal returns true for statuses with no further transitions
func (st Status) Terminal() bool {
	return st == Completed || st == Failed
}

// CanTransition returns true if the move from st to next is allowed
func CanTransition(st, next Status) bool {
	switch st {
	case Pending:
		return next == Processing
	case Processing:
		return next == Completed || next == Failed
	}
	return false
}
