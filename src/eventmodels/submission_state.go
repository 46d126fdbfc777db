package eventmodels

// SubmissionState is the verify/confirm machine state. The machine
// always returns to SubmissionStateIdle.
type SubmissionState string

const (
	SubmissionStateIdle                 SubmissionState = "Idle"
	SubmissionStateVerifying            SubmissionState = "Verifying"
	SubmissionStateAwaitingConfirmation SubmissionState = "AwaitingConfirmation"
	SubmissionStateConfirming           SubmissionState = "Confirming"
)
