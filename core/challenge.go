package core

import "time"

// ImageChallenge is an issued image captcha
type ImageChallenge struct {
	ID     string // Echoed back by the client together with the answer
	Answer string // Expected answer, stored in the key-value store
	Image  []byte // Encoded PNG
}

// EmailPurpose selects the lifetime and wording of an email code
type EmailPurpose string

const (
	PurposeLogin    EmailPurpose = "login"
	PurposeRegister EmailPurpose = "register"
	PurposeRecovery EmailPurpose = "recovery"
)

// EmailType tags queued mail
type EmailType string

const (
	EmailTypeCaptcha        EmailType = "captcha"
	EmailTypeForgotPassword EmailType = "forgot_password"
)

// EmailMessage is queued for asynchronous delivery
type EmailMessage struct {
	To      string    `json:"to"`
	Subject string    `json:"subject"`
	Body    string    `json:"text"`
	Type    EmailType `json:"type"`
}

// Outcome of a single answer submission
type Outcome int

const (
	OutcomeAccepted Outcome = iota
	OutcomeWrong
	OutcomeLockedOut
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAccepted:
		return "accepted"
	case OutcomeWrong:
		return "wrong"
	case OutcomeLockedOut:
		return "locked_out"
	default:
		return "unknown"
	}
}

// Verdict is what the attempt governor decided for one submission
type Verdict struct {
	Outcome   Outcome
	Remaining int // Only meaningful for OutcomeWrong
}

// ChallengeKind distinguishes the two verification channels
type ChallengeKind string

const (
	ChallengeImage ChallengeKind = "image"
	ChallengeEmail ChallengeKind = "email"
)

// ChallengeRef addresses a stored challenge and its attempt counter
type ChallengeRef struct {
	Kind       ChallengeKind
	AnswerKey  string        // Key holding the expected answer
	CounterKey string        // Key holding the failure count
	LockoutTTL time.Duration // Window of the failure counter
	FoldCase   bool          // Case-insensitive comparison
}
