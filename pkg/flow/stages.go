package flow

// Stage is a named point in the conversation's finite state machine.
type Stage string

const (
	StageAskLanguage   Stage = "ASK_LANGUAGE"
	StageAskName       Stage = "ASK_NAME"
	StageAskNeed       Stage = "ASK_NEED"
	StageClassifyNeed  Stage = "CLASSIFY_NEED"
	StageAskDevice     Stage = "ASK_DEVICE"
	StageDetectDevice  Stage = "DETECT_DEVICE"
	StageAskProblem    Stage = "ASK_PROBLEM"
	StageGenerateHowto Stage = "GENERATE_HOWTO"
	StageBasicTests    Stage = "BASIC_TESTS"
	StageAdvancedTests Stage = "ADVANCED_TESTS"
	StageEscalate      Stage = "ESCALATE"
	StageAskContact    Stage = "ASK_CONTACT"
	StageCreateTicket  Stage = "CREATE_TICKET"
	StageTicketSent    Stage = "TICKET_SENT"
	StageEnded         Stage = "ENDED"
)

// AllStages is the closed set of legal stage values. A session whose stage is
// not a member of this set is corrupt.
var AllStages = []Stage{
	StageAskLanguage,
	StageAskName,
	StageAskNeed,
	StageClassifyNeed,
	StageAskDevice,
	StageDetectDevice,
	StageAskProblem,
	StageGenerateHowto,
	StageBasicTests,
	StageAdvancedTests,
	StageEscalate,
	StageAskContact,
	StageCreateTicket,
	StageTicketSent,
	StageEnded,
}

// IsValid reports whether s is a member of the defined stage set.
func (s Stage) IsValid() bool {
	for _, known := range AllStages {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether the conversation is over at this stage.
func (s Stage) Terminal() bool {
	return s == StageEnded
}
