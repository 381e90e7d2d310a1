package domain

// BuyTrigger carries the buy parameters of a matched task to the external
// trading gateway. Emission is fire-and-forget; delivery failure is reported
// to the task owner, never retried by the core.
type BuyTrigger struct {
	Token           string
	TaskID          string
	OwnerID         string
	BuyAmountSOL    float64
	SlippagePercent int
	PriorityFeeSOL  float64
	WalletAddress   string
	WalletLabel     string
	TriggeredAt     int64 // Unix timestamp in milliseconds
}

// DispatchOutcome classifies the result of one dispatch decision.
type DispatchOutcome string

const (
	OutcomeBuySent      DispatchOutcome = "BUY_SENT"
	OutcomeInformed     DispatchOutcome = "INFORMED"      // inform-only task, no buy
	OutcomeSuppressed   DispatchOutcome = "SUPPRESSED"    // duplicate within dedup window
	OutcomeGatewayError DispatchOutcome = "GATEWAY_ERROR" // buy emitted, delivery failed
)

// String returns the string representation of DispatchOutcome.
func (o DispatchOutcome) String() string {
	return string(o)
}

// DispatchEvent is one append-only audit record of a dispatch decision.
type DispatchEvent struct {
	Token        string
	TaskID       string
	OwnerID      string
	Outcome      DispatchOutcome
	Platform     Platform
	ChannelID    string
	AuthorID     string
	Method       ExtractionMethod
	Error        string // empty unless Outcome is GATEWAY_ERROR
	DispatchedAt int64  // Unix timestamp in milliseconds
}
