package domain

// Step identifies which state machine a conversation is in and where.
// StepIdle means no flow is active and input falls through to the menu.
type Step string

const (
	StepIdle Step = ""

	// Email verification flow
	StepAwaitingEmail     Step = "awaiting_email"
	StepAwaitingEmailCode Step = "awaiting_email_code"

	// Checkout flow
	StepAwaitingAddress Step = "awaiting_address"
	StepAwaitingNote    Step = "awaiting_note"

	// Manual category order flow
	StepAwaitingDetails Step = "awaiting_details"
	StepAwaitingConfirm Step = "awaiting_confirm"
)

// CategoryKind is the catalog category a manual order flow was entered from.
// Cancellation uses it to restore the originating menu instead of a blanket
// reset.
type CategoryKind string

const (
	CategoryBrand   CategoryKind = "brand"
	CategoryLiquids CategoryKind = "liquids"
	CategoryPods    CategoryKind = "pods"
)

// Scratch variants: one closed struct per flow instead of an open-ended bag.
// At most one is set at a time, matching the active step.

type CheckoutScratch struct {
	Address string `json:"address"`
}

type OrderScratch struct {
	Kind    CategoryKind `json:"kind"`
	Brand   string       `json:"brand,omitempty"`
	Details string       `json:"details,omitempty"`
}

type OtpScratch struct {
	Email string `json:"email"`
}

// SessionState is the persisted per-identity conversation state: the current
// step plus the scratch variant the step needs. Latest write wins.
type SessionState struct {
	Step     Step             `json:"step"`
	Checkout *CheckoutScratch `json:"checkout,omitempty"`
	Order    *OrderScratch    `json:"order,omitempty"`
	Otp      *OtpScratch      `json:"otp,omitempty"`
}

func (s *SessionState) Idle() bool {
	return s == nil || s.Step == StepIdle
}
