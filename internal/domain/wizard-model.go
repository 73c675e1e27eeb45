package domain

// WizardKind distinguishes the guided flows that hold server-side context.
type WizardKind string

const (
	WizardAddSubscription WizardKind = "add_subscription"
)

// WizardContext is the short-lived, server-held progress of a multi-step
// flow. It lives in Redis under the owning chat id and expires on its own;
// callback payloads carry only the context id plus the newly chosen value.
type WizardContext struct {
	ID       string          `json:"id"`
	Kind     WizardKind      `json:"kind"`
	Location string          `json:"location,omitempty"`
	Category WarningCategory `json:"category,omitempty"`
}
