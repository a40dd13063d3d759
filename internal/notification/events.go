package notification

// EventTag identifies the business event that produced a notification.
type EventTag string

const (
	// Critical events: must reach the user even when offline and require an
	// explicit client acknowledgment.
	EventAccountSyncFailed EventTag = "account_sync_failed"
	EventPaymentFailed     EventTag = "payment_failed"
	EventLowBalance        EventTag = "low_balance"
	EventSecurityAlert     EventTag = "security_alert"

	// Non-critical events: skipped for offline users and delivered via the
	// catch-up burst on next connect.
	EventAccountConnected EventTag = "account_connected"
	EventLargeTransaction EventTag = "large_transaction"
	EventReportReady      EventTag = "report_ready"
	EventPaymentSuccess   EventTag = "payment_success"
	EventSyncCompleted    EventTag = "sync_completed"
)

// criticalEvents is the static membership set behind Notification.IsCritical.
var criticalEvents = map[EventTag]bool{
	EventAccountSyncFailed: true,
	EventPaymentFailed:     true,
	EventLowBalance:        true,
	EventSecurityAlert:     true,
}

// IsCriticalEvent reports whether the event requires guaranteed delivery and
// an explicit client acknowledgment.
func IsCriticalEvent(event EventTag) bool {
	return criticalEvents[event]
}

// IsKnownEvent reports whether the tag is part of the event taxonomy.
func IsKnownEvent(event EventTag) bool {
	_, ok := defaultMessages[event]
	return ok
}

// defaultMessage holds the title and message used when the emitting module
// does not supply its own.
type defaultMessage struct {
	Title   string
	Message string
}

// defaultMessages covers every EventTag. Adding an event means adding an
// entry here and, if needed, to criticalEvents.
var defaultMessages = map[EventTag]defaultMessage{
	EventAccountSyncFailed: {
		Title:   "Bank sync failed",
		Message: "We could not refresh one of your bank connections. Please re-authorize the account.",
	},
	EventPaymentFailed: {
		Title:   "Payment failed",
		Message: "A payment could not be processed. Please check your payment method.",
	},
	EventLowBalance: {
		Title:   "Low balance warning",
		Message: "The balance of one of your accounts dropped below its alert threshold.",
	},
	EventSecurityAlert: {
		Title:   "Security alert",
		Message: "We noticed unusual activity on your account. Please review your recent sign-ins.",
	},
	EventAccountConnected: {
		Title:   "Account connected",
		Message: "Your bank account was connected successfully and is now syncing.",
	},
	EventLargeTransaction: {
		Title:   "Large transaction detected",
		Message: "A transaction larger than usual was recorded on one of your accounts.",
	},
	EventReportReady: {
		Title:   "Report ready",
		Message: "Your financial report has finished generating and is ready to view.",
	},
	EventPaymentSuccess: {
		Title:   "Payment received",
		Message: "Your payment was processed successfully.",
	},
	EventSyncCompleted: {
		Title:   "Sync completed",
		Message: "All of your bank connections finished syncing.",
	},
}

// DefaultMessage returns the static title and message for the event.
func DefaultMessage(event EventTag) (title, message string) {
	d := defaultMessages[event]
	return d.Title, d.Message
}
