package events

// Topics emitted by the payment notification processor.
const (
	TopicSessionCompleted = "checkout.session.completed"
	TopicPaymentSucceeded = "payment.succeeded"
	TopicPaymentFailed    = "payment.failed"
	TopicSessionExpired   = "checkout.session.expired"
)
