package api

import "net/http"

// Error is a caller-facing failure carrying the HTTP status to reply with.
// Message is safe to return; Err holds the underlying cause for logging.
type Error struct {
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func badRequest(message string) *Error {
	return &Error{Status: http.StatusBadRequest, Message: message}
}

func notFound(message string) *Error {
	return &Error{Status: http.StatusNotFound, Message: message}
}

func internalError(message string, err error) *Error {
	return &Error{Status: http.StatusInternalServerError, Message: message, Err: err}
}

const (
	msgFieldsRequired        = "Phone number and amount are required."
	msgDepositAmountInvalid  = "Amount must be a number greater than 0."
	msgPaymentFailed         = "Payment initiation failed."
	msgMinimumWithdrawal     = "Minimum withdrawal amount is KES 10."
	msgUserNotFound          = "User not found"
	msgInsufficientBalance   = "Insufficient balance"
	msgWithdrawalFailed      = "Withdrawal failed. Please try again."
	msgInternal              = "Internal server error"
	msgReversalFields        = "Missing transaction ID or amount"
	msgReversalAmount        = "Amount must be a number"
	msgTransactionIdRequired = "Transaction ID required"
	msgServiceRequestFailed  = "Service request failed"
)
