package marketplace

// Event type codes delivered on the webhook.
const (
	EventSubscriptionOrder  = "SUBSCRIPTION_ORDER"
	EventSubscriptionChange = "SUBSCRIPTION_CHANGE"
	EventSubscriptionCancel = "SUBSCRIPTION_CANCEL"
	EventSubscriptionNotice = "SUBSCRIPTION_NOTICE"
)

// Notice subtype codes.
const (
	NoticeDeactivated     = "DEACTIVATED"
	NoticeReactivated     = "REACTIVATED"
	NoticeClosed          = "CLOSED"
	NoticeUpcomingInvoice = "UPCOMING_INVOICE"
)

// Event flags.
const (
	FlagStateless   = "STATELESS"
	FlagDevelopment = "DEVELOPMENT"
)

// Error codes defined by the marketplace result contract.
const (
	ErrorCodeUserAlreadyExists  = "USER_ALREADY_EXISTS"
	ErrorCodeUserNotFound       = "USER_NOT_FOUND"
	ErrorCodeAccountNotFound    = "ACCOUNT_NOT_FOUND"
	ErrorCodeMaxUsersReached    = "MAX_USERS_REACHED"
	ErrorCodeUnauthorized       = "UNAUTHORIZED"
	ErrorCodeOperationCancelled = "OPERATION_CANCELLED"
	ErrorCodeConfigurationError = "CONFIGURATION_ERROR"
	ErrorCodeInvalidResponse    = "INVALID_RESPONSE"
	ErrorCodePending            = "PENDING"
	ErrorCodeForbidden          = "FORBIDDEN"
	ErrorCodeBindingNotFound    = "BINDING_NOT_FOUND"
	ErrorCodeTransportError     = "TRANSPORT_ERROR"
	ErrorCodeUnknown            = "UNKNOWN_ERROR"
)

// Event is the payload fetched from an event URL.
type Event struct {
	Type    string  `json:"type"`
	Flag    string  `json:"flag"`
	Creator Creator `json:"creator"`
	Payload Payload `json:"payload"`
}

// Creator identifies the marketplace user who triggered the event.
type Creator struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Payload carries the event-type specific sections.
type Payload struct {
	Company Company     `json:"company"`
	Order   Order       `json:"order"`
	Account AccountInfo `json:"account"`
	Notice  Notice      `json:"notice"`
}

// Company is the buying organisation.
type Company struct {
	Name string `json:"name"`
}

// Order describes the purchased edition.
type Order struct {
	EditionCode string      `json:"editionCode"`
	Trial       bool        `json:"trial"`
	Items       []OrderItem `json:"items"`
}

// OrderItem is one unit/quantity line of a flex order.
type OrderItem struct {
	Unit     string `json:"unit"`
	Quantity int64  `json:"quantity"`
}

// AccountInfo references a previously provisioned subscription.
type AccountInfo struct {
	AccountIdentifier string `json:"accountIdentifier"`
	Status            string `json:"status"`
}

// Notice is the subtype section of SUBSCRIPTION_NOTICE events.
type Notice struct {
	Type string `json:"type"`
}

// Result is the body posted back to <eventUrl>/result.
type Result struct {
	Success           bool   `json:"success"`
	AccountIdentifier string `json:"accountIdentifier,omitempty"`
	ErrorCode         string `json:"errorCode,omitempty"`
	Message           string `json:"message,omitempty"`
}

// SuccessResult reports a processed event with no account to return.
func SuccessResult() Result {
	return Result{Success: true}
}

// SuccessResultWithAccount reports a processed event together with the
// identifier the marketplace should attach to the subscription.
func SuccessResultWithAccount(accountIdentifier string) Result {
	return Result{Success: true, AccountIdentifier: accountIdentifier}
}

// ErrorResult reports a failed event.
func ErrorResult(errorCode string) Result {
	return Result{Success: false, ErrorCode: errorCode}
}

// ErrorResultWithMessage reports a failed event with a reason string.
func ErrorResultWithMessage(errorCode, message string) Result {
	return Result{Success: false, ErrorCode: errorCode, Message: message}
}
