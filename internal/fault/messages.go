package fault

// userMessages maps codes to the user-visible message and an optional
// remediation hint. Messages are deliberately short; clients render them
// verbatim.
var userMessages = map[Code]struct {
	message   string
	action    string
	actionURL string
}{
	CodeUnknown:      {message: "Something went wrong. Please try again."},
	CodeValidation:   {message: "The request was invalid."},
	CodeUnauthorized: {message: "You are not authorized to do that."},
	CodeRateLimited:  {message: "Too many requests. Please wait a moment and try again."},

	CodeTransport: {message: "A network error occurred. Please try again."},

	CodeBackendConnection: {message: "Could not reach the ad platform service."},
	CodeBackendTool:       {message: "The ad platform reported an error."},
	CodeBackendTimeout:    {message: "The ad platform took too long to respond."},

	CodeModelUnavailable: {message: "The AI model is temporarily unavailable."},
	CodeModelTimeout:     {message: "The AI model took too long to respond."},
	CodeModelQuota:       {message: "The AI model quota was exceeded. Please try again later."},

	CodeNotFound: {message: "The requested resource was not found."},
	CodeInternal: {message: "An internal error occurred."},
	CodeDB:       {message: "A storage error occurred."},

	CodeAccountAuthExpired: {
		message: "Your ad account connection has expired.",
		action:  "Reconnect account", actionURL: "/settings/accounts",
	},
	CodeInsufficientCredits: {
		message: "You do not have enough credits for this action.",
		action:  "Top up credits", actionURL: "/billing/credits",
	},
	CodeLedger: {message: "The credit service is temporarily unavailable."},
}

// UserMessage returns the user-visible message for a code.
func UserMessage(code Code) string {
	msg, _, _ := messageFor(code)
	return msg
}

func messageFor(code Code) (message, action, actionURL string) {
	if entry, ok := userMessages[code]; ok {
		return entry.message, entry.action, entry.actionURL
	}
	entry := userMessages[CodeUnknown]
	return entry.message, entry.action, entry.actionURL
}
