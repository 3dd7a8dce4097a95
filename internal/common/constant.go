package common

// Header names used to carry credentials on outbound requests. Codes travel
// in dedicated headers, never alongside request bodies.
const (
	AccessTokenHeaderName   = "Authorization"
	PrimaryCodeHeaderName   = "X-Conversation-Code"
	SecondaryCodeHeaderName = "X-Message-Code"
	RequestIDHeaderName     = "X-Request-Id"
)
