package dto

// Messages returned in error bodies
const (
	MsgCallFieldsRequired = "Method, domain, and access_token are required."
	MsgParamsNotObject    = "params must be a JSON object."
	MsgUpstreamFailed     = "Failed to call Bitrix24 API."
	MsgNotFound           = "Not found"
	MsgInternal           = "Internal server error"
	MsgRequestTooLarge    = "Request body exceeds maximum allowed size"
)

// ErrorResponse is the body of every error answer
type ErrorResponse struct {
	Error string `json:"error"`
}

// NewErrorResponse creates an error body
func NewErrorResponse(message string) ErrorResponse {
	return ErrorResponse{Error: message}
}
