package server

// APIResponse is the envelope every JSON endpoint returns
type APIResponse struct {
	Status int         `json:"status"`
	Msg    string      `json:"msg"`
	Data   interface{} `json:"data,omitempty"`
}

// OK wraps a successful payload
func OK(data interface{}) *APIResponse {
	return &APIResponse{Status: 0, Msg: "ok", Data: data}
}

// Fail wraps an error message
func Fail(status int, msg string) *APIResponse {
	return &APIResponse{Status: status, Msg: msg}
}
