package utils

// ResponseData is the envelope every REST handler returns.
// Exactly one of Data / Error is set depending on Success.
type ResponseData struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// PanicIfNeeded panics on a non-nil error so the Recovery middleware can
// translate it into the proper HTTP response. Handlers call this instead of
// returning errors up the fiber chain.
func PanicIfNeeded(err interface{}) {
	if err != nil {
		panic(err)
	}
}
