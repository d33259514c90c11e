package httpapi

// Result is the response envelope of every API call.
//   - code: ResultSuccess on success, ResultError or ResultUnauthenticated on failure
//   - type: "success" | "error"
//   - message: human-readable outcome
//   - result: payload
type Result[T any] struct {
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
	Result  T      `json:"result"`
}

const (
	ResultSuccess = 2000
	ResultError   = -1
	// ResultUnauthenticated goes with HTTP 401; the client sends the user back to sign-in.
	ResultUnauthenticated = 60401
)

func Ok[T any](result T) Result[T] {
	return Result[T]{Code: ResultSuccess, Type: "success", Message: "ok", Result: result}
}

func Fail(message string) Result[any] {
	return Result[any]{Code: ResultError, Type: "error", Message: message, Result: nil}
}
