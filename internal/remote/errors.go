package remote

import (
	"fmt"
	"net/http"

	"centrovision-data/internal/apperr"

	"github.com/go-resty/resty/v2"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// APIError is the error body returned by the hosted REST, auth and storage APIs.
// Each API uses a different subset of these fields.
type APIError struct {
	Code             string `json:"code"`
	Message          string `json:"message"`
	Details          string `json:"details"`
	Hint             string `json:"hint"`
	Msg              string `json:"msg"`
	ErrorName        string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (e *APIError) text() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Msg != "":
		return e.Msg
	case e.ErrorDescription != "":
		return e.ErrorDescription
	default:
		return e.ErrorName
	}
}

// Error is a failed hosted-backend response.
type Error struct {
	Op      string
	Status  int
	Code    string
	Message string
	Details string
}

func (e *Error) Error() string {
	if e.Code != "" {
		if name := pq.ErrorCode(e.Code).Name(); name != "" {
			return fmt.Sprintf("remote %s: status %d, %s (%s): %s", e.Op, e.Status, e.Code, name, e.Message)
		}
		return fmt.Sprintf("remote %s: status %d, %s: %s", e.Op, e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("remote %s: status %d: %s", e.Op, e.Status, e.Message)
}

func (c *Client) check(op string, resp *resty.Response, err error, apiErr *APIError) error {
	if err != nil {
		c.logger.Error("Remote call failed", zap.String("op", op), zap.Error(err))
		return apperr.External("remote "+op, err)
	}
	if !resp.IsError() {
		return nil
	}
	remoteErr := &Error{
		Op:      op,
		Status:  resp.StatusCode(),
		Code:    apiErr.Code,
		Message: apiErr.text(),
		Details: apiErr.Details,
	}
	if remoteErr.Message == "" {
		remoteErr.Message = http.StatusText(resp.StatusCode())
	}
	c.logger.Warn("Remote call rejected",
		zap.String("op", op),
		zap.Int("status", remoteErr.Status),
		zap.String("code", remoteErr.Code),
		zap.String("message", remoteErr.Message),
	)
	return classify(remoteErr)
}

// classify maps a hosted-backend failure onto the application taxonomy using
// the HTTP status and the Postgres SQLSTATE forwarded by the REST layer.
func classify(e *Error) error {
	kind := apperr.KindExternal
	switch {
	case e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden:
		kind = apperr.KindAuthorization
	case e.Code == "PGRST116" || e.Status == http.StatusNotFound || e.Status == http.StatusNotAcceptable:
		kind = apperr.KindNotFound
	case len(e.Code) == 5:
		code := pq.ErrorCode(e.Code)
		switch {
		case code == "42501":
			kind = apperr.KindAuthorization
		case code == "P0001":
			// raise_exception from a database function: business rule
			kind = apperr.KindBusinessRule
		case code.Class() == "23":
			kind = apperr.KindBusinessRule
		case code.Class() == "22":
			kind = apperr.KindValidation
		}
	}
	return &apperr.Error{Kind: kind, Op: "remote " + e.Op, Message: e.Message, Err: e}
}
