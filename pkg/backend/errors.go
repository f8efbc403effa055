package backend

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// maxErrorBody bounds how much of an error response is kept.
const maxErrorBody = 4096

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int

	// Detail is the server's "detail" field when the body is JSON, otherwise
	// the start of the raw body.
	Detail string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: backend returned HTTP %d", e.Method, e.Path, e.StatusCode)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var serr *StatusError
	return errors.As(err, &serr) && serr.StatusCode == http.StatusNotFound
}

func newStatusError(req *http.Request, resp *http.Response) *StatusError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	detail := strings.TrimSpace(string(body))
	if gjson.ValidBytes(body) {
		if d := gjson.GetBytes(body, "detail"); d.Exists() {
			detail = d.String()
		}
	}

	return &StatusError{
		Method:     req.Method,
		Path:       req.URL.Path,
		StatusCode: resp.StatusCode,
		Detail:     detail,
	}
}
