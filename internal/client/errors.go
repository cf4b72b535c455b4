package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// StatusError is a non-2xx API response.
type StatusError struct {
	Code   int
	Detail string
	Body   string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("server returned %d: %s", e.Code, e.Detail)
	}
	if e.Body != "" {
		return fmt.Sprintf("server returned %d: %s", e.Code, e.Body)
	}
	return fmt.Sprintf("server returned %d", e.Code)
}

// IsUnauthorized reports whether err is a 401 from the API.
func IsUnauthorized(err error) bool {
	return HasStatus(err, http.StatusUnauthorized)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	return HasStatus(err, http.StatusNotFound)
}

func HasStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}

func newStatusError(code int, body []byte) *StatusError {
	return &StatusError{
		Code:   code,
		Detail: parseDetail(body),
		Body:   strings.TrimSpace(string(body)),
	}
}

// parseDetail extracts the human-readable message from an error body. The API
// answers {"detail": "..."} for handled errors and {"detail": [{"msg": ...}]}
// for validation failures.
func parseDetail(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Detail) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(payload.Detail, &s); err == nil {
		return s
	}

	var items []struct {
		Loc []any  `json:"loc"`
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(payload.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg == "" {
				continue
			}
			if field := lastLoc(it.Loc); field != "" {
				msgs = append(msgs, field+": "+it.Msg)
			} else {
				msgs = append(msgs, it.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}

	return string(payload.Detail)
}

func lastLoc(loc []any) string {
	if len(loc) == 0 {
		return ""
	}
	if s, ok := loc[len(loc)-1].(string); ok {
		return s
	}
	return ""
}
