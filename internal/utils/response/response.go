package response

import (
	"encoding/json"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Response is the envelope the portfolio backend and its proxies use for
// errors and acknowledgements.
type Response struct {
	Status  string      `json:"status,omitempty"`
	Error   string      `json:"error,omitempty"`
	Detail  interface{} `json:"detail,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// ErrorMessage extracts a human readable error from a response body. It
// understands {"error": ...}, {"detail": ...} (string or list of objects with
// "msg") and {"message": ...}, and falls back to the trimmed body.
func ErrorMessage(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return ""
	}

	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return truncate(trimmed, 200)
	}

	if resp.Error != "" {
		return resp.Error
	}
	if msg := detailMessage(resp.Detail); msg != "" {
		return msg
	}
	if resp.Message != "" {
		return resp.Message
	}
	return ""
}

func detailMessage(detail interface{}) string {
	switch d := detail.(type) {
	case string:
		return d
	case []interface{}:
		var parts []string
		for _, entry := range d {
			obj, ok := entry.(map[string]interface{})
			if !ok {
				continue
			}
			if msg, ok := obj["msg"].(string); ok && msg != "" {
				parts = append(parts, msg)
			}
		}
		return strings.Join(parts, "; ")
	default:
		return ""
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// ValidationError flattens validator errors into "field: tag" pairs.
func ValidationError(errs validator.ValidationErrors) string {
	var errorMessages []string
	for _, err := range errs {
		msg := strings.ToLower(err.Field()) + ": " + err.Tag()
		if err.Param() != "" {
			msg += "=" + err.Param()
		}
		errorMessages = append(errorMessages, msg)
	}

	return strings.Join(errorMessages, "; ")
}
