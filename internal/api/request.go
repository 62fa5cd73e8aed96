package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const maxBodyBytes = 1 << 20

// OutboundMessage is the body accepted by POST /send-message/.
type OutboundMessage struct {
	Message string `json:"message"`
	Channel string `json:"channel,omitempty"`
}

// ValidationError describes one rejected field of the request body.
type ValidationError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

type validationResponse struct {
	Detail []ValidationError `json:"detail"`
}

// decodeOutboundMessage parses and validates the request body. A non-empty
// slice means the request must be rejected without calling Slack.
func decodeOutboundMessage(body io.Reader) (OutboundMessage, []ValidationError) {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		return OutboundMessage{}, []ValidationError{jsonInvalid(err)}
	}
	if raw == nil {
		return OutboundMessage{}, []ValidationError{{
			Loc:  []string{"body"},
			Msg:  "Input should be a valid dictionary",
			Type: "json_invalid",
		}}
	}

	var (
		msg  OutboundMessage
		errs []ValidationError
	)

	switch value, ok := raw["message"]; {
	case !ok || isNull(value):
		errs = append(errs, ValidationError{Loc: []string{"body", "message"}, Msg: "Field required", Type: "missing"})
	case json.Unmarshal(value, &msg.Message) != nil:
		errs = append(errs, stringType("message"))
	case strings.TrimSpace(msg.Message) == "":
		errs = append(errs, ValidationError{
			Loc:  []string{"body", "message"},
			Msg:  "String should have at least 1 character",
			Type: "string_too_short",
		})
	}

	if value, ok := raw["channel"]; ok && !isNull(value) {
		if err := json.Unmarshal(value, &msg.Channel); err != nil {
			errs = append(errs, stringType("channel"))
		}
	}

	return msg, errs
}

func jsonInvalid(err error) ValidationError {
	msg := "Invalid JSON"
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		msg = fmt.Sprintf("Request body exceeds %d bytes", maxErr.Limit)
	} else if err != nil {
		msg = "Invalid JSON: " + err.Error()
	}
	return ValidationError{Loc: []string{"body"}, Msg: msg, Type: "json_invalid"}
}

func stringType(field string) ValidationError {
	return ValidationError{Loc: []string{"body", field}, Msg: "Input should be a valid string", Type: "string_type"}
}

func isNull(value json.RawMessage) bool {
	return strings.TrimSpace(string(value)) == "null"
}
