package chat

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"
)

// MessageRequired is the error text of a 400 response and of a websocket
// error frame for an invalid request.
const MessageRequired = "Message is required"

// ErrMessageRequired is reported for a missing, empty or non-string message.
var ErrMessageRequired = errors.New("message is required")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Request is the body of POST /chat and of every websocket frame.
// ConversationHistory is accepted for compatibility and ignored: answers are
// single-turn.
type Request struct {
	Message             string          `json:"message" validate:"required"`
	ConversationHistory json.RawMessage `json:"conversationHistory,omitempty"`
}

type rawRequest struct {
	Message             json.RawMessage `json:"message"`
	ConversationHistory json.RawMessage `json:"conversationHistory"`
}

// ParseRequest decodes body into a Request. Any malformed body, and any
// message that is absent, null, empty or not a JSON string, yields
// ErrMessageRequired.
func ParseRequest(body []byte) (Request, error) {
	var raw rawRequest
	if err := json.Unmarshal(body, &raw); err != nil {
		return Request{}, ErrMessageRequired
	}

	msg := bytes.TrimSpace(raw.Message)
	if len(msg) == 0 || msg[0] != '"' {
		return Request{}, ErrMessageRequired
	}

	req := Request{ConversationHistory: raw.ConversationHistory}
	if err := json.Unmarshal(msg, &req.Message); err != nil {
		return Request{}, ErrMessageRequired
	}
	if err := validate.Struct(req); err != nil {
		return Request{}, ErrMessageRequired
	}
	return req, nil
}
