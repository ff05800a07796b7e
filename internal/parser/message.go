package parser

import (
	"encoding/json"
	"strings"

	"pet-triage-backend/internal/shared/apperr"
)

type messageContent struct {
	Content json.RawMessage `json:"content"`
}

type choice struct {
	Message messageContent `json:"message"`
}

type envelope struct {
	Choices []choice `json:"choices"`
	Output  *struct {
		Text    string   `json:"text"`
		Choices []choice `json:"choices"`
	} `json:"output"`
	Response *string `json:"response"`
}

// MessageText finds the model's text in a backend payload. It accepts the
// chat-completions shape, the DashScope output shape and a bare "response"
// field, in that order.
func MessageText(payload []byte) (string, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return "", apperr.Parse("backend payload is not a JSON object: %v", err)
	}

	if len(env.Choices) > 0 {
		if text := contentText(env.Choices[0].Message.Content); text != "" {
			return text, nil
		}
	}
	if env.Output != nil {
		if len(env.Output.Choices) > 0 {
			if text := contentText(env.Output.Choices[0].Message.Content); text != "" {
				return text, nil
			}
		}
		if text := strings.TrimSpace(env.Output.Text); text != "" {
			return text, nil
		}
	}
	if env.Response != nil && strings.TrimSpace(*env.Response) != "" {
		return strings.TrimSpace(*env.Response), nil
	}
	return "", apperr.Parse("backend payload has no message text")
}

// contentText accepts a plain string or a list of {type,text} parts.
func contentText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var parts []struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &parts); err != nil {
		return ""
	}
	texts := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p.Text); t != "" {
			texts = append(texts, t)
		}
	}
	return strings.Join(texts, "\n")
}
