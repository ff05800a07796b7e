package vision

import (
	"net/url"
	"strings"

	"pet-triage-backend/internal/shared/apperr"
)

// Backend is the closed set of supported vision wire formats.
type Backend string

const (
	// BackendNone means no vision backend is configured.
	BackendNone Backend = ""
	// BackendChatCompletions is an OpenAI-compatible chat-completions API
	// such as OpenRouter.
	BackendChatCompletions Backend = "chat_completions"
	// BackendDashScope is the DashScope multimodal-generation API.
	BackendDashScope Backend = "dashscope"
	// BackendMultipart posts the image and prompt as a multipart form.
	BackendMultipart Backend = "multipart"
)

// ParseBackend picks the backend once at startup. An explicit name wins;
// otherwise the endpoint host decides.
func ParseBackend(name, endpoint string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "chat_completions", "chat", "openai", "openrouter":
		return BackendChatCompletions, nil
	case "dashscope":
		return BackendDashScope, nil
	case "multipart", "generic":
		return BackendMultipart, nil
	case "":
	default:
		return BackendNone, apperr.Configuration("unknown vision backend %q", name)
	}

	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return BackendNone, nil
	}
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return BackendNone, apperr.Configuration("invalid vision endpoint %q", endpoint)
	}
	host := strings.ToLower(u.Hostname())
	switch {
	case host == "openrouter.ai" || strings.HasSuffix(host, ".openrouter.ai"):
		return BackendChatCompletions, nil
	case host == "dashscope.aliyuncs.com" || strings.HasSuffix(host, ".dashscope.aliyuncs.com") || strings.HasPrefix(host, "dashscope"):
		return BackendDashScope, nil
	default:
		return BackendMultipart, nil
	}
}

// DefaultModel returns the model used when none is configured.
func (b Backend) DefaultModel() string {
	switch b {
	case BackendChatCompletions:
		return "qwen/qwen2.5-vl-72b-instruct"
	case BackendDashScope:
		return "qwen-vl-plus"
	default:
		return ""
	}
}
