package llm

// Provider parameter capability table. Each provider family maps canonical
// parameter names to the name its API expects; an absent entry means the
// provider does not accept the parameter and it must be dropped, not passed
// through. The table is pure data, kept outside the adapters so a new
// provider quirk is a table edit rather than a code change.

// Canonical parameter names.
const (
	ParamMaxTokens   = "max_tokens"
	ParamTemperature = "temperature"
	ParamTopP        = "top_p"
	ParamTopK        = "top_k"
	ParamStop        = "stop_sequences"
)

var providerParams = map[string]map[string]string{
	"openai": {
		ParamMaxTokens:   "max_completion_tokens",
		ParamTemperature: "temperature",
		ParamTopP:        "top_p",
		ParamStop:        "stop",
	},
	"anthropic": {
		ParamMaxTokens:   "max_tokens",
		ParamTemperature: "temperature",
		ParamTopP:        "top_p",
		ParamTopK:        "top_k",
		ParamStop:        "stop_sequences",
	},
	"gemini": {
		ParamMaxTokens:   "maxOutputTokens",
		ParamTemperature: "temperature",
		ParamTopP:        "topP",
		ParamTopK:        "topK",
		ParamStop:        "stopSequences",
	},
}

// SupportsParam reports whether the provider accepts the canonical parameter.
func SupportsParam(provider, param string) bool {
	table, ok := providerParams[provider]
	if !ok {
		return false
	}
	_, ok = table[param]
	return ok
}

// TranslateParam returns the provider-specific name for a canonical
// parameter. The second return is false when the provider does not accept it.
func TranslateParam(provider, param string) (string, bool) {
	table, ok := providerParams[provider]
	if !ok {
		return "", false
	}
	name, ok := table[param]
	return name, ok
}

// TranslateParams filters and renames a canonical parameter map for one
// provider, dropping anything the provider does not accept.
func TranslateParams(provider string, params map[string]interface{}) map[string]interface{} {
	table, ok := providerParams[provider]
	if !ok {
		return map[string]interface{}{}
	}
	out := make(map[string]interface{}, len(params))
	for key, value := range params {
		if name, ok := table[key]; ok {
			out[name] = value
		}
	}
	return out
}
