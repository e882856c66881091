package gemini

import "strings"

// AuthMode selects how the API key travels with the request.
type AuthMode string

const (
	// AuthBearer sends the key in an Authorization header only.
	AuthBearer AuthMode = "bearer"
	// AuthQueryKey appends the key as a URL query parameter only.
	AuthQueryKey AuthMode = "key-param"
)

// Keys issued by OpenAI-compatible relay proxies carry this prefix and
// expect bearer authentication; native keys go in the query string.
const bearerKeyPrefix = "sk-"

// ModeForKey picks the auth mode from the key's shape. Pure function: the
// same key always selects the same single mode, never both.
func ModeForKey(apiKey string) AuthMode {
	if strings.HasPrefix(apiKey, bearerKeyPrefix) {
		return AuthBearer
	}
	return AuthQueryKey
}

// NormalizeBaseURL strips a trailing slash and rewrites the unstable
// /v1beta path segment to /v1, which relay proxies handle more reliably.
func NormalizeBaseURL(raw string) string {
	base := strings.TrimSuffix(strings.TrimSpace(raw), "/")
	if strings.HasSuffix(base, "/v1beta") {
		base = strings.TrimSuffix(base, "/v1beta") + "/v1"
	}
	return base
}

// EndpointURL builds the final generateContent URL for a model. The key is
// never part of this URL; callers append it only in query-param mode.
func EndpointURL(baseURL, model string) string {
	return NormalizeBaseURL(baseURL) + "/models/" + model + ":generateContent"
}

// request is the provider's expected JSON document: one text part plus one
// inline binary part.
type request struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

// response covers every provider failure shape seen in the wild: a top-level
// error object, a bare message, or a normal candidates payload.
type response struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error   *responseError `json:"error"`
	Message string         `json:"message"`
}

type responseError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// text returns the first candidate's text, or empty when the shape differs.
func (r *response) text() string {
	if len(r.Candidates) == 0 || len(r.Candidates[0].Content.Parts) == 0 {
		return ""
	}
	return r.Candidates[0].Content.Parts[0].Text
}
