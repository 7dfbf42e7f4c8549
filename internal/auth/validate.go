package auth

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/fpang/bg-studio/internal/metrics"
)

// ValidationErrorType is the failure class of a Gemini call. The same classes
// are used for the startup key check and for image calls.
type ValidationErrorType int

const (
	// ErrTypeNoKey indicates no API key was found.
	ErrTypeNoKey ValidationErrorType = iota
	// ErrTypeInvalidKey indicates the API key is invalid or revoked.
	ErrTypeInvalidKey
	// ErrTypeNetworkError covers unreachable hosts, timeouts and 5xx replies.
	ErrTypeNetworkError
	// ErrTypeQuotaExceeded indicates the API quota or rate limit was hit.
	ErrTypeQuotaExceeded
	// ErrTypeUnknown is anything else.
	ErrTypeUnknown
)

// String returns the metric label for the type.
func (t ValidationErrorType) String() string {
	switch t {
	case ErrTypeNoKey:
		return "no_key"
	case ErrTypeInvalidKey:
		return "invalid"
	case ErrTypeNetworkError:
		return "network_error"
	case ErrTypeQuotaExceeded:
		return "quota"
	default:
		return "unknown"
	}
}

// ValidationError is a classified key check failure.
type ValidationError struct {
	Type    ValidationErrorType
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

var typeMessages = map[ValidationErrorType]string{
	ErrTypeInvalidKey:    "API key is invalid, expired, or lacks permissions",
	ErrTypeQuotaExceeded: "API quota exceeded or rate limited",
	ErrTypeNetworkError:  "Gemini API unreachable",
	ErrTypeUnknown:       "Gemini API call failed",
}

// errorPatterns maps lowercase fragments of transport error text to a class.
// Earlier rows win.
var errorPatterns = []struct {
	typ       ValidationErrorType
	fragments []string
}{
	{ErrTypeInvalidKey, []string{"api key not valid", "invalid api key", "api_key_invalid", "permission denied"}},
	{ErrTypeQuotaExceeded, []string{"quota", "resource exhausted", "resource_exhausted", "rate limit"}},
	{ErrTypeNetworkError, []string{"connection", "network", "timeout", "deadline exceeded", "dial", "no such host", "unreachable"}},
}

// Classify sorts a Gemini call error into a ValidationErrorType. A nil error
// is ErrTypeUnknown; callers check for nil first.
func Classify(err error) ValidationErrorType {
	if err == nil {
		return ErrTypeUnknown
	}

	if apiErr, ok := asAPIError(err); ok {
		return statusType(apiErr.Code)
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.As(err, &netErr) {
		return ErrTypeNetworkError
	}

	text := strings.ToLower(err.Error())
	for _, p := range errorPatterns {
		for _, f := range p.fragments {
			if strings.Contains(text, f) {
				return p.typ
			}
		}
	}
	return ErrTypeUnknown
}

// asAPIError finds a genai.APIError in the chain. The SDK returns it by value.
func asAPIError(err error) (genai.APIError, bool) {
	var val genai.APIError
	if errors.As(err, &val) {
		return val, true
	}
	var ptr *genai.APIError
	if errors.As(err, &ptr) && ptr != nil {
		return *ptr, true
	}
	return genai.APIError{}, false
}

// statusType maps an HTTP status from the Gemini API. A 400 on this API is
// almost always a malformed key.
func statusType(code int) ValidationErrorType {
	switch {
	case code == 400 || code == 401 || code == 403:
		return ErrTypeInvalidKey
	case code == 429:
		return ErrTypeQuotaExceeded
	case code >= 500 && code <= 599:
		return ErrTypeNetworkError
	default:
		return ErrTypeUnknown
	}
}

// classifyError wraps err in a ValidationError of its class.
func classifyError(err error) *ValidationError {
	if err == nil {
		return nil
	}
	typ := Classify(err)
	msg := typeMessages[typ]

	if apiErr, ok := asAPIError(err); ok && typ == ErrTypeUnknown && apiErr.Message != "" {
		msg = apiErr.Message
	}
	return &ValidationError{Type: typ, Message: msg, Err: err}
}

// ValidationModel is the cheap text model used for the key check.
const ValidationModel = "gemini-3-flash-preview"

// Generator is the part of *genai.Models used to check the key.
type Generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// ValidateAPIKey makes one minimal text call. It returns nil for a working
// key, or a *ValidationError naming the failure class.
func ValidateAPIKey(ctx context.Context, models Generator) error {
	log.Debug().Str("model", ValidationModel).Msg("Validating API key with Gemini API")

	start := time.Now()
	resp, err := models.GenerateContent(ctx, ValidationModel, genai.Text("hi"), nil)
	elapsed := time.Since(start)

	result := "success"
	var valErr *ValidationError
	switch {
	case err != nil:
		valErr = classifyError(err)
		result = valErr.Type.String()
	case resp == nil || len(resp.Candidates) == 0:
		result = "empty_response"
		valErr = &ValidationError{Type: ErrTypeUnknown, Message: "API returned empty response"}
	}

	metrics.New().
		Dimension("Result", result).
		Metric("ApiKeyValidationMs", float64(elapsed.Milliseconds()), metrics.UnitMilliseconds).
		Count("ApiKeyValidationResult").
		Flush()

	if valErr != nil {
		log.Error().Err(valErr.Err).Str("result", result).Dur("duration", elapsed).Msg(valErr.Message)
		return valErr
	}
	log.Info().Dur("duration", elapsed).Msg("API key validated successfully")
	return nil
}
