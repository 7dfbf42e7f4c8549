// Package apperr defines the error taxonomy shared by the encoder, the
// compositor, the remote image client and the session, plus the conversion
// of any of them into the single message shown to the user.
package apperr

import (
	"errors"
	"fmt"
)

// EncodingError reports an unreadable source or a malformed data-URL envelope.
type EncodingError struct {
	Message string
	Err     error
}

func (e *EncodingError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

// RemoteFailure classifies a RemoteCallError.
type RemoteFailure int

const (
	// RemoteFailed is an unclassified API or model failure.
	RemoteFailed RemoteFailure = iota
	// RemoteKeyRejected means the API key was refused.
	RemoteKeyRejected
	// RemoteRateLimited means the quota or rate limit was hit.
	RemoteRateLimited
	// RemoteUnreachable covers timeouts, network errors and server errors.
	RemoteUnreachable
)

// RemoteCallError reports a network, API or model failure of a remote image call.
// Message carries the model's own text verbatim when the model declined.
type RemoteCallError struct {
	Kind    RemoteFailure
	Message string
	Err     error
}

func (e *RemoteCallError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *RemoteCallError) Unwrap() error {
	return e.Err
}

// CompositingStage names the compositor step that failed.
type CompositingStage int

const (
	// ForegroundLoadFailed means the cutout could not be decoded.
	ForegroundLoadFailed CompositingStage = iota
	// BackgroundLoadFailed means the background image could not be decoded.
	BackgroundLoadFailed
	// EncodeFailed means the finished canvas could not be serialized.
	EncodeFailed
)

func (s CompositingStage) String() string {
	switch s {
	case ForegroundLoadFailed:
		return "foreground load failed"
	case BackgroundLoadFailed:
		return "background load failed"
	case EncodeFailed:
		return "encode failed"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// CompositingError aborts a composite. No partial output accompanies it.
type CompositingError struct {
	Stage CompositingStage
	Err   error
}

func (e *CompositingError) Error() string {
	if e.Err != nil {
		return "compositing: " + e.Stage.String() + ": " + e.Err.Error()
	}
	return "compositing: " + e.Stage.String()
}

func (e *CompositingError) Unwrap() error {
	return e.Err
}

// ValidationError rejects user input before any work is attempted.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Validation is shorthand for &ValidationError{Message: msg}.
func Validation(msg string) error {
	return &ValidationError{Message: msg}
}

// IsStage reports whether err is a CompositingError for the given stage.
func IsStage(err error, stage CompositingStage) bool {
	var ce *CompositingError
	return errors.As(err, &ce) && ce.Stage == stage
}

// UserMessage converts err into one human-readable sentence for the user.
// Validation messages are shown as-is; other kinds get a short lead-in.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var (
		validationErr *ValidationError
		encodingErr   *EncodingError
		remoteErr     *RemoteCallError
		compositeErr  *CompositingError
	)

	switch {
	case errors.As(err, &validationErr):
		return validationErr.Message
	case errors.As(err, &encodingErr):
		return "Could not read the selected image: " + encodingErr.Error()
	case errors.As(err, &remoteErr):
		switch remoteErr.Kind {
		case RemoteKeyRejected:
			return "The Gemini API key was rejected. Check GEMINI_API_KEY and run validate-key."
		case RemoteRateLimited:
			return "The image model is rate limited. Wait a minute and try again."
		case RemoteUnreachable:
			return "Could not reach the image model. Check your network connection and try again."
		default:
			return "The image model request failed: " + remoteErr.Error()
		}
	case errors.As(err, &compositeErr):
		switch compositeErr.Stage {
		case ForegroundLoadFailed:
			return "Could not load the cutout image for download."
		case BackgroundLoadFailed:
			return "Could not load the background image for download."
		default:
			return "Could not create the final image."
		}
	default:
		return "Something went wrong: " + err.Error()
	}
}
