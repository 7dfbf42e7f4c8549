package apperr

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestUserMessage(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"validation", Validation("Prompt cannot be empty."), "Prompt cannot be empty."},
		{"wrapped validation", fmt.Errorf("select: %w", Validation("Please select an image file.")), "Please select an image file."},
		{"encoding", &EncodingError{Message: "read source", Err: cause}, "Could not read the selected image: read source: boom"},
		{"remote", &RemoteCallError{Message: "model returned no image: unsupported format"}, "The image model request failed: model returned no image: unsupported format"},
		{"remote key", &RemoteCallError{Kind: RemoteKeyRejected, Message: "call failed", Err: cause}, "The Gemini API key was rejected. Check GEMINI_API_KEY and run validate-key."},
		{"remote quota", &RemoteCallError{Kind: RemoteRateLimited, Message: "call failed", Err: cause}, "The image model is rate limited. Wait a minute and try again."},
		{"remote network", fmt.Errorf("remove: %w", &RemoteCallError{Kind: RemoteUnreachable, Message: "call failed", Err: cause}), "Could not reach the image model. Check your network connection and try again."},
		{"foreground", &CompositingError{Stage: ForegroundLoadFailed, Err: cause}, "Could not load the cutout image for download."},
		{"background", &CompositingError{Stage: BackgroundLoadFailed, Err: cause}, "Could not load the background image for download."},
		{"encode", &CompositingError{Stage: EncodeFailed, Err: cause}, "Could not create the final image."},
		{"other", cause, "Something went wrong: boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.want {
				t.Errorf("UserMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("disk gone")

	errs := []error{
		&EncodingError{Message: "read", Err: cause},
		&RemoteCallError{Message: "call", Err: cause},
		&CompositingError{Stage: BackgroundLoadFailed, Err: cause},
	}
	for _, err := range errs {
		if !errors.Is(err, cause) {
			t.Errorf("errors.Is(%T, cause) = false, want true", err)
		}
		if !strings.Contains(err.Error(), "disk gone") {
			t.Errorf("%T.Error() = %q, missing cause text", err, err.Error())
		}
	}
}

func TestIsStage(t *testing.T) {
	err := fmt.Errorf("composite: %w", &CompositingError{Stage: BackgroundLoadFailed})

	if !IsStage(err, BackgroundLoadFailed) {
		t.Error("IsStage(BackgroundLoadFailed) = false, want true")
	}
	if IsStage(err, ForegroundLoadFailed) {
		t.Error("IsStage(ForegroundLoadFailed) = true, want false")
	}
	if IsStage(errors.New("plain"), EncodeFailed) {
		t.Error("IsStage(plain error) = true, want false")
	}
}
