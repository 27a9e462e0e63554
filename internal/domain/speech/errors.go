package speech

import (
	"errors"
	"fmt"
)

// ErrCancelled marks a generation the user stopped. It is never shown as a failure.
var ErrCancelled = errors.New("generation cancelled")

const (
	msgStopped          = "Generation stopped."
	msgAudioUnprocessed = "Could not process and play the audio."
	msgUnknown          = "An unknown error occurred. Please try again."
)

// IsCancelled reports whether err is (or wraps) ErrCancelled.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}

// ValidationError is raised before anything is sent to a remote engine.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) UserMessage() string { return e.Message }

// SafetyScope tells whether the whole prompt or a single chunk was blocked.
type SafetyScope int

const (
	ScopePrompt SafetyScope = iota
	ScopeChunk
)

// RemoteSafetyError means the engine refused the content.
type RemoteSafetyError struct {
	Scope  SafetyScope
	Reason string
}

func (e *RemoteSafetyError) Error() string {
	if e.Scope == ScopePrompt {
		return fmt.Sprintf("prompt blocked: %s", e.Reason)
	}
	return fmt.Sprintf("chunk finished with reason %s", e.Reason)
}

func (e *RemoteSafetyError) UserMessage() string {
	if e.Scope == ScopePrompt {
		return fmt.Sprintf("The text was blocked for safety reasons: %s. Please revise the content.", e.Reason)
	}
	return "Could not generate speech for part of the text. The content may violate the safety policy. Please check the text or try again."
}

// RemoteProtocolError means the engine answered without audio.
// FinishReason is empty when the response carried no explanation at all.
type RemoteProtocolError struct {
	FinishReason string
}

func (e *RemoteProtocolError) Error() string {
	if e.FinishReason == "" {
		return "no audio data in response"
	}
	return fmt.Sprintf("no audio data in response (finish reason %s)", e.FinishReason)
}

func (e *RemoteProtocolError) UserMessage() string {
	switch e.FinishReason {
	case "":
		return "No audio data was received from the API for part of the text."
	case "OTHER":
		return "Could not generate speech for part of the text. Unknown error from the API server; the text may be too long or contain unsupported content. Please check the text or try again."
	default:
		return fmt.Sprintf("Could not generate speech for part of the text. Reason: %s. Please check the text or try again.", e.FinishReason)
	}
}

// CredentialError means the engine rejected the API key.
type CredentialError struct {
	Err error
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("credential rejected: %v", e.Err)
}

func (e *CredentialError) Unwrap() error { return e.Err }

func (e *CredentialError) UserMessage() string {
	return "The API key is invalid or not activated. Please check it and save it again."
}

// DecodeError covers malformed base64 or PCM framing.
type DecodeError struct {
	Op  string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) UserMessage() string { return msgAudioUnprocessed }

type userMessager interface {
	UserMessage() string
}

// UserMessage maps any error to the single message shown to the user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if IsCancelled(err) {
		return msgStopped
	}
	var um userMessager
	if errors.As(err, &um) {
		return um.UserMessage()
	}
	return err.Error()
}

// UnknownMessage is shown when a failure carries no usable text.
func UnknownMessage() string { return msgUnknown }
