package tts

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"voxnest/internal/domain/speech"

	"google.golang.org/genai"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		credential bool
	}{
		{"gemini message", errors.New("Error 400, Message: API key not valid. Please pass a valid API key., Status: INVALID_ARGUMENT"), true},
		{"reason code", fmt.Errorf("call: %w", errors.New("reason API_KEY_INVALID")), true},
		{"grpc unauthenticated", status.Error(codes.Unauthenticated, "no"), true},
		{"grpc permission", status.Error(codes.PermissionDenied, "no"), true},
		{"grpc unavailable", status.Error(codes.Unavailable, "down"), false},
		{"gemini unauthorized", genai.APIError{Code: 401, Status: "UNAUTHENTICATED"}, true},
		{"gemini forbidden", fmt.Errorf("chunk 1: %w", genai.APIError{Code: 403, Status: "PERMISSION_DENIED"}), true},
		{"gemini quota", genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED"}, false},
		{"plain", errors.New("timeout"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ce *speech.CredentialError
			if got := errors.As(classifyError(tt.err), &ce); got != tt.credential {
				t.Errorf("expected credential=%v, got %v", tt.credential, got)
			}
		})
	}
	if classifyError(nil) != nil {
		t.Error("expected nil for nil error")
	}
}

func TestNewSynthesizer_Mock(t *testing.T) {
	s, err := NewSynthesizer(context.Background(), Config{Type: "mock"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := s.(*MockEngine); !ok {
		t.Errorf("expected *MockEngine, got %T", s)
	}
}

func TestNewSynthesizer_Unknown(t *testing.T) {
	if _, err := NewSynthesizer(context.Background(), Config{Type: "sapi"}); err == nil {
		t.Error("expected error for unsupported engine")
	}
}

func TestNewSynthesizer_GeminiNeedsKey(t *testing.T) {
	_, err := NewSynthesizer(context.Background(), Config{Type: "gemini"})
	var ve *speech.ValidationError
	if !errors.As(err, &ve) {
		t.Errorf("expected ValidationError, got %v", err)
	}
}

func TestNewOpener_BindsKey(t *testing.T) {
	open := NewOpener(Config{Type: "mock"})
	s, err := open(context.Background(), "key")
	if err != nil || s == nil {
		t.Fatalf("expected synthesizer, got %v %v", s, err)
	}
}

func TestRequiresKey(t *testing.T) {
	if RequiresKey("mock") || RequiresKey("espeak") {
		t.Error("offline engines should not need a key")
	}
	if !RequiresKey("gemini") || !RequiresKey("cloud") {
		t.Error("remote engines should need a key")
	}
}
