package error

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	err := New("test error message")

	if err.Error() != "test error message" {
		t.Errorf("Error() = %q, want %q", err.Error(), "test error message")
	}
	if err.Code() != CodeUnknown {
		t.Errorf("Code() = %v, want %v", err.Code(), CodeUnknown)
	}
	if err.Timestamp().IsZero() {
		t.Error("Timestamp() should not be zero")
	}
}

func TestWrap(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		message string
		wantNil bool
		wantMsg string
	}{
		{"wrap nil error", nil, "context", true, ""},
		{"wrap standard error", errors.New("disk full"), "write failed", false, "write failed: disk full"},
		{"wrap structured error", New("inner").WithCode(CodeNotFound), "outer", false, "outer: inner"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Wrap(tt.err, tt.message)
			if tt.wantNil {
				if got != nil {
					t.Fatalf("Wrap() = %v, want nil", got)
				}
				return
			}
			if got.Error() != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got.Error(), tt.wantMsg)
			}
			if !errors.Is(got, tt.err) {
				t.Error("wrapped error should match its cause with errors.Is")
			}
		})
	}
}

func TestWrap_InheritsCodeAndDetails(t *testing.T) {
	inner := New("locked").WithCode(CodeFileLocked).WithDetail("path", "/tmp/a.mp3")
	outer := Wrap(inner, "delete failed")

	if outer.Code() != CodeFileLocked {
		t.Errorf("Code() = %v, want %v", outer.Code(), CodeFileLocked)
	}
	if outer.Details()["path"] != "/tmp/a.mp3" {
		t.Errorf("Details()[path] = %v", outer.Details()["path"])
	}
}

func TestHasCode(t *testing.T) {
	base := New("no audio").WithCode(CodeNoAudio)
	chain := fmt.Errorf("chunk 2: %w", Wrap(base, "synthesize").WithCode(CodeSynthesisFailed))

	if !HasCode(chain, CodeSynthesisFailed) {
		t.Error("HasCode() should find outer code through fmt wrapping")
	}
	if !HasCode(chain, CodeNoAudio) {
		t.Error("HasCode() should find inner code")
	}
	if HasCode(chain, CodeAudioFormat) {
		t.Error("HasCode() found unexpected code")
	}
	if HasCode(errors.New("plain"), CodeUnknown) {
		t.Error("HasCode() should be false for plain errors")
	}
}

func TestGetCode(t *testing.T) {
	if got := GetCode(errors.New("plain")); got != CodeUnknown {
		t.Errorf("GetCode(plain) = %v, want UNKNOWN", got)
	}
	if got := GetCode(New("x").WithCode(CodeConfigError)); got != CodeConfigError {
		t.Errorf("GetCode() = %v, want CONFIG_ERROR", got)
	}
}

func TestError_String(t *testing.T) {
	err := New("boom").WithCode(CodeInternal).WithOperation("save").WithDetail("b", 2).WithDetail("a", 1)
	s := err.String()

	for _, want := range []string{"[INTERNAL]", "boom", "op=save", "a=1 b=2"} {
		if !strings.Contains(s, want) {
			t.Errorf("String() = %q, missing %q", s, want)
		}
	}
}

func TestCode_IsUserError(t *testing.T) {
	tests := []struct {
		code Code
		want bool
	}{
		{CodeInvalidInput, true},
		{CodeNoAudio, true},
		{CodeAudioInit, false},
		{CodeInternal, false},
	}
	for _, tt := range tests {
		t.Run(tt.code.String(), func(t *testing.T) {
			if got := tt.code.IsUserError(); got != tt.want {
				t.Errorf("IsUserError() = %v, want %v", got, tt.want)
			}
		})
	}
}
