package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorCodes(t *testing.T) {
	codes := []ErrorCode{
		CodeUnknown,
		CodeValidation,
		CodeConfiguration,
		CodeCanceled,
		CodeUnsupportedFormat,
		CodeMalformedInput,
		CodeRender,
		CodeTemplate,
	}

	seen := make(map[ErrorCode]bool)
	for _, code := range codes {
		if string(code) == "" {
			t.Errorf("Error code %v should not be empty", code)
		}
		if seen[code] {
			t.Errorf("Error code %s is duplicated", code)
		}
		seen[code] = true
	}
}

func TestSourceError(t *testing.T) {
	t.Run("unsupported format", func(t *testing.T) {
		err := ErrUnsupportedFormat("scan.txt")
		if err.Code != CodeUnsupportedFormat {
			t.Errorf("Expected code %s, got %s", CodeUnsupportedFormat, err.Code)
		}
		if err.Source != "scan.txt" {
			t.Errorf("Expected source 'scan.txt', got '%s'", err.Source)
		}
		expected := "[UNSUPPORTED_FORMAT] Unsupported file format, please use a .gnmap or .xml file (source: scan.txt)"
		if err.Error() != expected {
			t.Errorf("Expected %q, got %q", expected, err.Error())
		}
	})

	t.Run("malformed input wraps cause", func(t *testing.T) {
		cause := fmt.Errorf("XML syntax error on line 3")
		err := ErrMalformedInput("scan.xml", cause)
		if !errors.Is(err, cause) {
			t.Error("Expected error to unwrap to its cause")
		}
		expected := "[MALFORMED_INPUT] Failed to parse source (source: scan.xml): XML syntax error on line 3"
		if err.Error() != expected {
			t.Errorf("Expected %q, got %q", expected, err.Error())
		}
	})
}

func TestRenderError(t *testing.T) {
	err := NewRenderError("bogus", "10.0.0.1", "22")
	if err.Code != CodeRender {
		t.Errorf("Expected code %s, got %s", CodeRender, err.Code)
	}
	expected := "[RENDER] formatting error for entry (ip: 10.0.0.1, port: 22): missing key 'bogus'"
	if err.Error() != expected {
		t.Errorf("Expected %q, got %q", expected, err.Error())
	}
}

func TestConfigError(t *testing.T) {
	t.Run("field error", func(t *testing.T) {
		err := ErrConfigInvalid("parsing.workers", -1)
		if err.Field != "parsing.workers" {
			t.Errorf("Expected field 'parsing.workers', got '%s'", err.Field)
		}
		if err.Value != -1 {
			t.Errorf("Expected value -1, got %v", err.Value)
		}
		expected := "[VALIDATION] Invalid configuration value (field: parsing.workers)"
		if err.Error() != expected {
			t.Errorf("Expected %q, got %q", expected, err.Error())
		}
	})

	t.Run("template syntax", func(t *testing.T) {
		cause := fmt.Errorf("unmatched '{'")
		err := ErrTemplateSyntax("{ip", cause)
		if err.Code != CodeTemplate {
			t.Errorf("Expected code %s, got %s", CodeTemplate, err.Code)
		}
		if !errors.Is(err, cause) {
			t.Error("Expected error to unwrap to its cause")
		}
	})
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorCode
	}{
		{"source error", ErrUnsupportedFormat("a.txt"), CodeUnsupportedFormat},
		{"malformed", ErrMalformedInput("a.xml", nil), CodeMalformedInput},
		{"render error", NewRenderError("x", "h", "1"), CodeRender},
		{"config error", ErrConfigInvalid("f", nil), CodeValidation},
		{"plain error", fmt.Errorf("plain"), CodeUnknown},
		{"nil error", nil, CodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code := GetCode(tt.err); code != tt.expected {
				t.Errorf("Expected code %s, got %s", tt.expected, code)
			}
		})
	}
}

func TestIsCode(t *testing.T) {
	if !IsCode(ErrUnsupportedFormat("a.txt"), CodeUnsupportedFormat) {
		t.Error("Expected IsCode to match")
	}
	if IsCode(ErrUnsupportedFormat("a.txt"), CodeMalformedInput) {
		t.Error("Expected IsCode not to match a different code")
	}
	if IsCode(nil, CodeUnknown) {
		t.Error("Expected IsCode to be false for nil")
	}
}

func TestIsFatal(t *testing.T) {
	if IsFatal(ErrUnsupportedFormat("a.txt")) {
		t.Error("Source errors must not be fatal")
	}
	if IsFatal(NewRenderError("x", "h", "1")) {
		t.Error("Render errors must not be fatal")
	}
	if !IsFatal(ErrTemplateSyntax("{", nil)) {
		t.Error("Template syntax errors should be fatal")
	}
	if !IsFatal(ErrConfigInvalid("f", nil)) {
		t.Error("Validation errors should be fatal")
	}
}
