package tool

import (
	"testing"

	"github.com/brandlens/brandlens/pkg/errors"
)

func TestArgsString(t *testing.T) {
	args := Args{"username": "  nasa  "}
	got, err := args.String("username")
	if err != nil {
		t.Fatalf("String: %v", err)
	}
	if got != "nasa" {
		t.Fatalf("got %q, want trimmed nasa", got)
	}

	for name, a := range map[string]Args{
		"missing":    {},
		"empty":      {"username": "   "},
		"not_string": {"username": 7},
	} {
		if _, err := a.String("username"); !errors.IsInvalidInput(err) {
			t.Fatalf("%s: err = %v, want invalid input", name, err)
		}
	}
}

func TestArgsOptionalString(t *testing.T) {
	args := Args{}
	got, err := args.OptionalString("campaign", "default")
	if err != nil || got != "default" {
		t.Fatalf("got %q, %v", got, err)
	}
}

func TestArgsIntRoundsLLMFloats(t *testing.T) {
	// Models routinely send 10.0 for integer parameters.
	args := Args{"limit": 10.0}
	got, err := args.Int("limit", 1, 50, 12)
	if err != nil || got != 10 {
		t.Fatalf("got %d, %v", got, err)
	}

	args = Args{"limit": 10.7}
	if _, err := args.Int("limit", 1, 50, 12); !errors.IsInvalidInput(err) {
		t.Fatalf("fractional float accepted: %v", err)
	}
}

func TestArgsIntRange(t *testing.T) {
	args := Args{"limit": 99.0}
	if _, err := args.Int("limit", 1, 50, 12); !errors.IsInvalidInput(err) {
		t.Fatalf("out-of-range accepted: %v", err)
	}
	if got, err := (Args{}).Int("limit", 1, 50, 12); err != nil || got != 12 {
		t.Fatalf("default: got %d, %v", got, err)
	}
}

func TestArgsStringSlice(t *testing.T) {
	args := Args{"hashtags": []any{"a", "b"}}
	got, err := args.StringSlice("hashtags")
	if err != nil || len(got) != 2 || got[1] != "b" {
		t.Fatalf("got %v, %v", got, err)
	}

	args = Args{"hashtags": []any{"a", 3}}
	if _, err := args.StringSlice("hashtags"); !errors.IsInvalidInput(err) {
		t.Fatalf("mixed slice accepted: %v", err)
	}
}
