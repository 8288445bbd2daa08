package alias

import (
	"bytes"
	"errors"
	"regexp"
	"strings"
	"testing"
)

func TestGenerate_Order(t *testing.T) {
	got, err := Generate("jane@example.com", WithYear(2025))
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(got) != DefaultLimit {
		t.Fatalf("len = %d, want %d", len(got), DefaultLimit)
	}

	checks := map[int]string{
		0:  "jane.1@example.com",
		9:  "jane.10@example.com",
		10: "jane+1@example.com",
		24: "jane+15@example.com",
		25: "jane+shopping@example.com",
		32: "jane+support@example.com",
		33: "jane+2025@example.com",
		34: "jane+2026@example.com",
	}
	for i, want := range checks {
		if got[i] != want {
			t.Errorf("alias[%d] = %q, want %q", i, got[i], want)
		}
	}

	suffix := regexp.MustCompile(`^jane\+(temp|test|backup|alt|secondary|primary|main|extra|special|custom)\d{1,2}@example\.com$`)
	for i := 35; i < len(got); i++ {
		if !suffix.MatchString(got[i]) {
			t.Errorf("alias[%d] = %q, want suffix variant", i, got[i])
		}
	}
	if !strings.HasPrefix(got[35], "jane+temp") || !strings.HasPrefix(got[44], "jane+custom") {
		t.Errorf("suffix order = %q ... %q", got[35], got[44])
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	a, _ := Generate("jane@example.com", WithYear(2025))
	b, _ := Generate("jane@example.com", WithYear(2025))
	if strings.Join(a, ",") != strings.Join(b, ",") {
		t.Error("Generate() is not deterministic for the same address")
	}

	c, _ := Generate("jane@example.com", WithYear(2025), WithSeed(7))
	d, _ := Generate("jane@example.com", WithYear(2025), WithSeed(7))
	if strings.Join(c, ",") != strings.Join(d, ",") {
		t.Error("Generate() is not deterministic for the same seed")
	}
}

func TestGenerate_Limit(t *testing.T) {
	got, err := Generate("jane@example.com", WithLimit(5))
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(got) != 5 {
		t.Errorf("len = %d, want 5", len(got))
	}

	all, _ := Generate("jane@example.com", WithLimit(0))
	if len(all) != 55 {
		t.Errorf("uncapped len = %d, want 55", len(all))
	}
}

func TestGenerate_Invalid(t *testing.T) {
	for _, in := range []string{"", "jane", "@example.com", "jane@", "a@b@c"} {
		if _, err := Generate(in); !errors.Is(err, ErrInvalidAddress) {
			t.Errorf("Generate(%q) error = %v, want ErrInvalidAddress", in, err)
		}
	}
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, []string{"a@x", "b@x"}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if buf.String() != "a@x\nb@x" {
		t.Errorf("Write() = %q, want %q", buf.String(), "a@x\nb@x")
	}
}
