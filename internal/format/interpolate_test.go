package format

import (
	"strings"
	"testing"

	"github.com/coffersTech/ulog/internal/diag"
)

func TestInterpolate_ScalarConversion(t *testing.T) {
	got, err := Interpolate("hello %u", []Argument{NewScalar(7, 4, false)})
	if err != nil {
		t.Fatal(err)
	}
	if got != "hello 7" {
		t.Fatalf("got %q", got)
	}
}

func TestInterpolate_PrivateMod(t *testing.T) {
	got, err := Interpolate("value=%{private}u", []Argument{NewScalar(7, 4, false)})
	if err != nil {
		t.Fatal(err)
	}
	if got != "value=<private>" {
		t.Fatalf("got %q", got)
	}
}

func TestInterpolate_DefaultPrivacyWithoutPublicMod(t *testing.T) {
	got, err := Interpolate("v=%u", []Argument{NewPrivateScalar(7, 4, false)})
	if err != nil {
		t.Fatal(err)
	}
	if got != "v="+privateRedaction {
		t.Fatalf("got %q", got)
	}
}

func TestInterpolate_PublicModRevealsPrivateArg(t *testing.T) {
	got, err := Interpolate("v=%{public}u", []Argument{NewPrivateScalar(7, 4, false)})
	if err != nil {
		t.Fatal(err)
	}
	if got != "v=7" {
		t.Fatalf("got %q", got)
	}
}

func TestInterpolate_UuidObjectDecoder(t *testing.T) {
	raw := []byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88, 0x99, 0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF}
	got, err := Interpolate("u=%{public,uuid_t}.16P", []Argument{NewObject(raw, false)})
	if err != nil {
		t.Fatal(err)
	}
	if got != "u=00112233-4455-6677-8899-AABBCCDDEEFF" {
		t.Fatalf("got %q", got)
	}
}

func TestInterpolate_StringArgument(t *testing.T) {
	got, err := Interpolate("big=%s", []Argument{NewString("payload", false)})
	if err != nil {
		t.Fatal(err)
	}
	if got != "big=payload" {
		t.Fatalf("got %q", got)
	}
}

func TestInterpolate_ArgumentShortfall(t *testing.T) {
	got, err := Interpolate("%d and %d", []Argument{NewScalar(1, 4, true)})
	var shortfall *diag.ArgumentShortfall
	if err == nil {
		t.Fatal("expected ArgumentShortfall")
	}
	if as, ok := err.(*diag.ArgumentShortfall); !ok {
		t.Fatalf("err = %T, want *diag.ArgumentShortfall", err)
	} else {
		shortfall = as
	}
	if shortfall.Want != 2 || shortfall.Got != 1 {
		t.Fatalf("shortfall = %+v", shortfall)
	}
	if !strings.Contains(got, "<missing arg>") {
		t.Fatalf("got %q", got)
	}
}

func TestInterpolate_SensitiveAlwaysRedactedEvenWithPublic(t *testing.T) {
	got, err := Interpolate("%{public}x", []Argument{NewSensitive([]byte{0xFF})})
	if err != nil {
		t.Fatal(err)
	}
	if got != privateRedaction {
		t.Fatalf("got %q", got)
	}
}

func TestInterpolate_UnknownObjectDecoderRendersDecodeError(t *testing.T) {
	got, err := Interpolate("%{public,no_such_type}.4P", []Argument{NewObject([]byte{1, 2, 3, 4}, false)})
	if err != nil {
		t.Fatal(err)
	}
	if got != "<decode error>" {
		t.Fatalf("got %q", got)
	}
}

func TestInterpolate_LiteralPercent(t *testing.T) {
	got, err := Interpolate("100%% done", nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != "100% done" {
		t.Fatalf("got %q", got)
	}
}

func TestInterpolate_BoolDecoder(t *testing.T) {
	got, err := Interpolate("ok=%{public,BOOL}d", []Argument{NewScalar(1, 4, false)})
	if err != nil {
		t.Fatal(err)
	}
	if got != "ok=YES" {
		t.Fatalf("got %q", got)
	}
}
