package binutil

import (
	"testing"

	"github.com/coffersTech/ulog/internal/diag"
)

func TestCursorScalars(t *testing.T) {
	buf := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10}
	c := NewCursor(buf, 0xdead)

	u8, err := c.U8()
	if err != nil || u8 != 0x01 {
		t.Fatalf("U8 = %v, %v", u8, err)
	}
	u16, err := c.U16()
	if err != nil || u16 != 0x0302 {
		t.Fatalf("U16 = %#x, %v", u16, err)
	}
	u32, err := c.U32()
	if err != nil || u32 != 0x07060504 {
		t.Fatalf("U32 = %#x, %v", u32, err)
	}
	u64, err := c.U64()
	if err != nil {
		t.Fatalf("U64 err: %v", err)
	}
	if u64 != 0x0f0e0d0c0b0a0908 {
		t.Fatalf("U64 = %#x", u64)
	}
}

func TestCursorTruncated(t *testing.T) {
	c := NewCursor([]byte{0x01, 0x02}, 0x1001)
	_, err := c.U32()
	var trunc *diag.Truncated
	if err == nil {
		t.Fatal("expected truncated error")
	}
	if !asTruncated(err, &trunc) {
		t.Fatalf("expected *diag.Truncated, got %T: %v", err, err)
	}
	if trunc.ChunkTag != 0x1001 {
		t.Fatalf("ChunkTag = %#x", trunc.ChunkTag)
	}
}

func asTruncated(err error, target **diag.Truncated) bool {
	t, ok := err.(*diag.Truncated)
	if !ok {
		return false
	}
	*target = t
	return true
}

func TestCStringScansToNul(t *testing.T) {
	buf := append([]byte("hello"), 0, 0xff, 0xff)
	c := NewCursor(buf, 0)
	s, err := c.CString(len(buf))
	if err != nil {
		t.Fatal(err)
	}
	if s != "hello" {
		t.Fatalf("CString = %q", s)
	}
	if c.Off != len(buf) {
		t.Fatalf("cursor should advance by the full max window, got Off=%d", c.Off)
	}
}

func TestSizedStringStripsTrailingNul(t *testing.T) {
	c := NewCursor([]byte("hi\x00"), 0)
	s, err := c.SizedString(3)
	if err != nil {
		t.Fatal(err)
	}
	if s != "hi" {
		t.Fatalf("SizedString = %q", s)
	}
}

func TestAlign(t *testing.T) {
	c := NewCursor(make([]byte, 16), 0)
	c.Off = 3
	if err := c.Align(8); err != nil {
		t.Fatal(err)
	}
	if c.Off != 8 {
		t.Fatalf("Off = %d, want 8", c.Off)
	}
	if err := c.Align(8); err != nil {
		t.Fatal(err)
	}
	if c.Off != 8 {
		t.Fatalf("Off = %d, want 8 (already aligned)", c.Off)
	}
}

func TestReadCStringAt(t *testing.T) {
	buf := append([]byte("/usr/lib/libfoo.dylib"), 0, 'x')
	s, err := ReadCStringAt(buf, 0, 1024)
	if err != nil {
		t.Fatal(err)
	}
	if s != "/usr/lib/libfoo.dylib" {
		t.Fatalf("got %q", s)
	}
}
