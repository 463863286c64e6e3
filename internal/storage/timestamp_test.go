package storage

import (
	"testing"
	"time"
)

func TestNullTimestampScan(t *testing.T) {
	t.Parallel()

	want := time.Date(2024, 3, 5, 10, 30, 0, 0, time.UTC)
	tests := []struct {
		name      string
		src       any
		wantValid bool
	}{
		{name: "nil", src: nil},
		{name: "empty string", src: ""},
		{name: "time", src: want.In(time.FixedZone("x", 3600)), wantValid: true},
		{name: "layout text", src: "2024-03-05 10:30:00", wantValid: true},
		{name: "rfc3339 text", src: "2024-03-05T10:30:00Z", wantValid: true},
		{name: "bytes", src: []byte("2024-03-05 10:30:00"), wantValid: true},
		{name: "unix seconds", src: want.Unix(), wantValid: true},
	}
	for _, tt := range tests {
		var n NullTimestamp
		if err := n.Scan(tt.src); err != nil {
			t.Fatalf("%s: Scan() error = %v", tt.name, err)
		}
		if n.Valid != tt.wantValid {
			t.Fatalf("%s: Valid = %v, want %v", tt.name, n.Valid, tt.wantValid)
		}
		if n.Valid && !n.Time.Equal(want) {
			t.Fatalf("%s: Time = %v, want %v", tt.name, n.Time, want)
		}
	}

	var n NullTimestamp
	if err := n.Scan("not a time"); err == nil {
		t.Fatalf("Scan(garbage) error = nil")
	}
	if err := n.Scan(3.5); err == nil {
		t.Fatalf("Scan(float) error = nil")
	}
}

func TestNullTimestampValueAndString(t *testing.T) {
	t.Parallel()

	n := NullTimestamp{Time: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), Valid: true}
	v, err := n.Value()
	if err != nil || v != "2024-01-02 03:04:05" {
		t.Fatalf("Value() = (%v, %v)", v, err)
	}
	if n.String() != "2024-01-02 03:04:05" {
		t.Fatalf("String() = %q", n.String())
	}
	if v, _ := (NullTimestamp{}).Value(); v != nil {
		t.Fatalf("Value() of NULL = %v, want nil", v)
	}
}
