package normalize

import "testing"

func TestEmail(t *testing.T) {
	in := "  John.DOE@Example.COM  "
	want := "john.doe@example.com"
	got := Email(in)
	if got != want {
		t.Fatalf("Normalize.Email(%q) = %q, want %q", in, got, want)
	}
}

func TestPair(t *testing.T) {
	ab := Pair("b-user", "a-user")
	ba := Pair("a-user", "b-user")
	if ab != ba {
		t.Fatalf("Pair is order dependent: %q != %q", ab, ba)
	}
	if ab != "a-user:b-user" {
		t.Fatalf("Pair = %q, want %q", ab, "a-user:b-user")
	}
}
