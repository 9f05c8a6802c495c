package pagaclient

import "testing"

func TestSignature_KnownVector(t *testing.T) {
	// sha512("ref-1" + "500" + "08012345678" + "secret-key")
	want := "2702e4c52f5d9e1323b0e30557d89246f08723353ccd58ea92e7058d31574e2d29f694d7a5d16a8297844fa94662c446c033db2b5c6f1b59179d9717c8d04a46"

	got := Signature([]string{"ref-1", "500", "08012345678"}, "secret-key")
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestSignature_Properties(t *testing.T) {
	fields := []string{"ref-9", "1000", "08099990000"}

	a := Signature(fields, "key-a")
	if len(a) != 128 {
		t.Fatalf("expected 128 hex chars, got %d", len(a))
	}
	if a != Signature(fields, "key-a") {
		t.Fatal("signature must be deterministic")
	}
	if a == Signature([]string{"1000", "ref-9", "08099990000"}, "key-a") {
		t.Fatal("field order must change the signature")
	}
	if a == Signature(fields, "key-b") {
		t.Fatal("hash key must change the signature")
	}
}

func TestSignature_EmptyFieldsStillParticipate(t *testing.T) {
	// Lookup operations sign trailing empty fields; joining them must be
	// equivalent to signing the reference number alone.
	if Signature([]string{"ref-1", "", ""}, "k") != Signature([]string{"ref-1"}, "k") {
		t.Fatal("empty fields must concatenate to nothing")
	}
}
