package chainhash

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestHashString(t *testing.T) {
	hash := Hash{}
	hash[HashSize-1] = 0x01
	want := "01" + string(bytes.Repeat([]byte("00"), HashSize-1))
	got := hash.String()
	if got != want {
		t.Errorf("String: got %s want %s", got, want)
	}
}

func TestHashIsZero(t *testing.T) {
	var hash Hash
	if !hash.IsZero() {
		t.Fatal("zero-valued Hash should be IsZero")
	}
	hash[0] = 1
	if hash.IsZero() {
		t.Fatal("non-zero Hash reported IsZero")
	}
}

func TestHashSetBytes(t *testing.T) {
	buf := bytes.Repeat([]byte{0xAB}, HashSize)
	var h Hash
	if err := h.SetBytes(buf); err != nil {
		t.Fatalf("SetBytes: %v", err)
	}
	if !bytes.Equal(h.CloneBytes(), buf) {
		t.Fatal("CloneBytes did not round-trip SetBytes")
	}

	if err := h.SetBytes(buf[:HashSize-1]); err == nil {
		t.Fatal("expected error setting hash from short slice")
	}
}

func TestHashDataDeterministic(t *testing.T) {
	a := HashData([]byte("hello"))
	b := HashData([]byte("hello"))
	if a != b {
		t.Fatal("HashData is not deterministic")
	}
	c := HashData([]byte("world"))
	if a == c {
		t.Fatal("HashData collided on different input")
	}
}

func TestNewHashFromStrRoundTrip(t *testing.T) {
	orig := HashData([]byte("round trip"))
	h, err := NewHashFromStr(orig.String())
	if err != nil {
		t.Fatalf("NewHashFromStr: %v", err)
	}
	if *h != orig {
		t.Fatalf("round trip mismatch: got %s want %s", h, orig)
	}
}

func TestHashJSONRoundTrip(t *testing.T) {
	orig := HashData([]byte("json round trip"))

	encoded, err := json.Marshal(orig)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded Hash
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded != orig {
		t.Fatalf("round trip mismatch: got %s want %s", decoded, orig)
	}
}

func TestDecodeTooLong(t *testing.T) {
	var h Hash
	tooLong := make([]byte, (HashSize+1)*2)
	for i := range tooLong {
		tooLong[i] = 'a'
	}
	err := Decode(&h, string(tooLong))
	if err == nil {
		t.Fatal("expected error decoding oversized string")
	}
}
