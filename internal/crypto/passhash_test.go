package crypto

import (
	"bytes"
	"testing"
)

func TestRandBytes(t *testing.T) {
	t.Parallel()

	a, err := RandBytes(SaltLen)
	if err != nil {
		t.Fatalf("RandBytes: %v", err)
	}
	b, err := RandBytes(SaltLen)
	if err != nil {
		t.Fatalf("RandBytes(2): %v", err)
	}
	if len(a) != SaltLen || bytes.Equal(a, b) {
		t.Fatalf("salts must be %d random bytes, got %x and %x", SaltLen, a, b)
	}
}

func TestParams_Hash(t *testing.T) {
	t.Parallel()

	cheap := Params{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 16}
	pw, salt := []byte("p@ssw0rd"), []byte("NaCl-16-bytes?!!")

	h := cheap.Hash(pw, salt)
	if len(h) != 16 {
		t.Fatalf("key len = %d, want 16", len(h))
	}
	if !bytes.Equal(h, cheap.Hash(pw, salt)) {
		t.Fatalf("hash not deterministic for same input")
	}
	if bytes.Equal(h, cheap.Hash(pw, []byte("another-salt----"))) {
		t.Fatalf("hash should differ when salt differs")
	}
	if bytes.Equal(h[:16], HashPassword(pw, salt)[:16]) {
		t.Fatalf("cost parameters must change the key")
	}
}

func TestNewPasswordAndVerify(t *testing.T) {
	t.Parallel()

	h1, s1, err := NewPassword("secret1")
	if err != nil {
		t.Fatalf("NewPassword: %v", err)
	}
	h2, s2, err := NewPassword("secret1")
	if err != nil {
		t.Fatalf("NewPassword(2): %v", err)
	}
	if len(s1) != SaltLen || bytes.Equal(s1, s2) || bytes.Equal(h1, h2) {
		t.Fatalf("same password must hash differently under fresh salts")
	}

	cases := []struct {
		name     string
		password string
		salt     []byte
		hash     []byte
		want     bool
	}{
		{"correct", "secret1", s1, h1, true},
		{"wrong password", "secret2", s1, h1, false},
		{"wrong salt", "secret1", s2, h1, false},
		{"empty password", "", s1, h1, false},
		{"empty expected hash", "secret1", s1, nil, false},
	}
	for _, tc := range cases {
		if got := VerifyPassword([]byte(tc.password), tc.salt, tc.hash); got != tc.want {
			t.Fatalf("%s: VerifyPassword=%v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestBurnVerify(t *testing.T) {
	t.Parallel()
	if BurnVerify([]byte("anything")) {
		t.Fatalf("BurnVerify must never succeed")
	}
}
