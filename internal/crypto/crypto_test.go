package crypto

import (
	"strings"
	"testing"
)

func TestAEADRoundTrip(t *testing.T) {
	codec, err := NewAEAD("test-master-key")
	if err != nil {
		t.Fatalf("NewAEAD: %v", err)
	}

	plain := "my dog is called Biscuit"
	token, err := codec.Encrypt(plain)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if !strings.HasPrefix(token, "enc:v1:") {
		t.Errorf("token missing prefix: %q", token)
	}
	if strings.Contains(token, plain) {
		t.Errorf("token contains plaintext: %q", token)
	}

	res := codec.Decrypt(token)
	if res.State != Ciphertext {
		t.Errorf("State = %v, want Ciphertext", res.State)
	}
	if res.Text != plain {
		t.Errorf("Text = %q, want %q", res.Text, plain)
	}
}

func TestAEADLegacyPlaintext(t *testing.T) {
	codec, err := NewAEAD("test-master-key")
	if err != nil {
		t.Fatalf("NewAEAD: %v", err)
	}

	// Values written before encryption was enabled come back unchanged.
	res := codec.Decrypt("plain old value")
	if res.State != Plaintext {
		t.Errorf("State = %v, want Plaintext", res.State)
	}
	if res.Text != "plain old value" {
		t.Errorf("Text = %q, want original input", res.Text)
	}
}

func TestAEADWrongKey(t *testing.T) {
	a, _ := NewAEAD("key-one")
	b, _ := NewAEAD("key-two")

	token, err := a.Encrypt("secret")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	res := b.Decrypt(token)
	if res.State != Failed {
		t.Errorf("State = %v, want Failed", res.State)
	}
	if res.Text != token {
		t.Errorf("Text = %q, want original token preserved", res.Text)
	}
}

func TestAEADCorruptToken(t *testing.T) {
	codec, _ := NewAEAD("test-master-key")

	for _, token := range []string{
		"enc:v1:",
		"enc:v1:!!!not-base64!!!",
		"enc:v1:AAAA",
	} {
		res := codec.Decrypt(token)
		if res.State != Failed {
			t.Errorf("Decrypt(%q).State = %v, want Failed", token, res.State)
		}
		if res.Text != token {
			t.Errorf("Decrypt(%q).Text = %q, want token preserved", token, res.Text)
		}
	}
}

func TestAEADEmptyMasterKey(t *testing.T) {
	if _, err := NewAEAD("  "); err == nil {
		t.Error("expected error for blank master key")
	}
}

func TestAEADNonceUniqueness(t *testing.T) {
	codec, _ := NewAEAD("test-master-key")
	a, _ := codec.Encrypt("same input")
	b, _ := codec.Encrypt("same input")
	if a == b {
		t.Error("two encryptions of the same input produced identical tokens")
	}
}

func TestPassthrough(t *testing.T) {
	var codec Codec = Passthrough{}

	token, err := codec.Encrypt("hello")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if token != "hello" {
		t.Errorf("Encrypt = %q, want input unchanged", token)
	}

	res := codec.Decrypt("hello")
	if res.State != Plaintext || res.Text != "hello" {
		t.Errorf("Decrypt = %+v, want plaintext passthrough", res)
	}
}
