package cookie

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"slices"

	"golang.org/x/crypto/hkdf"
)

const minSecretLength = 32

// keys holds the material derived from one configured secret. Signing and
// encryption never share a key.
type keys struct {
	mac  []byte
	aead cipher.AEAD
}

// keyring is ordered newest first: the first entry writes, all entries read.
type keyring []keys

func newKeyring(secrets []string) (keyring, error) {
	secrets = slices.DeleteFunc(slices.Clone(secrets), func(s string) bool { return s == "" })
	if len(secrets) == 0 {
		return nil, ErrNoSecret
	}

	ring := make(keyring, 0, len(secrets))
	for i, s := range secrets {
		if len(s) < minSecretLength {
			return nil, fmt.Errorf("%w: secret %d has %d chars, need at least %d", ErrSecretTooShort, i, len(s), minSecretLength)
		}
		k, err := deriveKeys([]byte(s))
		if err != nil {
			return nil, err
		}
		ring = append(ring, k)
	}
	return ring, nil
}

func deriveKeys(secret []byte) (keys, error) {
	macKey, err := expand(secret, "fedauth cookie signing")
	if err != nil {
		return keys{}, err
	}
	encKey, err := expand(secret, "fedauth cookie encryption")
	if err != nil {
		return keys{}, err
	}
	block, err := aes.NewCipher(encKey)
	if err != nil {
		return keys{}, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return keys{}, fmt.Errorf("failed to create gcm: %w", err)
	}
	return keys{mac: macKey, aead: aead}, nil
}

func expand(secret []byte, info string) ([]byte, error) {
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(info)), key); err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	return key, nil
}

// sum authenticates payload under the cookie name, so a value signed for
// one cookie is rejected when replayed under another.
func (k keys) sum(name string, payload []byte) []byte {
	mac := hmac.New(sha256.New, k.mac)
	mac.Write([]byte(name))
	mac.Write([]byte{0})
	mac.Write(payload)
	return mac.Sum(nil)
}

func (r keyring) sign(name string, payload []byte) []byte {
	return r[0].sum(name, payload)
}

func (r keyring) verify(name string, payload, sig []byte) bool {
	for _, k := range r {
		if hmac.Equal(sig, k.sum(name, payload)) {
			return true
		}
	}
	return false
}

// seal encrypts plaintext with a random nonce prepended. The cookie name is
// the additional data.
func (r keyring) seal(name string, plaintext []byte) ([]byte, error) {
	aead := r[0].aead
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return aead.Seal(nonce, nonce, plaintext, []byte(name)), nil
}

func (r keyring) open(name string, sealed []byte) ([]byte, error) {
	for _, k := range r {
		n := k.aead.NonceSize()
		if len(sealed) < n+k.aead.Overhead() {
			return nil, ErrInvalidFormat
		}
		if plaintext, err := k.aead.Open(nil, sealed[:n], sealed[n:], []byte(name)); err == nil {
			return plaintext, nil
		}
	}
	return nil, ErrDecryptionFailed
}
