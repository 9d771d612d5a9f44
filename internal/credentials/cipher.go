// Package credentials persists the oauth token pair a chat bot acts with,
// encrypted at rest with a passphrase-derived key.
package credentials

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"

	"github.com/qbotlabs/twitchkit/internal/helix"
	"golang.org/x/crypto/pbkdf2"
)

const pbkdf2SaltSize = 16
const pbkdf2Iterations = 120000

// ErrNotFound is returned by the stores, when no credentials have been saved
// yet for the requested channel.
var ErrNotFound = errors.New("no credentials were saved for the channel")

// AESCipher seals a credential pair into an opaque base64 string. Every call
// to Encrypt draws a fresh salt and nonce, so the same credentials never
// produce the same ciphertext twice.
type AESCipher struct {
	passphrase string
	keySize    int
}

func NewAESCipher(passphrase string, keySize int) (*AESCipher, error) {
	switch keySize {
	case 16, 24, 32:
		return &AESCipher{
			passphrase: passphrase,
			keySize:    keySize,
		}, nil
	default:
		return nil, errors.New("keySize should be 16, 24 or 32 bytes long")
	}
}

func (ac AESCipher) Encrypt(credentials helix.Credentials) (string, error) {
	salt := make([]byte, pbkdf2SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", errors.Join(errors.New("failed to generate a salt"), err)
	}

	plaintext, err := json.Marshal(credentials)
	if err != nil {
		return "", errors.Join(errors.New("failed to encode credentials"), err)
	}

	gcm, err := newGCM(ac.passphrase, salt, ac.keySize)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", errors.Join(errors.New("failed to generate a nonce"), err)
	}

	sealed := gcm.Seal(nil, nonce, plaintext, nil)

	payload := make([]byte, 0, len(salt)+len(nonce)+len(sealed))
	payload = append(payload, salt...)
	payload = append(payload, nonce...)
	payload = append(payload, sealed...)

	return base64.StdEncoding.EncodeToString(payload), nil
}

func (ac AESCipher) Decrypt(base64Payload string) (helix.Credentials, error) {
	payload, err := base64.StdEncoding.DecodeString(base64Payload)
	if err != nil {
		return helix.Credentials{}, errors.Join(errors.New("failed to decode the payload"), err)
	}

	if len(payload) <= pbkdf2SaltSize {
		return helix.Credentials{}, errors.New("the payload is too short to contain a salt")
	}

	salt, rest := payload[:pbkdf2SaltSize], payload[pbkdf2SaltSize:]

	gcm, err := newGCM(ac.passphrase, salt, ac.keySize)
	if err != nil {
		return helix.Credentials{}, err
	}

	if len(rest) <= gcm.NonceSize() {
		return helix.Credentials{}, errors.New("the payload is too short to contain a nonce")
	}

	nonce, sealed := rest[:gcm.NonceSize()], rest[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return helix.Credentials{}, errors.Join(errors.New("failed to decrypt the payload"), err)
	}

	var credentials helix.Credentials
	if err := json.Unmarshal(plaintext, &credentials); err != nil {
		return helix.Credentials{}, errors.Join(errors.New("failed to decode credentials"), err)
	}

	return credentials, nil
}

func newGCM(passphrase string, salt []byte, keySize int) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(passphrase), salt, pbkdf2Iterations, keySize, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Join(errors.New("failed to initialize the block cipher"), err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.Join(errors.New("failed to initialize GCM"), err)
	}

	return gcm, nil
}
