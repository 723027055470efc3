// Package cardcrypto provides reversible encryption of full card numbers
// for storage and a one-way masked form for display.
package cardcrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
)

var (
	// ErrEncode is returned when the input is not a valid card number.
	ErrEncode = errors.New("card number encoding failed")
	// ErrDecode is returned when the stored form is corrupt or was not
	// produced by this cipher.
	ErrDecode = errors.New("card number decoding failed")
)

// CardNumberLength is the exact number of digits a raw card number carries.
const CardNumberLength = 16

// Cipher encrypts and decrypts card numbers with a process-wide key.
type Cipher struct {
	key []byte
}

// NewCipher creates a cipher from the configured key. The key must be a
// valid AES key length (16, 24, or 32 bytes).
func NewCipher(key []byte) (*Cipher, error) {
	switch len(key) {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("encryption key must be 16, 24, or 32 bytes, got %d", len(key))
	}
	return &Cipher{key: key}, nil
}

// Encrypt encodes a raw card number into its hex-encoded AES-CBC form.
// The input must be exactly 16 numeric digits.
func (c *Cipher) Encrypt(rawNumber string) (string, error) {
	if !IsCardNumber(rawNumber) {
		return "", fmt.Errorf("%w: expected %d numeric digits", ErrEncode, CardNumberLength)
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncode, err)
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncode, err)
	}

	// PKCS#7 padding
	data := []byte(rawNumber)
	padding := aes.BlockSize - len(data)%aes.BlockSize
	for i := 0; i < padding; i++ {
		data = append(data, byte(padding))
	}

	ciphertext := make([]byte, len(data))
	mode := cipher.NewCBCEncrypter(block, iv)
	mode.CryptBlocks(ciphertext, data)

	return hex.EncodeToString(append(iv, ciphertext...)), nil
}

// Decrypt is the inverse of Encrypt. It fails when the cipher form is
// corrupt, tampered with, or encrypted under a different key.
func (c *Cipher) Decrypt(cipherText string) (string, error) {
	data, err := hex.DecodeString(cipherText)
	if err != nil {
		return "", fmt.Errorf("%w: invalid hex encoding", ErrDecode)
	}
	if len(data) < 2*aes.BlockSize || len(data)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: invalid payload length %d", ErrDecode, len(data))
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecode, err)
	}

	iv := data[:aes.BlockSize]
	ciphertext := data[aes.BlockSize:]

	plaintext := make([]byte, len(ciphertext))
	mode := cipher.NewCBCDecrypter(block, iv)
	mode.CryptBlocks(plaintext, ciphertext)

	padding := int(plaintext[len(plaintext)-1])
	if padding == 0 || padding > aes.BlockSize {
		return "", fmt.Errorf("%w: invalid padding", ErrDecode)
	}
	for i := len(plaintext) - padding; i < len(plaintext); i++ {
		if int(plaintext[i]) != padding {
			return "", fmt.Errorf("%w: invalid padding", ErrDecode)
		}
	}

	rawNumber := string(plaintext[:len(plaintext)-padding])
	if !IsCardNumber(rawNumber) {
		return "", fmt.Errorf("%w: payload is not a card number", ErrDecode)
	}
	return rawNumber, nil
}

// Mask returns the display form of a card number: "**** **** **** " plus
// its last 4 digits. Inputs shorter than 4 characters are returned
// unchanged; callers validate length before storing anything.
func Mask(rawNumber string) string {
	if len(rawNumber) < 4 {
		return rawNumber
	}
	return "**** **** **** " + rawNumber[len(rawNumber)-4:]
}

// IsCardNumber reports whether s is exactly 16 numeric digits.
func IsCardNumber(s string) bool {
	if len(s) != CardNumberLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
