package token

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
)

type refreshPayload struct {
	TokenID       string `json:"token_id"`
	SecurityStamp string `json:"security_stamp"`
	ExpiresAtMS   int64  `json:"expires_at_ms"`
}

// encryptRefresh seals a payload with AES-256-CBC and PKCS#7 padding. A fresh
// random IV is generated per call and prepended to the ciphertext, so
// encrypting the same payload twice never yields the same token.
func encryptRefresh(key []byte, payload refreshPayload) (string, error) {
	plain, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	padded := pkcs7Pad(plain, aes.BlockSize)
	out := make([]byte, aes.BlockSize+len(padded))

	iv := out[:aes.BlockSize]
	if _, err := rand.Read(iv); err != nil {
		return "", err
	}

	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out[aes.BlockSize:], padded)

	return base64.StdEncoding.EncodeToString(out), nil
}

func decryptRefresh(key []byte, token string) (refreshPayload, error) {
	var payload refreshPayload

	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return payload, errors.New("invalid refresh token encoding")
	}
	if len(raw) < 2*aes.BlockSize || len(raw)%aes.BlockSize != 0 {
		return payload, errors.New("invalid refresh token size")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return payload, err
	}

	iv := raw[:aes.BlockSize]
	body := make([]byte, len(raw)-aes.BlockSize)
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(body, raw[aes.BlockSize:])

	plain, err := pkcs7Unpad(body, aes.BlockSize)
	if err != nil {
		return payload, err
	}

	if err := json.Unmarshal(plain, &payload); err != nil {
		return payload, errors.New("invalid refresh token payload")
	}

	return payload, nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	pad := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(pad)}, pad)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, errors.New("invalid padded length")
	}
	pad := int(data[len(data)-1])
	if pad == 0 || pad > blockSize || pad > len(data) {
		return nil, errors.New("invalid padding")
	}
	for _, b := range data[len(data)-pad:] {
		if int(b) != pad {
			return nil, errors.New("invalid padding")
		}
	}
	return data[:len(data)-pad], nil
}
