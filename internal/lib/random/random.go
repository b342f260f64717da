package random

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// CodeSize is the number of random bytes behind a challenge code.
const CodeSize = 8

// * Code генерирует короткий код для ручного ввода: 8 случайных байт в base64url без паддинга
func Code() (string, error) {
	const op = "random.Code"

	buf := make([]byte, CodeSize)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}
