package storage

import (
	"errors"
	"strings"
)

var (
	ErrKeyNotFound        = errors.New("key not found")
	ErrAccountNotFound    = errors.New("account not found")
	ErrAccountExists      = errors.New("account already exists")
	ErrEmailExists        = errors.New("email already registered")
	ErrUnexpectedRowCount = errors.New("unexpected row count")
)

// * Key - ключ в key-value хранилище, состоящий из сегментов (например ["signup", token])
type Key []string

func (k Key) String() string {
	return strings.Join(k, ":")
}
