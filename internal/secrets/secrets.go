// Package secrets stores Prometheus connection passwords in the OS keyring.
package secrets

import (
	"errors"
	"strings"

	"github.com/zalando/go-keyring"
)

const ServiceName = "blacklight"

type secretError string

func (e secretError) Error() string { return string(e) }

const ErrNotFound = secretError("secret not found")

type Store interface {
	Set(baseURL, password string) error
	Get(baseURL string) (string, error)
	Delete(baseURL string) error
}

// DefaultStore returns the store backed by the OS keychain.
func DefaultStore() Store {
	return NewKeyringStore(ServiceName)
}

type KeyringStore struct {
	serviceName string
}

func NewKeyringStore(serviceName string) *KeyringStore {
	if serviceName == "" {
		serviceName = ServiceName
	}
	return &KeyringStore{serviceName: serviceName}
}

func (k *KeyringStore) Set(baseURL, password string) error {
	return keyring.Set(k.serviceName, NormalizeURL(baseURL), password)
}

func (k *KeyringStore) Get(baseURL string) (string, error) {
	pw, err := keyring.Get(k.serviceName, NormalizeURL(baseURL))
	if err == nil {
		return pw, nil
	}
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNotFound
	}
	return "", err
}

func (k *KeyringStore) Delete(baseURL string) error {
	err := keyring.Delete(k.serviceName, NormalizeURL(baseURL))
	if errors.Is(err, keyring.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// NormalizeURL trims whitespace and trailing slashes so that
// "http://prom:9090/" and "http://prom:9090" share one entry.
func NormalizeURL(baseURL string) string {
	return strings.TrimRight(strings.TrimSpace(baseURL), "/")
}
