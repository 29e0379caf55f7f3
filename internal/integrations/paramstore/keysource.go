package paramstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// tokenPayload is the JSON shape stored in SSM for an API key.
type tokenPayload struct {
	Token string `json:"token"`
}

// KeySource resolves the completion API key. A literal key wins; otherwise
// the key is read from an SSM parameter and cached once a lookup succeeds.
// Failed lookups are not cached, so the next call tries again.
type KeySource struct {
	literal string
	getter  Getter
	name    string

	mu  sync.Mutex
	key string
}

// StaticKey returns a KeySource that always yields key.
func StaticKey(key string) *KeySource {
	return &KeySource{literal: strings.TrimSpace(key)}
}

// NewKeySource reads the key from the parameter called name through getter.
func NewKeySource(getter Getter, name string) (*KeySource, error) {
	if getter == nil {
		return nil, errors.New("paramstore: getter must not be nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("paramstore: key parameter name must not be empty")
	}
	return &KeySource{getter: getter, name: name}, nil
}

func (k *KeySource) APIKey(ctx context.Context) (string, error) {
	if k.literal != "" {
		return k.literal, nil
	}
	if k.getter == nil {
		return "", errors.New("paramstore: no API key configured")
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.key != "" {
		return k.key, nil
	}
	key, err := fetchKey(ctx, k.getter, k.name)
	if err != nil {
		return "", err
	}
	k.key = key
	return key, nil
}

// fetchKey accepts either {"token":"..."} or the bare key as the parameter
// value.
func fetchKey(ctx context.Context, getter Getter, name string) (string, error) {
	raw, err := getter.GetParameter(ctx, name)
	if err != nil {
		return "", fmt.Errorf("paramstore: fetch API key: %w", err)
	}
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "{") {
		var tp tokenPayload
		if err := json.Unmarshal([]byte(raw), &tp); err != nil {
			return "", fmt.Errorf("paramstore: unmarshal token payload: %w", err)
		}
		raw = strings.TrimSpace(tp.Token)
	}
	if raw == "" {
		return "", errors.New("paramstore: API key is empty")
	}
	return raw, nil
}
