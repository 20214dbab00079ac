package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/unicode/norm"

	"github.com/tbourn/go-companion-store/internal/repo"
)

// Persisted key space.
const (
	keyFriends      = "friends"
	keyGroups       = "friendGroups"
	keyFriendCodes  = "friendCodes"
	keyMemories     = "memories"
	keyChats        = "chats"
	keyAPIConfig    = "apiConfig"
	keyAPIPresets   = "apiPresets"
	keyVoiceConfig  = "voiceConfig"
	keyUserSettings = "userSettings"
)

// load decodes key into dst. An absent key leaves dst untouched.
func load(ctx context.Context, kv repo.KeyValueStore, key string, dst any) error {
	err := kv.Get(ctx, key, dst)
	if errors.Is(err, repo.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load %s: %w", key, err)
	}
	return nil
}

// commit applies writes as one batch and translates medium rejections into
// ErrStorageWriteFailed.
func commit(ctx context.Context, kv repo.KeyValueStore, writes ...repo.Write) error {
	err := kv.SetMany(ctx, writes)
	if err == nil {
		return nil
	}
	if errors.Is(err, repo.ErrWriteFailed) {
		writeFailures.Inc()
		keys := make([]string, len(writes))
		for i, w := range writes {
			keys[i] = w.Key
		}
		log.Warn().Err(err).Strs("keys", keys).Msg("store write rejected")
		cause := strings.TrimPrefix(err.Error(), repo.ErrWriteFailed.Error()+": ")
		return fmt.Errorf("%w: %s", ErrStorageWriteFailed, cause)
	}
	return err
}

// normalizeName trims and NFC-normalizes a user supplied display name so
// visually identical names compare equal.
func normalizeName(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// utcNow is the default clock.
func utcNow() time.Time { return time.Now().UTC() }
