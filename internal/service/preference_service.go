package service

import (
	"context"
	"errors"
	"sort"
	"strings"

	"centrovision-data/internal/apperr"
	"centrovision-data/internal/store"
)

const maxPreferenceKey = 64

// PreferenceService keeps per-user UI preferences (table density, last
// branch, theme) in the key/value store, keyed "prefs:<user>:<key>".
type PreferenceService struct {
	kv store.KV
}

func NewPreferenceService(kv store.KV) *PreferenceService {
	return &PreferenceService{kv: kv}
}

func preferenceKey(userID, key string) string {
	return "prefs:" + userID + ":" + key
}

func validPreferenceKey(key string) error {
	if err := required("key", key); err != nil {
		return err
	}
	if len(key) > maxPreferenceKey || strings.ContainsAny(key, ":*?[]") {
		return apperr.Validation("invalid preference key %q", key)
	}
	return nil
}

// All returns the signed-in user's preferences.
func (s *PreferenceService) All(ctx context.Context) (map[string]string, error) {
	userID := callerID(ctx)
	if userID == "" {
		return nil, apperr.Authorization("preferences require a signed-in user")
	}
	prefix := preferenceKey(userID, "")
	keys, err := s.kv.ScanKeys(ctx, prefix+"*")
	if err != nil {
		return nil, apperr.External("preferences.All", err)
	}
	sort.Strings(keys)
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		v, err := s.kv.Get(ctx, k)
		if errors.Is(err, store.ErrMiss) {
			continue
		}
		if err != nil {
			return nil, apperr.External("preferences.All", err)
		}
		out[strings.TrimPrefix(k, prefix)] = v
	}
	return out, nil
}

// Set stores one preference; an empty value removes it.
func (s *PreferenceService) Set(ctx context.Context, key, value string) error {
	userID := callerID(ctx)
	if userID == "" {
		return apperr.Authorization("preferences require a signed-in user")
	}
	if err := validPreferenceKey(key); err != nil {
		return err
	}
	var err error
	if value == "" {
		err = s.kv.Delete(ctx, preferenceKey(userID, key))
	} else {
		err = s.kv.Set(ctx, preferenceKey(userID, key), value, 0)
	}
	if err != nil {
		return apperr.External("preferences.Set", err)
	}
	return nil
}
