package service

import (
	"context"
	"testing"

	"centrovision-data/internal/apperr"
	"centrovision-data/internal/domain"
	"centrovision-data/internal/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func preferenceStores(t *testing.T) map[string]store.KV {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return map[string]store.KV{
		"redis":  store.NewRedisKV(client),
		"memory": store.NewMemoryKV(),
	}
}

func TestPreferences_PerUser(t *testing.T) {
	for name, kv := range preferenceStores(t) {
		t.Run(name, func(t *testing.T) {
			svc := NewPreferenceService(kv)
			ana := withUser("ana", domain.RoleDoctor)
			luis := withUser("luis", domain.RoleCashier)

			require.NoError(t, svc.Set(ana, "theme", "dark"))
			require.NoError(t, svc.Set(ana, "branch", "b2"))
			require.NoError(t, svc.Set(luis, "theme", "light"))

			got, err := svc.All(ana)
			require.NoError(t, err)
			assert.Equal(t, map[string]string{"theme": "dark", "branch": "b2"}, got)

			require.NoError(t, svc.Set(ana, "theme", ""))
			got, err = svc.All(ana)
			require.NoError(t, err)
			assert.Equal(t, map[string]string{"branch": "b2"}, got)

			got, err = svc.All(luis)
			require.NoError(t, err)
			assert.Equal(t, map[string]string{"theme": "light"}, got)
		})
	}
}

func TestPreferences_Rejections(t *testing.T) {
	svc := NewPreferenceService(store.NewMemoryKV())

	_, err := svc.All(context.Background())
	assert.True(t, apperr.Is(err, apperr.KindAuthorization))

	err = svc.Set(withUser("ana", domain.RoleDoctor), "a:b", "x")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	err = svc.Set(withUser("ana", domain.RoleDoctor), "", "x")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}
