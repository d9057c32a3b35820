package vault

import (
	"context"
	"errors"
	"testing"
	"time"

	vault "github.com/hashicorp/vault/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeKV struct {
	calls int
	data  map[string]map[string]any
}

func (f *fakeKV) Get(_ context.Context, p string) (*vault.KVSecret, error) {
	f.calls++
	d, ok := f.data[p]
	if !ok {
		return nil, errors.New("secret not found")
	}
	return &vault.KVSecret{Data: d}, nil
}

func newTestClient(kv *fakeKV, mounts *[]string) *Client {
	return &Client{
		kv: func(m string) kvGetter {
			*mounts = append(*mounts, m)
			return kv
		},
		log:   zap.NewNop().Sugar(),
		cache: make(map[string]cached),
	}
}

func TestGetKV_CachesWithinTTL(t *testing.T) {
	kv := &fakeKV{data: map[string]map[string]any{
		"formrelay/smtp": {"password": "hunter2", "port": 587},
	}}
	var mounts []string
	c := newTestClient(kv, &mounts)

	for i := 0; i < 3; i++ {
		v, err := c.GetKV(context.Background(), "secret/formrelay/smtp", "password", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, "hunter2", v)
	}
	assert.Equal(t, 1, kv.calls)
	assert.Equal(t, []string{"secret"}, mounts)
}

func TestGetKV_Errors(t *testing.T) {
	kv := &fakeKV{data: map[string]map[string]any{
		"formrelay/smtp": {"port": 587},
	}}
	var mounts []string
	c := newTestClient(kv, &mounts)
	ctx := context.Background()

	_, err := c.GetKV(ctx, "", "x", 0)
	require.Error(t, err)

	_, err = c.GetKV(ctx, "secret/formrelay/smtp", "password", 0)
	assert.ErrorContains(t, err, "not found")

	_, err = c.GetKV(ctx, "secret/formrelay/smtp", "port", 0)
	assert.ErrorContains(t, err, "not a string")

	_, err = c.GetKV(ctx, "secret/missing", "k", 0)
	assert.ErrorContains(t, err, "vault get")
}

func TestSplitMount(t *testing.T) {
	m, r := splitMount("secret/a/b")
	assert.Equal(t, "secret", m)
	assert.Equal(t, "a/b", r)

	m, r = splitMount("secret")
	assert.Equal(t, "secret", m)
	assert.Equal(t, "", r)
}
