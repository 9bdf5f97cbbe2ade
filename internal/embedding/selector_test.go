package embedding

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider returns errs in order, then succeeds with constant vectors.
type fakeProvider struct {
	errs  []error
	calls int
}

func (f *fakeProvider) Name() string   { return "fake" }
func (f *fakeProvider) Space() string  { return "fake/v1" }
func (f *fakeProvider) Dimension() int { return 3 }

func (f *fakeProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func TestSelector_NoHostedUsesLocal(t *testing.T) {
	s := NewSelector(nil, NewLocal(32), nil)
	res := s.Embed(context.Background(), []string{"a b", "c d"})

	assert.Equal(t, "local/hash-32", res.Space)
	assert.Equal(t, "local", res.Provider)
	assert.False(t, res.Downgraded)
	assert.Equal(t, FailureNone, res.Failure)
	assert.Len(t, res.Vectors, 2)
}

func TestSelector_HostedSuccess(t *testing.T) {
	hosted := &fakeProvider{}
	s := NewSelector(hosted, NewLocal(32), nil)

	res := s.Embed(context.Background(), []string{"x"})
	assert.Equal(t, "fake/v1", res.Space)
	assert.False(t, res.Downgraded)
	assert.Equal(t, [][]float32{{1, 0, 0}}, res.Vectors)
}

func TestSelector_DowngradeIsPerCall(t *testing.T) {
	hosted := &fakeProvider{errs: []error{fmt.Errorf("%w: 429", ErrProviderQuotaExceeded)}}
	s := NewSelector(hosted, NewLocal(32), nil)

	first := s.Embed(context.Background(), []string{"x"})
	assert.True(t, first.Downgraded)
	assert.Equal(t, FailureQuota, first.Failure)
	assert.Equal(t, "local/hash-32", first.Space)
	require.Len(t, first.Vectors, 1)
	assert.Len(t, first.Vectors[0], 32)

	second := s.Embed(context.Background(), []string{"x"})
	assert.False(t, second.Downgraded)
	assert.Equal(t, "fake/v1", second.Space)
	assert.Equal(t, 2, hosted.calls)
}

func TestSelector_EmbedIn(t *testing.T) {
	hosted := &fakeProvider{}
	local := NewLocal(32)
	s := NewSelector(hosted, local, nil)

	v, err := s.EmbedIn(context.Background(), "fake/v1", []string{"q"})
	require.NoError(t, err)
	assert.Len(t, v[0], 3)

	v, err = s.EmbedIn(context.Background(), local.Space(), []string{"q"})
	require.NoError(t, err)
	assert.Len(t, v[0], 32)

	_, err = s.EmbedIn(context.Background(), "local/hash-64", []string{"q"})
	assert.ErrorIs(t, err, ErrUnknownSpace)
}

func TestSelector_EmbedInHostedFailureIsReturned(t *testing.T) {
	hosted := &fakeProvider{errs: []error{ErrProviderError}}
	s := NewSelector(hosted, NewLocal(32), nil)

	_, err := s.EmbedIn(context.Background(), "fake/v1", []string{"q"})
	assert.ErrorIs(t, err, ErrProviderError)
}
