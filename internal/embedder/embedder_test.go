package embedder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/dshills/ctxrank/internal/vector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoKey(t *testing.T) {
	a := MemoKey("model-a", "func main() {}")
	assert.Len(t, a, 64)
	assert.Equal(t, a, MemoKey("model-a", "func main() {}"))
	assert.NotEqual(t, a, MemoKey("model-b", "func main() {}"))
	assert.NotEqual(t, a, MemoKey("model-a", "func main() { }"))

	// the separator keeps model and text from running together
	assert.NotEqual(t, MemoKey("ab", "c"), MemoKey("a", "bc"))
}

func TestCheckBatch(t *testing.T) {
	tooMany := make([]string, MaxBatchSize+1)
	for i := range tooMany {
		tooMany[i] = "t"
	}

	tests := []struct {
		name    string
		texts   []string
		wantErr error
	}{
		{"valid", []string{"a", "b", "c"}, nil},
		{"empty batch", nil, ErrInvalidInput},
		{"empty text", []string{"a", "", "c"}, ErrInvalidInput},
		{"too many", tooMany, ErrBatchTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkBatch(tt.texts)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	assert.ErrorIs(t, checkText(""), ErrEmptyText)
	assert.NoError(t, checkText("x"))
}

func TestMemo(t *testing.T) {
	t.Run("get and put", func(t *testing.T) {
		memo := NewMemo(3)

		_, ok := memo.Get("missing")
		assert.False(t, ok)

		memo.Put("k", []float32{1, 2, 3})
		got, ok := memo.Get("k")
		require.True(t, ok)
		assert.Equal(t, []float32{1, 2, 3}, got)
		assert.Equal(t, 1, memo.Len())

		hits, misses := memo.Stats()
		assert.Equal(t, uint64(1), hits)
		assert.Equal(t, uint64(1), misses)
	})

	t.Run("evicts least recently used", func(t *testing.T) {
		memo := NewMemo(2)
		memo.Put("a", []float32{1})
		memo.Put("b", []float32{2})
		memo.Get("a")
		memo.Put("c", []float32{3})

		_, ok := memo.Get("b")
		assert.False(t, ok)
		_, ok = memo.Get("a")
		assert.True(t, ok)
		assert.Equal(t, 2, memo.Len())
	})

	t.Run("stored and returned vectors are copies", func(t *testing.T) {
		memo := NewMemo(2)
		v := []float32{1, 2}
		memo.Put("k", v)
		v[0] = 42

		got, _ := memo.Get("k")
		assert.Equal(t, float32(1), got[0])
		got[1] = 99

		again, _ := memo.Get("k")
		assert.Equal(t, []float32{1, 2}, again)
	})

	t.Run("purge", func(t *testing.T) {
		memo := NewMemo(0)
		memo.Put("k", []float32{1})
		memo.Purge()
		assert.Zero(t, memo.Len())
	})

	t.Run("nil memo never hits", func(t *testing.T) {
		var memo *Memo
		emb, key, ok := memo.lookup(ProviderLocal, "m", "text")
		assert.False(t, ok)
		assert.Nil(t, emb)
		assert.Equal(t, MemoKey("m", "text"), key)
		memo.store(&Embedding{Hash: key, Vector: []float32{1}})
	})

	t.Run("concurrent access", func(t *testing.T) {
		memo := NewMemo(100)
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(id int) {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					key := MemoKey("m", fmt.Sprintf("text-%d-%d", id, j))
					memo.Put(key, []float32{float32(id), float32(j)})
					memo.Get(key)
				}
			}(i)
		}
		wg.Wait()
		assert.Equal(t, 100, memo.Len())
	})
}

func TestLocalProvider(t *testing.T) {
	ctx := context.Background()

	p, err := NewLocalProvider(0, NewMemo(10))
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, ProviderLocal, p.Provider())
	assert.Equal(t, LocalDimension, p.Dimension())
	assert.Equal(t, "local-hash-384", p.Model())

	t.Run("deterministic unit vectors", func(t *testing.T) {
		a, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "parse the config file"})
		require.NoError(t, err)
		b, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "parse the config file"})
		require.NoError(t, err)

		assert.Equal(t, a.Vector, b.Vector)
		assert.Len(t, a.Vector, LocalDimension)
		assert.True(t, vector.IsUnit(a.Vector))
	})

	t.Run("shared vocabulary is closer", func(t *testing.T) {
		q, _ := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "load config file"})
		near, _ := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "config file loader reads the config"})
		far, _ := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "render triangle mesh shaders"})

		assert.Greater(t, vector.Cosine(q.Vector, near.Vector), vector.Cosine(q.Vector, far.Vector))
	})

	t.Run("batch preserves order", func(t *testing.T) {
		texts := []string{"alpha", "beta", "gamma"}
		resp, err := p.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: texts})
		require.NoError(t, err)
		require.Len(t, resp.Embeddings, 3)

		for i, text := range texts {
			single, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: text})
			require.NoError(t, err)
			assert.Equal(t, single.Vector, resp.Embeddings[i].Vector)
		}
	})

	t.Run("punctuation only text still embeds", func(t *testing.T) {
		emb, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "{}();"})
		require.NoError(t, err)
		assert.True(t, vector.IsUnit(emb.Vector))
	})

	t.Run("validation", func(t *testing.T) {
		_, err := p.GenerateEmbedding(ctx, EmbeddingRequest{})
		assert.ErrorIs(t, err, ErrEmptyText)

		_, err = p.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: []string{"ok", ""}})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := p.GenerateBatch(cctx, BatchEmbeddingRequest{Texts: []string{"x"}})
		assert.True(t, errors.Is(err, context.Canceled))
	})
}
