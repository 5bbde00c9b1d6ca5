package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"

	"github.com/dgraph-io/badger/v4"
	"github.com/soundprediction/textencode/pkg/config"
)

// OpenCache opens the badger database used by CachedClient.
func OpenCache(cfg config.CacheConfig) (*badger.DB, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, fmt.Errorf("cache path is required unless in_memory is set")
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open embedding cache: %w", err)
	}
	return db, nil
}

// CachedClient serves repeated texts from a content-addressed badger cache.
// Keys are sha256(model, text), so clients for different models never share entries.
type CachedClient struct {
	client Client
	db     *badger.DB
	prefix string
}

// NewCachedClient wraps client. The caller owns db.
func NewCachedClient(client Client, db *badger.DB, modelID string) *CachedClient {
	return &CachedClient{
		client: client,
		db:     db,
		prefix: modelID,
	}
}

// Embed returns cached vectors where available and embeds only the misses.
func (c *CachedClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	keys := make([][]byte, len(texts))
	for i, text := range texts {
		keys[i] = c.key(text)
	}

	embeddings := make([][]float32, len(texts))
	var missIdx []int
	err := c.db.View(func(txn *badger.Txn) error {
		for i, key := range keys {
			item, err := txn.Get(key)
			if errors.Is(err, badger.ErrKeyNotFound) {
				missIdx = append(missIdx, i)
				continue
			}
			if err != nil {
				return err
			}
			raw, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			embeddings[i] = decodeVector(raw)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read embedding cache: %w", err)
	}
	if len(missIdx) == 0 {
		return embeddings, nil
	}

	misses := make([]string, len(missIdx))
	for j, i := range missIdx {
		misses[j] = texts[i]
	}
	fresh, err := c.client.Embed(ctx, misses)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(misses) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", ErrEmptyResponse, len(fresh), len(misses))
	}

	for j, i := range missIdx {
		embeddings[i] = fresh[j]
	}
	err = c.db.Update(func(txn *badger.Txn) error {
		for _, i := range missIdx {
			if err := txn.Set(keys[i], encodeVector(embeddings[i])); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to write embedding cache: %w", err)
	}
	return embeddings, nil
}

func (c *CachedClient) key(text string) []byte {
	h := sha256.New()
	h.Write([]byte(c.prefix))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return []byte("emb:" + hex.EncodeToString(h.Sum(nil)))
}

// Dimensions implements Client
func (c *CachedClient) Dimensions() int {
	return c.client.Dimensions()
}

// Model implements Client
func (c *CachedClient) Model() string {
	return c.client.Model()
}

// Close closes the wrapped client. The database stays open.
func (c *CachedClient) Close() error {
	return c.client.Close()
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(x))
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return v
}
