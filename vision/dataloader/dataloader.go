// Package dataloader turns a partitioned item list into a restartable
// stream of batched tensors, overlapping disk I/O and decode work with
// model compute through a bounded prefetch channel.
package dataloader

import (
	"context"
	"fmt"
	"math/rand"
	"sync/atomic"

	"github.com/UNO-CSCI4830/SureSight/tensor"
	"github.com/UNO-CSCI4830/SureSight/vision/dataset"
	"github.com/UNO-CSCI4830/SureSight/vision/preprocessing"
)

const (
	// DefaultShuffleBuffer bounds the streaming shuffle reservoir
	DefaultShuffleBuffer = 1000
	// DefaultPrefetchDepth bounds how many batches may be prepared ahead
	DefaultPrefetchDepth = 4
	// DefaultCacheSize bounds the decoded-image cache
	DefaultCacheSize = 1000
)

// Batch holds one step's worth of images and labels.
// Data is [N, 3, H, W] Float32 with pixels in [0, 255]; Labels is [N] Int32.
type Batch struct {
	Data   *tensor.Tensor
	Labels *tensor.Tensor
}

// Size returns the number of samples in the batch
func (b *Batch) Size() int { return b.Data.Shape[0] }

// BatchResult carries either a batch or the error that ended the epoch
type BatchResult struct {
	Batch *Batch
	Err   error
}

// Config controls batching, shuffling, caching, and prefetching
type Config struct {
	BatchSize     int
	Shuffle       bool  // training stream only; validation must stay in order
	ShuffleBuffer int   // 0 means DefaultShuffleBuffer
	PrefetchDepth int   // 0 means DefaultPrefetchDepth
	CacheSize     int   // 0 means DefaultCacheSize
	Seed          int64 // shuffle seed; epoch number is mixed in per epoch
}

// Loader produces batches from a fixed item list. Each call to Batches
// replays the full underlying dataset, re-applying shuffle, cache, and
// prefetch, which makes the stream restartable across epochs.
type Loader struct {
	items     []dataset.Item
	processor *preprocessing.ImageProcessor
	cfg       Config
	cache     *decodeCache
	epoch     atomic.Int64
}

// New creates a loader over the given items
func New(items []dataset.Item, processor *preprocessing.ImageProcessor, cfg Config) (*Loader, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("loader requires at least one item")
	}
	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", cfg.BatchSize)
	}
	if cfg.ShuffleBuffer == 0 {
		cfg.ShuffleBuffer = DefaultShuffleBuffer
	}
	if cfg.PrefetchDepth <= 0 {
		cfg.PrefetchDepth = DefaultPrefetchDepth
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultCacheSize
	}
	return &Loader{
		items:     items,
		processor: processor,
		cfg:       cfg,
		cache:     newDecodeCache(cfg.CacheSize),
	}, nil
}

// Len returns the number of items in the underlying dataset
func (l *Loader) Len() int { return len(l.items) }

// NumBatches returns the number of batches per epoch
func (l *Loader) NumBatches() int {
	return (len(l.items) + l.cfg.BatchSize - 1) / l.cfg.BatchSize
}

// CacheStats reports decode-cache effectiveness so far
func (l *Loader) CacheStats() CacheStats { return l.cache.stats() }

// Batches starts one epoch. The producer goroutine decodes and batches
// images ahead of the consumer, blocking once PrefetchDepth batches are
// waiting; the consumer blocks when none are ready. The channel closes
// at end of epoch or after the first error.
func (l *Loader) Batches(ctx context.Context) <-chan BatchResult {
	out := make(chan BatchResult, l.cfg.PrefetchDepth)
	epoch := l.epoch.Add(1) - 1
	go l.produce(ctx, out, epoch)
	return out
}

func (l *Loader) produce(ctx context.Context, out chan<- BatchResult, epoch int64) {
	defer close(out)

	order := make([]int, len(l.items))
	for i := range order {
		order[i] = i
	}
	if l.cfg.Shuffle {
		rng := rand.New(rand.NewSource(l.cfg.Seed + epoch))
		order = shuffledOrder(len(l.items), l.cfg.ShuffleBuffer, rng)
	}

	pixels := l.processor.PixelsPerImage()
	shape := []int{0, 3, l.processor.Height(), l.processor.Width()}

	for start := 0; start < len(order); start += l.cfg.BatchSize {
		end := start + l.cfg.BatchSize
		if end > len(order) {
			end = len(order)
		}
		n := end - start

		shape[0] = n
		data, err := tensor.Zeros(shape, tensor.Float32)
		if err != nil {
			l.send(ctx, out, BatchResult{Err: err})
			return
		}
		labels, err := tensor.Zeros([]int{n}, tensor.Int32)
		if err != nil {
			l.send(ctx, out, BatchResult{Err: err})
			return
		}

		dst := data.Float32s()
		lbl := labels.Int32s()
		for i, idx := range order[start:end] {
			item := l.items[idx]
			img, err := l.loadWithCache(item.Path)
			if err != nil {
				l.send(ctx, out, BatchResult{Err: &dataset.Error{
					Path:   item.Path,
					Reason: "unreadable image",
					Err:    err,
				}})
				return
			}
			copy(dst[i*pixels:(i+1)*pixels], img)
			lbl[i] = item.Label
		}

		if !l.send(ctx, out, BatchResult{Batch: &Batch{Data: data, Labels: labels}}) {
			return
		}
	}
}

// send delivers a result unless the epoch is cancelled
func (l *Loader) send(ctx context.Context, out chan<- BatchResult, r BatchResult) bool {
	select {
	case out <- r:
		return true
	case <-ctx.Done():
		return false
	}
}

func (l *Loader) loadWithCache(path string) ([]float32, error) {
	if data, ok := l.cache.get(path); ok {
		return data, nil
	}
	data, err := l.processor.Load(path)
	if err != nil {
		return nil, err
	}
	l.cache.put(path, data)
	return data, nil
}
