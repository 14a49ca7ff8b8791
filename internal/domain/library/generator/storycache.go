package generator

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/sirupsen/logrus"

	"linguanest/internal/domain/library"
	"linguanest/internal/domain/story"
)

const cacheExt = ".json.zst"

// StoryCache wraps a StoryGenerator and keeps generated stories on disk
type StoryCache struct {
	next     StoryGenerator
	cacheDir string
	maxAge   time.Duration

	encoder *zstd.Encoder
	decoder *zstd.Decoder
	mu      sync.Mutex
}

// CacheInfo summarises the cache directory
type CacheInfo struct {
	Dir     string
	Entries int
	Bytes   int64
	Newest  time.Time
	Oldest  time.Time
	MaxAge  time.Duration
}

// NewStoryCache creates a new story cache in front of next
func NewStoryCache(next StoryGenerator, cacheDir string, maxAge time.Duration) (*StoryCache, error) {
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	return &StoryCache{
		next:     next,
		cacheDir: cacheDir,
		maxAge:   maxAge,
		encoder:  encoder,
		decoder:  decoder,
	}, nil
}

// Generate returns a cached story when a fresh one exists, otherwise asks the wrapped generator.
// If the generator fails, a stale cached story is served instead of the error.
func (sc *StoryCache) Generate(ctx context.Context, req Request) (*story.Content, error) {
	path := sc.entryPath(req)

	if sc.isFresh(path) {
		if entry, err := sc.load(path); err == nil {
			logrus.WithField("request", req.String()).Debug("Loading story from cache")
			metricCacheHits.WithLabelValues("fresh").Inc()
			return &entry.Content, nil
		}
	}

	content, err := sc.next.Generate(ctx, req)
	if err != nil {
		if entry, cacheErr := sc.load(path); cacheErr == nil {
			logrus.WithError(err).Warn("Story generation failed, serving stale cached story")
			metricCacheHits.WithLabelValues("stale").Inc()
			return &entry.Content, nil
		}
		return nil, err
	}

	entry := library.Entry{
		ID:        cacheKey(req)[:8],
		Topic:     req.Topic,
		Language:  req.Language,
		Level:     req.Level,
		Content:   *content,
		CreatedAt: time.Now(),
	}
	if err := sc.save(path, entry); err != nil {
		logrus.WithError(err).Warn("Failed to save story to cache")
	}

	return content, nil
}

func cacheKey(req Request) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(req.Topic)) + "|" + string(req.Language) + "|" + string(req.Level)))
	return hex.EncodeToString(sum[:])
}

func (sc *StoryCache) entryPath(req Request) string {
	return filepath.Join(sc.cacheDir, cacheKey(req)+cacheExt)
}

func (sc *StoryCache) isFresh(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return time.Since(info.ModTime()) < sc.maxAge
}

func (sc *StoryCache) load(path string) (*library.Entry, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}

	data, err := sc.decoder.DecodeAll(raw, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress cache file: %w", err)
	}

	var entry library.Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to decode cache file: %w", err)
	}
	if err := entry.Content.Validate(); err != nil {
		return nil, fmt.Errorf("cached story is invalid: %w", err)
	}

	return &entry, nil
}

func (sc *StoryCache) save(path string, entry library.Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode cache data: %w", err)
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()

	compressed := sc.encoder.EncodeAll(data, nil)
	if err := os.WriteFile(path, compressed, 0644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"topic": entry.Topic,
		"file":  path,
	}).Debug("Saved story to cache")

	return nil
}

func (sc *StoryCache) files() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(sc.cacheDir, "*"+cacheExt))
	if err != nil {
		return nil, fmt.Errorf("failed to list cache files: %w", err)
	}
	return matches, nil
}

// List returns every cached story, newest first
func (sc *StoryCache) List() (*library.StoryLibrary, error) {
	files, err := sc.files()
	if err != nil {
		return nil, err
	}

	lib := &library.StoryLibrary{Name: "Generated stories"}
	for _, f := range files {
		entry, err := sc.load(f)
		if err != nil {
			logrus.WithError(err).WithField("file", f).Warn("Skipping unreadable cache entry")
			continue
		}
		lib.Entries = append(lib.Entries, *entry)
	}

	sort.Slice(lib.Entries, func(i, j int) bool {
		return lib.Entries[i].CreatedAt.After(lib.Entries[j].CreatedAt)
	})

	return lib, nil
}

// Clear removes every cached story
func (sc *StoryCache) Clear() error {
	files, err := sc.files()
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
	}
	logrus.WithField("entries", len(files)).Info("Cleared story cache")
	return nil
}

// Info returns information about the cache
func (sc *StoryCache) Info() (CacheInfo, error) {
	info := CacheInfo{Dir: sc.cacheDir, MaxAge: sc.maxAge}

	files, err := sc.files()
	if err != nil {
		return info, err
	}

	for _, f := range files {
		stat, err := os.Stat(f)
		if err != nil {
			continue
		}
		info.Entries++
		info.Bytes += stat.Size()
		if info.Newest.IsZero() || stat.ModTime().After(info.Newest) {
			info.Newest = stat.ModTime()
		}
		if info.Oldest.IsZero() || stat.ModTime().Before(info.Oldest) {
			info.Oldest = stat.ModTime()
		}
	}

	return info, nil
}
