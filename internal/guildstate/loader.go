package guildstate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"go.uber.org/zap"
)

// ErrParse is returned when a guild configuration document cannot be read or parsed.
var ErrParse = errors.New("failed to parse guild configuration")

// Loader reads guild configuration documents.
type Loader interface {
	Load(ctx context.Context, guildID uint64) (*koanf.Koanf, error)
}

// Watcher is implemented by loaders that can report document changes.
type Watcher interface {
	Watch(guildID uint64, onChange func()) error
	Unwatch(guildID uint64)
}

// FileLoader loads guild documents from "<dir>/<guild id>.toml".
// Watches share one watcher on the directory, so documents created after a
// guild is tracked are picked up as well.
type FileLoader struct {
	dir    string
	logger *zap.Logger

	mu        sync.Mutex
	watcher   *fsnotify.Watcher
	callbacks map[uint64]func()
}

// NewFileLoader creates a FileLoader for the given directory.
func NewFileLoader(dir string, logger *zap.Logger) *FileLoader {
	return &FileLoader{
		dir:       dir,
		logger:    logger.Named("guild_loader"),
		callbacks: make(map[uint64]func()),
	}
}

// Path returns the document path for a guild.
func (l *FileLoader) Path(guildID uint64) string {
	return filepath.Join(l.dir, strconv.FormatUint(guildID, 10)+".toml")
}

// Load reads and parses a guild's document. A guild without a document gets an
// empty one, which configures no rules.
func (l *FileLoader) Load(_ context.Context, guildID uint64) (*koanf.Koanf, error) {
	k := koanf.New(".")
	path := l.Path(guildID)

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		l.logger.Debug("No configuration document for guild", zap.Uint64("guild_id", guildID))
		return k, nil
	}

	if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrParse, path, err)
	}

	return k, nil
}

// Watch calls onChange whenever the guild's document is created, written or
// removed. Any previous watch for the guild is replaced.
func (l *FileLoader) Watch(guildID uint64, onChange func()) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.watcher == nil {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("failed to create watcher: %w", err)
		}

		if err := watcher.Add(l.dir); err != nil {
			watcher.Close()
			return fmt.Errorf("failed to watch %s: %w", l.dir, err)
		}

		l.watcher = watcher
		go l.dispatch(watcher)
	}

	l.callbacks[guildID] = onChange
	return nil
}

// Unwatch stops watching a guild's document.
func (l *FileLoader) Unwatch(guildID uint64) {
	l.mu.Lock()
	delete(l.callbacks, guildID)
	l.mu.Unlock()
}

// Close stops every watch.
func (l *FileLoader) Close() {
	l.mu.Lock()
	watcher := l.watcher
	l.watcher = nil
	clear(l.callbacks)
	l.mu.Unlock()

	if watcher != nil {
		if err := watcher.Close(); err != nil {
			l.logger.Warn("Failed to close configuration watcher", zap.Error(err))
		}
	}
}

// dispatch routes directory events to the callback of the guild they belong to.
func (l *FileLoader) dispatch(watcher *fsnotify.Watcher) {
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}

			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}

			guildID, ok := guildIDFromFile(event.Name)
			if !ok {
				continue
			}

			l.mu.Lock()
			onChange := l.callbacks[guildID]
			l.mu.Unlock()

			if onChange != nil {
				onChange()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			l.logger.Error("Configuration watch failed", zap.String("dir", l.dir), zap.Error(err))
		}
	}
}

// GuildIDs lists the guilds that have a document in the directory.
func (l *FileLoader) GuildIDs() ([]uint64, error) {
	matches, err := filepath.Glob(filepath.Join(l.dir, "*.toml"))
	if err != nil {
		return nil, err
	}

	ids := make([]uint64, 0, len(matches))
	for _, match := range matches {
		id, ok := guildIDFromFile(match)
		if !ok {
			l.logger.Warn("Skipping configuration file without a guild id name", zap.String("file", match))
			continue
		}
		ids = append(ids, id)
	}

	return ids, nil
}

// guildIDFromFile parses the guild id out of a "<guild id>.toml" path.
func guildIDFromFile(path string) (uint64, bool) {
	name, ok := strings.CutSuffix(filepath.Base(path), ".toml")
	if !ok {
		return 0, false
	}

	id, err := strconv.ParseUint(name, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
