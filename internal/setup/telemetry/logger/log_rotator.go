package logger

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// CappedFile is a log file that keeps only its most recent lines.
// The file is compacted once twice the line limit has been written since the
// last compaction.
type CappedFile struct {
	mu      sync.Mutex
	path    string
	file    *os.File
	ring    *lineRing
	limit   int
	pending int
	rename  func(oldpath, newpath string) error
}

// OpenCapped opens path for appending. A limit of zero or less disables
// compaction.
func OpenCapped(path string, limit int) (*CappedFile, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("cannot open log file %s: %w", path, err)
	}

	c := &CappedFile{path: path, file: file, limit: limit, rename: os.Rename}
	if limit > 0 {
		c.ring = newLineRing(limit)
	}
	return c, nil
}

// Write implements io.Writer.
func (c *CappedFile) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, err := c.file.Write(p)
	if err != nil || c.ring == nil {
		return n, err
	}

	for line := range strings.SplitSeq(strings.TrimRight(string(p), "\n"), "\n") {
		if line == "" {
			continue
		}
		c.ring.push(line)
		c.pending++
	}

	if c.pending >= c.limit*2 {
		err := c.compact()
		c.pending = c.ring.count
		if err != nil {
			return n, fmt.Errorf("failed to compact log file: %w", err)
		}
	}

	return n, nil
}

// Sync flushes the file to disk.
func (c *CappedFile) Sync() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.file.Sync()
}

// Close closes the underlying file.
func (c *CappedFile) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.file.Close()
}

// compact replaces the file with the retained lines.
func (c *CappedFile) compact() error {
	temp, err := os.CreateTemp(filepath.Dir(c.path), "compact-log-")
	if err != nil {
		return err
	}
	tempPath := temp.Name()

	content := strings.Join(c.ring.snapshot(), "\n") + "\n"
	if _, err := temp.WriteString(content); err != nil {
		temp.Close()
		os.Remove(tempPath)
		return err
	}

	if err := temp.Close(); err != nil {
		os.Remove(tempPath)
		return err
	}

	c.file.Close()

	// Windows refuses to rename over an existing file
	os.Remove(c.path)

	if err := c.rename(tempPath, c.path); err != nil {
		os.Remove(tempPath)
		return errors.Join(err, c.reopen())
	}

	return c.reopen()
}

// reopen points the writer back at the log path, creating it when missing.
func (c *CappedFile) reopen() error {
	file, err := os.OpenFile(c.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	c.file = file

	return nil
}
