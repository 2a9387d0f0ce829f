package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/alnah/go-texshot"
)

// File permission constants.
const (
	dirPermissions  = 0o750 // rwxr-x---: owner full, group read+execute
	filePermissions = 0o644 // rw-r--r--: owner read+write, others read
)

// filePoster implements texshot.Poster on the filesystem: the thread
// timestamp carries the output path, images are copied there and error
// replies are kept for the summary.
type filePoster struct {
	mu      sync.Mutex
	replies map[string]string // output path -> error reply
}

var _ texshot.Poster = (*filePoster)(nil)

func newFilePoster() *filePoster {
	return &filePoster{replies: make(map[string]string)}
}

// threadFor addresses the reply of one input.
func threadFor(in Input) texshot.Thread {
	return texshot.Thread{Channel: in.Name, Timestamp: in.OutputPath}
}

// PostImage copies the staged image to the thread's output path.
func (p *filePoster) PostImage(ctx context.Context, thread texshot.Thread, imagePath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := os.ReadFile(imagePath) // #nosec G304 -- staged by the handler
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWriteImage, err)
	}
	return writeOutput(thread.Timestamp, data)
}

// PostError records the reply for the thread's output path.
func (p *filePoster) PostError(ctx context.Context, thread texshot.Thread, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replies[thread.Timestamp] = text
	return nil
}

// Reply returns the error reply posted for outputPath, if any.
func (p *filePoster) Reply(outputPath string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	text, ok := p.replies[outputPath]
	return text, ok
}

// writeOutput writes data to path, creating parent directories.
func writeOutput(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), dirPermissions); err != nil {
		return fmt.Errorf("%w: creating output directory: %w", ErrWriteImage, err)
	}
	// #nosec G306 -- images are meant to be readable
	if err := os.WriteFile(path, data, filePermissions); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteImage, err)
	}
	return nil
}
