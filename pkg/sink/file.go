package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/dbtuneai/autoinc-agent/pkg/fleet"
	"github.com/dbtuneai/autoinc-agent/pkg/metrics"
	log "github.com/sirupsen/logrus"
)

// FileSink appends datapoints to a file in JSONL format (one JSON object per line)
type FileSink struct {
	file    *os.File
	writer  *bufio.Writer
	logger  *log.Logger
	options []metrics.Option
	mu      sync.Mutex
}

// NewFileSink creates a new file sink that appends to the specified path
func NewFileSink(path string, logger *log.Logger, options ...metrics.Option) (*FileSink, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", path, err)
	}

	return &FileSink{
		file:    file,
		writer:  bufio.NewWriter(file),
		logger:  logger,
		options: options,
	}, nil
}

func (s *FileSink) Name() string {
	return "file"
}

// Publish writes one line per datapoint and flushes, so each run is on disk
// once Publish returns.
func (s *FileSink) Publish(ctx context.Context, report *fleet.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	encoder := json.NewEncoder(s.writer)
	for _, point := range metrics.Flatten(report, s.options...) {
		if err := point.Validate(); err != nil {
			s.logger.Warnf("[file] skipping datapoint: %v", err)
			continue
		}
		if err := encoder.Encode(point); err != nil {
			return fmt.Errorf("failed to write datapoint: %w", err)
		}
	}

	if err := s.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush file: %w", err)
	}
	return nil
}

// Close flushes and closes the file
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writer.Flush(); err != nil {
		s.logger.Errorf("Failed to flush file writer: %v", err)
	}

	if err := s.file.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}

	return nil
}
