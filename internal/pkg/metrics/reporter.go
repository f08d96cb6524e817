package metrics

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Reporter buffers run records by category and appends them to a JSON log
// file on Flush.
type Reporter struct {
	mu      sync.Mutex
	logFile *os.File
	metrics map[string][]interface{}
}

func NewReporter(logPath string) (*Reporter, error) {
	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "open report %s", logPath)
	}

	return &Reporter{
		logFile: file,
		metrics: make(map[string][]interface{}),
	}, nil
}

func (r *Reporter) Record(category string, data interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := map[string]interface{}{
		"timestamp": time.Now(),
		"data":      data,
	}

	r.metrics[category] = append(r.metrics[category], entry)
}

func (r *Reporter) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.metrics) == 0 {
		return nil
	}

	data, err := json.Marshal(r.metrics)
	if err != nil {
		return errors.Wrap(err, "marshal metrics")
	}

	if _, err := r.logFile.Write(append(data, '\n')); err != nil {
		return errors.Wrap(err, "write metrics")
	}

	r.metrics = make(map[string][]interface{})
	return nil
}

func (r *Reporter) Close() error {
	if err := r.Flush(); err != nil {
		return errors.Wrap(err, "failed to flush metrics")
	}
	return r.logFile.Close()
}
