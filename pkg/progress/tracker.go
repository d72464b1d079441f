package progress

import (
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/sirupsen/logrus"
)

// Global variables for progress tracking
var (
	totalBytesProcessed atomic.Uint64
	totalSize           uint64
	done                chan struct{}
	stopped             chan struct{}
	progressRunning     bool
	progressMutex       sync.Mutex
	isTestMode          bool // Minimal output when set
)

// log receives progress reports. Guarded by progressMutex.
var log logrus.FieldLogger = logrus.StandardLogger()

// SetLogger replaces the logger progress is reported through.
func SetLogger(l logrus.FieldLogger) {
	progressMutex.Lock()
	defer progressMutex.Unlock()
	log = l
}

// Init initializes the progress tracking system. It is a no-op while a
// tracker is already running.
func Init(size uint64) {
	progressMutex.Lock()
	defer progressMutex.Unlock()

	if progressRunning {
		return
	}

	totalBytesProcessed.Store(0)
	totalSize = size
	if totalSize == 0 {
		totalSize = 1 // Avoid division by zero
	}

	done = make(chan struct{})
	stopped = make(chan struct{})
	progressRunning = true
	go logger(log, done, stopped)
}

// SetTestMode enables or disables test mode
// In test mode, progress output is minimal to avoid cluttering test output
func SetTestMode(enabled bool) {
	progressMutex.Lock()
	defer progressMutex.Unlock()
	isTestMode = enabled
}

// Stop stops the progress tracking and waits for the final report.
func Stop() {
	progressMutex.Lock()
	if !progressRunning {
		progressMutex.Unlock()
		return
	}
	close(done)
	progressRunning = false
	wait := stopped
	progressMutex.Unlock()
	<-wait
}

// AddBytes adds processed bytes to the counter
func AddBytes(n uint64) {
	if n > 0 {
		totalBytesProcessed.Add(n)
	}
}

// Processed returns the bytes counted since Init.
func Processed() uint64 {
	return totalBytesProcessed.Load()
}

// formatSize returns a human-readable size string
func formatSize(bytes uint64) string {
	return datasize.ByteSize(bytes).HumanReadable()
}

// formatRate returns a human-readable rate string
func formatRate(bytesPerSec uint64) string {
	return datasize.ByteSize(bytesPerSec).HumanReadable() + "/s"
}

func eta(remaining, rate uint64) string {
	if rate == 0 {
		return "calculating..."
	}
	return time.Duration(float64(remaining) / float64(rate) * float64(time.Second)).Round(time.Second).String()
}

// logger logs processing progress periodically
func logger(log logrus.FieldLogger, done, stopped chan struct{}) {
	defer close(stopped)

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	var prevBytes uint64
	var prevPercentage float64
	startTime := time.Now()
	lastOutputTime := time.Now()

	progressMutex.Lock()
	testMode := isTestMode
	progressMutex.Unlock()

	if testMode {
		log.Debug("progress tracking initialized")
	}

	for {
		select {
		case <-ticker.C:
			currentBytes := totalBytesProcessed.Load()
			rate := (currentBytes - prevBytes) * 4 // Bytes per second (250ms interval)
			prevBytes = currentBytes

			currentPercentage := float64(currentBytes) / float64(totalSize) * 100

			if testMode {
				// Only output for significant changes (25%, 50%, 75%, 100%)
				for _, mark := range []float64{100, 75, 50, 25} {
					if currentPercentage >= mark && prevPercentage < mark {
						log.Debugf("processing at %.0f%%", mark)
						break
					}
				}
			} else {
				// Only show updates every second or for significant percentage changes
				if time.Since(lastOutputTime) >= time.Second || currentPercentage-prevPercentage >= 10 ||
					(currentPercentage >= 100 && prevPercentage < 100) {

					lastOutputTime = time.Now()
					entry := log.WithFields(logrus.Fields{
						"processed": formatSize(currentBytes),
						"rate":      formatRate(rate),
					})
					if totalSize > 1 && currentBytes <= totalSize {
						entry.WithFields(logrus.Fields{
							"total": formatSize(totalSize),
							"eta":   eta(totalSize-currentBytes, rate),
						}).Infof("%.1f%%", currentPercentage)
					} else {
						entry.Info("progress")
					}
				}
			}

			prevPercentage = currentPercentage
		case <-done:
			if !testMode {
				totalTime := time.Since(startTime).Seconds()
				if totalTime < 0.001 {
					totalTime = 0.001 // Avoid division by zero
				}
				processed := totalBytesProcessed.Load()
				log.WithFields(logrus.Fields{
					"processed": formatSize(processed),
					"avg_rate":  formatRate(uint64(float64(processed) / totalTime)),
				}).Infof("completed in %.1f seconds", totalTime)
			}
			return
		}
	}
}

// Reader is a reader that tracks bytes read for progress reporting
type Reader struct {
	R io.Reader
}

// Read implements io.Reader and tracks bytes read
func (pr *Reader) Read(p []byte) (n int, err error) {
	n, err = pr.R.Read(p)
	if n > 0 {
		AddBytes(uint64(n))
	}
	return
}
