package repository

import (
	"encoding/hex"
	"encoding/json"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DiskFailureLog is the last persistence resort. When the database rejects
// a payload and the quarantine insert fails too, the raw bytes land here as
// one JSON line per failure. Record never returns an error: the payload is
// additionally written hex-encoded to the structured log, so even an
// unwritable disk leaves the operator one copy to replay from.
type DiskFailureLog struct {
	mu   sync.Mutex
	path string
	log  *zap.Logger
}

func NewDiskFailureLog(path string, log *zap.Logger) *DiskFailureLog {
	return &DiskFailureLog{path: path, log: log}
}

type diskFailureLine struct {
	Ts         string `json:"ts"`
	Reason     string `json:"reason"`
	PayloadHex string `json:"payload_hex"`
}

// Record appends the failure to the log file and mirrors it into the
// structured log. File errors are logged and swallowed.
func (d *DiskFailureLog) Record(reason string, raw []byte) {
	line := diskFailureLine{
		Ts:         time.Now().UTC().Format(time.RFC3339Nano),
		Reason:     reason,
		PayloadHex: hex.EncodeToString(raw),
	}

	d.log.Error("CRITICAL: payload unrecoverable by database, writing to disk failure log",
		zap.String("reason", reason),
		zap.String("payload_hex", line.PayloadHex),
	)

	buf, err := json.Marshal(line)
	if err != nil {
		d.log.Error("failed to marshal disk failure line", zap.Error(err))
		return
	}
	buf = append(buf, '\n')

	d.mu.Lock()
	defer d.mu.Unlock()

	f, err := os.OpenFile(d.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		d.log.Error("failed to open disk failure log", zap.String("path", d.path), zap.Error(err))
		return
	}
	defer f.Close()

	if _, err := f.Write(buf); err != nil {
		d.log.Error("failed to append to disk failure log", zap.String("path", d.path), zap.Error(err))
	}
}
