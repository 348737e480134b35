package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"rhystmorgan/zterm/internal/logging"
	"rhystmorgan/zterm/internal/send"
)

const (
	defaultBatchSize     = 10
	defaultFlushInterval = time.Minute
)

// SubmissionAuditor appends a JSON line per submission event to a dated
// file. It implements send.Observer.
type SubmissionAuditor struct {
	logFile       string
	session       string
	batchSize     int
	flushInterval time.Duration
	batchMu       sync.Mutex
	batchLogs     []AuditLog

	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

var _ send.Observer = (*SubmissionAuditor)(nil)

// NewSubmissionAuditor creates a new SubmissionAuditor writing under logDir
func NewSubmissionAuditor(logDir string) (*SubmissionAuditor, error) {
	return newSubmissionAuditor(logDir, defaultFlushInterval)
}

func newSubmissionAuditor(logDir string, flushInterval time.Duration) (*SubmissionAuditor, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create audit log directory: %w", err)
	}

	now := time.Now()
	logFile := filepath.Join(logDir, fmt.Sprintf("submissions_%s.log", now.Format("2006-01-02")))

	auditor := &SubmissionAuditor{
		logFile:       logFile,
		session:       fmt.Sprintf("%d-%s", os.Getpid(), now.Format("150405.000000")),
		batchSize:     defaultBatchSize,
		flushInterval: flushInterval,
		batchLogs:     make([]AuditLog, 0, defaultBatchSize),
		done:          make(chan struct{}),
	}

	auditor.wg.Add(1)
	go auditor.flushLoop()

	return auditor, nil
}

// flushLoop flushes periodically if the batch never fills.
func (a *SubmissionAuditor) flushLoop() {
	defer a.wg.Done()

	ticker := time.NewTicker(a.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-a.done:
			return
		case <-ticker.C:
			if err := a.Flush(); err != nil {
				logging.Warn("Audit flush failed", zap.Error(err))
			}
		}
	}
}

// Path returns the file entries are written to.
func (a *SubmissionAuditor) Path() string {
	return a.logFile
}

// Session identifies this run. Submission ids restart at 1 on every run, so
// entries are told apart by session.
func (a *SubmissionAuditor) Session() string {
	return a.session
}

func (a *SubmissionAuditor) SubmissionDispatched(sub send.Submission) {
	a.record(a.newEntry(AuditActionDispatch, sub))
}

func (a *SubmissionAuditor) SubmissionResolved(sub send.Submission, outcome send.Outcome) {
	if outcome.Succeeded() {
		entry := a.newEntry(AuditActionSuccess, sub)
		entry.TxID = outcome.TxID
		a.record(entry)
		return
	}

	entry := a.newEntry(AuditActionFailure, sub)
	entry.Error = send.FailureMessage(outcome.Err)
	if outcome.Err != nil && outcome.Err.Error() != entry.Error {
		entry.Details = map[string]interface{}{"cause": outcome.Err.Error()}
	}
	a.record(entry)
}

func (a *SubmissionAuditor) newEntry(action AuditAction, sub send.Submission) AuditLog {
	now := time.Now()
	return AuditLog{
		ID:           fmt.Sprintf("audit_%s_%d_%s", a.session, sub.ID, action),
		Session:      a.session,
		SubmissionID: sub.ID,
		Action:       action,
		Timestamp:    now,
		Address:      sub.Address,
		Category:     sub.Category.String(),
		Amount:       sub.Amount.String(),
		Fee:          sub.Fee.String(),
		HasMemo:      sub.Memo != nil,
	}
}

func (a *SubmissionAuditor) record(entry AuditLog) {
	a.batchMu.Lock()
	a.batchLogs = append(a.batchLogs, entry)
	full := len(a.batchLogs) >= a.batchSize
	a.batchMu.Unlock()

	if full {
		if err := a.Flush(); err != nil {
			logging.Warn("Audit flush failed", zap.Error(err))
		}
	}
}

// Flush writes all pending audit logs to storage
func (a *SubmissionAuditor) Flush() error {
	a.batchMu.Lock()
	if len(a.batchLogs) == 0 {
		a.batchMu.Unlock()
		return nil
	}

	logsToFlush := make([]AuditLog, len(a.batchLogs))
	copy(logsToFlush, a.batchLogs)
	a.batchLogs = a.batchLogs[:0]
	a.batchMu.Unlock()

	file, err := os.OpenFile(a.logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open audit log file: %w", err)
	}
	defer file.Close()

	for _, log := range logsToFlush {
		logJSON, err := json.Marshal(log)
		if err != nil {
			return fmt.Errorf("failed to marshal audit log: %w", err)
		}

		if _, err := file.Write(append(logJSON, '\n')); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
	}

	return nil
}

// History returns every entry this run recorded for a submission, oldest first.
func (a *SubmissionAuditor) History(submissionID uint64) ([]AuditLog, error) {
	var logs []AuditLog

	if err := a.Flush(); err != nil {
		return nil, err
	}

	file, err := os.Open(a.logFile)
	if err != nil {
		if os.IsNotExist(err) {
			return logs, nil
		}
		return nil, fmt.Errorf("failed to open audit log file: %w", err)
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	for {
		var log AuditLog
		if err := decoder.Decode(&log); err != nil {
			break
		}

		if log.Session == a.session && log.SubmissionID == submissionID {
			logs = append(logs, log)
		}
	}

	return logs, nil
}

// Close stops the periodic flush and writes any pending logs
func (a *SubmissionAuditor) Close() error {
	a.closeOnce.Do(func() {
		close(a.done)
		a.wg.Wait()
	})
	return a.Flush()
}
