// Package audit records state-changing actions of the conversion service.
package audit

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/fentz26/playlistdl/internal/models"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Writer persists events. *store.Store implements it.
type Writer interface {
	WriteEvent(action, inputsHash, outcome, jobID, details string) (*models.Event, error)
}

// Recorder writes audit events. A failed write is logged, never returned to the
// action being audited.
type Recorder struct {
	w      Writer
	logger *zap.Logger
}

// NewRecorder creates a recorder backed by w.
func NewRecorder(w Writer, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{w: w, logger: logger}
}

// Record writes an event for action. inputs are hashed, not stored.
func (r *Recorder) Record(action string, inputs interface{}, outcome, jobID, details string) *models.Event {
	if r == nil {
		return nil
	}
	ev, err := r.w.WriteEvent(action, HashInputs(inputs), outcome, jobID, details)
	if err != nil {
		r.logger.Error("audit write failed", zap.String("action", action), zap.String("job_id", jobID), zap.Error(err))
		return nil
	}
	return ev
}

// HashInputs returns the SHA256 of the JSON encoding of inputs.
func HashInputs(inputs interface{}) string {
	data, err := json.Marshal(inputs)
	if err != nil {
		return "hash_error"
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
