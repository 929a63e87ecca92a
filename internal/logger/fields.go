package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	// FieldProvider is the structured log field key for the model backend name.
	FieldProvider = "backend_provider"
	// FieldModel is the structured log field key for the model identifier.
	FieldModel = "backend_model"
	// FieldRole tells embedding and generation backends apart.
	FieldRole = "backend_role"

	FieldCollection = "collection"
	FieldJob        = "job_id"
	FieldCandidate  = "candidate_id"
)

// StringField describes a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts the provided key/value pairs into zap fields, trimming
// whitespace and omitting entries with empty keys or values.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		if key == "" {
			continue
		}

		value := strings.TrimSpace(field.Value)
		if value == "" {
			continue
		}

		result = append(result, zap.String(key, value))
	}

	return result
}

// WithFields attaches the provided fields to the logger, defaulting to a
// no-op logger when nil.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// BackendFields describes a model backend. Empty values are ignored.
func BackendFields(role, provider, model string) []zap.Field {
	return StringFields(
		StringField{Key: FieldRole, Value: role},
		StringField{Key: FieldProvider, Value: provider},
		StringField{Key: FieldModel, Value: model},
	)
}

// WithBackend returns a logger for the named backend.
func WithBackend(logger *zap.Logger, role, provider, model string) *zap.Logger {
	return WithFields(logger, BackendFields(role, provider, model)...)
}

// MatchFields identifies a job and the candidate it was matched with.
func MatchFields(jobID, candidateID string) []zap.Field {
	return StringFields(
		StringField{Key: FieldJob, Value: jobID},
		StringField{Key: FieldCandidate, Value: candidateID},
	)
}
