package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	// FieldProvider is the structured log field key for the AI provider name.
	FieldProvider = "ai_provider"
	// FieldModel is the structured log field key for the AI model identifier.
	FieldModel = "ai_model"

	FieldGoalID         = "goal_id"
	FieldAssignedGoalID = "assigned_goal_id"
	FieldInstanceID     = "instance_id"
	FieldEmployeeID     = "employee_id"
	FieldOperation      = "operation"
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

// WithFields safely attaches the provided fields to the logger, defaulting to
// a no-op logger when nil.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	logger = OrNop(logger)

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// CommonFields returns standard zap fields that describe the AI provider and model.
func CommonFields(provider, model string) []zap.Field {
	return StringFields(
		StringField{Key: FieldProvider, Value: provider},
		StringField{Key: FieldModel, Value: model},
	)
}

// WithCommonFields attaches the common AI fields to the provided logger.
func WithCommonFields(logger *zap.Logger, provider, model string) *zap.Logger {
	return WithFields(logger, CommonFields(provider, model)...)
}

// GoalRefs identifies the records a goal operation touches.
type GoalRefs struct {
	Goal       string
	Assignment string
	Instance   string
	Employee   string
}

// GoalFields converts the non-empty references into zap fields.
func GoalFields(refs GoalRefs) []zap.Field {
	return StringFields(
		StringField{Key: FieldGoalID, Value: refs.Goal},
		StringField{Key: FieldAssignedGoalID, Value: refs.Assignment},
		StringField{Key: FieldInstanceID, Value: refs.Instance},
		StringField{Key: FieldEmployeeID, Value: refs.Employee},
	)
}
