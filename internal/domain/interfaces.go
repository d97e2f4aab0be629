package domain

import (
	"context"
)

// ConfigManager provides application configuration
type ConfigManager interface {
	GetConfig() *Config
	GetServerConfig() *ServerConfig
	Validate() error
}

// Assessor runs a complete assessment over seven validated values.
type Assessor interface {
	Assess(ctx context.Context, input AssessmentInput) (*AssessmentResult, error)
	ScoreParameter(key ParameterKey, value float64) (int, Range, error)
	Classify(score int) (RiskLevel, error)
	Config() *RiskConfig
}
