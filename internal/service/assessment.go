package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/neorisk-server/internal/domain"
)

const instrumentationName = "github.com/neorisk-server/internal/service"

// AssessmentService runs complete assessments: score every parameter, sum the
// total, compute the probability, classify and render the report.
type AssessmentService struct {
	config     *domain.RiskConfig
	engine     *ScoringEngine
	classifier *RiskClassifier
	logger     *logrus.Logger

	tracer      trace.Tracer
	assessments metric.Int64Counter
	scores      metric.Int64Histogram
	rejections  metric.Int64Counter
}

// NewAssessmentService creates an assessment service over a loaded configuration
func NewAssessmentService(config *domain.RiskConfig, logger *logrus.Logger) *AssessmentService {
	meter := otel.Meter(instrumentationName)
	assessments, _ := meter.Int64Counter("neorisk_assessments_total",
		metric.WithDescription("Completed assessments by risk level"))
	scores, _ := meter.Int64Histogram("neorisk_assessment_score",
		metric.WithDescription("Distribution of total risk scores"))
	rejections, _ := meter.Int64Counter("neorisk_assessment_rejections_total",
		metric.WithDescription("Assessments rejected before classification"))

	return &AssessmentService{
		config:      config,
		engine:      NewScoringEngine(config),
		classifier:  NewRiskClassifier(config.RiskLevels),
		logger:      logger,
		tracer:      otel.Tracer(instrumentationName),
		assessments: assessments,
		scores:      scores,
		rejections:  rejections,
	}
}

// Config returns the risk configuration
func (s *AssessmentService) Config() *domain.RiskConfig {
	return s.config
}

// Engine returns the underlying scoring engine
func (s *AssessmentService) Engine() *ScoringEngine {
	return s.engine
}

// Classifier returns the underlying risk classifier
func (s *AssessmentService) Classifier() *RiskClassifier {
	return s.classifier
}

// ScoreParameter validates a single value and resolves its range.
func (s *AssessmentService) ScoreParameter(key domain.ParameterKey, value float64) (int, domain.Range, error) {
	spec, err := s.config.Parameter(key)
	if err != nil {
		return 0, domain.Range{}, err
	}
	value, err = NormalizeValue(spec, value)
	if err != nil {
		return 0, domain.Range{}, err
	}
	return s.engine.ScoreParameter(key, value)
}

// Classify resolves a total score to its risk level.
func (s *AssessmentService) Classify(score int) (domain.RiskLevel, error) {
	return s.classifier.Classify(score)
}

// Assess performs the complete assessment workflow
func (s *AssessmentService) Assess(ctx context.Context, input domain.AssessmentInput) (*domain.AssessmentResult, error) {
	startTime := time.Now()

	ctx, span := s.tracer.Start(ctx, "assessment.assess",
		trace.WithAttributes(attribute.String("config_version", s.config.Version)))
	defer span.End()

	result, err := s.assess(input)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.rejections.Add(ctx, 1)
		s.logRejection(err)
		return nil, err
	}

	attrs := metric.WithAttributes(attribute.String("risk_level", result.RiskLevel.Diagnosis))
	s.assessments.Add(ctx, 1, attrs)
	s.scores.Record(ctx, int64(result.Score), attrs)
	span.SetAttributes(
		attribute.Int("score", result.Score),
		attribute.Float64("probability", result.Probability),
	)

	s.logger.WithFields(logrus.Fields{
		"score":           result.Score,
		"max_score":       result.MaxScore,
		"probability":     result.Probability,
		"risk_level":      result.RiskLevel.Diagnosis,
		"processing_time": time.Since(startTime),
	}).Info("Assessment completed")

	return result, nil
}

func (s *AssessmentService) assess(input domain.AssessmentInput) (*domain.AssessmentResult, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	normalized := make(domain.AssessmentInput, domain.ParameterCount)
	for _, key := range domain.ParameterOrder {
		spec, err := s.config.Parameter(key)
		if err != nil {
			return nil, err
		}
		value, err := NormalizeValue(spec, input[key])
		if err != nil {
			return nil, err
		}
		normalized[key] = value
	}
	input = normalized

	details, total, err := s.engine.ScoreDetails(input)
	if err != nil {
		return nil, err
	}

	probability, err := s.engine.MortalityProbability(input)
	if err != nil {
		return nil, fmt.Errorf("failed to compute mortality probability: %w", err)
	}

	level, err := s.classifier.Classify(total)
	if err != nil {
		return nil, err
	}

	maxScore := s.config.MaxScore()
	return &domain.AssessmentResult{
		Score:       total,
		MaxScore:    maxScore,
		Probability: probability,
		RiskLevel:   level,
		Details:     details,
		Report:      BuildReport(total, maxScore, probability, level, details),
	}, nil
}

// logRejection separates user input problems from configuration defects.
func (s *AssessmentService) logRejection(err error) {
	entry := s.logger.WithError(err)
	if domain.IsConfigurationDefect(err) {
		entry.Error("Assessment failed on configuration integrity")
		return
	}
	entry.Debug("Assessment rejected")
}
