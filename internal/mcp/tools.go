package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/neorisk-server/internal/domain"
	"github.com/neorisk-server/internal/service"
)

// AssessParams defines parameters for the assess_transport_risk tool
type AssessParams struct {
	PH            float64 `json:"ph" jsonschema:"arterial blood pH"`
	Age           float64 `json:"age" jsonschema:"age in hours"`
	Apgar         float64 `json:"apgar" jsonschema:"Apgar score"`
	Weight        float64 `json:"weight" jsonschema:"birth weight in grams"`
	PaO2          float64 `json:"pao2" jsonschema:"arterial oxygen partial pressure in kPa"`
	Malformations float64 `json:"malformations" jsonschema:"1 if congenital malformations are present and 0 otherwise"`
	Intubation    float64 `json:"intubation" jsonschema:"1 if the infant is intubated and 0 otherwise"`
}

// Input converts the tool parameters into an assessment input
func (p AssessParams) Input() domain.AssessmentInput {
	return domain.AssessmentInput{
		domain.ParamPH:            p.PH,
		domain.ParamAge:           p.Age,
		domain.ParamApgar:         p.Apgar,
		domain.ParamWeight:        p.Weight,
		domain.ParamPaO2:          p.PaO2,
		domain.ParamMalformations: p.Malformations,
		domain.ParamIntubation:    p.Intubation,
	}
}

// ScoreParameterParams defines parameters for the score_parameter tool
type ScoreParameterParams struct {
	Parameter string  `json:"parameter" jsonschema:"parameter key: ph, age, apgar, weight, pao2, malformations or intubation"`
	Value     float64 `json:"value" jsonschema:"measured value"`
}

// ScoreParameterResult is the structured score_parameter answer
type ScoreParameterResult struct {
	Parameter string       `json:"parameter"`
	Label     string       `json:"label"`
	Value     float64      `json:"value"`
	Score     int          `json:"score"`
	Range     domain.Range `json:"range"`
}

// ClassifyScoreParams defines parameters for the classify_score tool
type ClassifyScoreParams struct {
	Score int `json:"score" jsonschema:"total risk score"`
}

// ListParametersParams takes no arguments
type ListParametersParams struct{}

// ParameterListing describes the configured parameters
type ParameterListing struct {
	Version    string                  `json:"version"`
	MaxScore   int                     `json:"max_score"`
	Parameters []*domain.ParameterSpec `json:"parameters"`
	RiskLevels []domain.RiskLevel      `json:"risk_levels"`
}

// ChatMessageParams defines parameters for the chat_message tool
type ChatMessageParams struct {
	ChatID string `json:"chat_id" jsonschema:"conversation identifier chosen by the caller"`
	Text   string `json:"text" jsonschema:"message text such as /start or a parameter value"`
}

func (s *Server) handleAssessTransportRisk(ctx context.Context, req *mcp.CallToolRequest, params AssessParams) (*mcp.CallToolResult, any, error) {
	logger := s.toolLogger(ToolAssessTransportRisk)
	start := time.Now()

	result, err := s.assessor.Assess(ctx, params.Input())
	if err != nil {
		return s.errorResult(logger, "assessment rejected", err), nil, nil
	}

	logger.WithFields(logrus.Fields{
		"score":           result.Score,
		"risk_level":      result.RiskLevel.Diagnosis,
		"processing_time": time.Since(start).String(),
	}).Info("Tool call completed")

	return textResult(result.Report, result)
}

func (s *Server) handleScoreParameter(ctx context.Context, req *mcp.CallToolRequest, params ScoreParameterParams) (*mcp.CallToolResult, any, error) {
	logger := s.toolLogger(ToolScoreParameter)
	key := domain.ParameterKey(params.Parameter)

	spec, err := s.assessor.Config().Parameter(key)
	if err != nil {
		// a bad key from the client is input, not a broken table
		return s.errorResult(logger, fmt.Sprintf("unknown parameter %q", params.Parameter), nil), nil, nil
	}

	score, r, err := s.assessor.ScoreParameter(key, params.Value)
	if err != nil {
		return s.errorResult(logger, "value rejected", err), nil, nil
	}

	text := fmt.Sprintf("%s %s", spec.DisplayName(), service.FormatValue(params.Value, spec.Decimals))
	if spec.Unit != "" {
		text += " " + spec.Unit
	}
	if r.Comment != "" {
		text += ": " + r.Comment
	}
	text += fmt.Sprintf(" (%+d points)", score)

	logger.WithFields(logrus.Fields{"parameter": key, "score": score}).Debug("Tool call completed")

	return textResult(text, ScoreParameterResult{
		Parameter: string(key),
		Label:     spec.DisplayName(),
		Value:     params.Value,
		Score:     score,
		Range:     r,
	})
}

func (s *Server) handleClassifyScore(ctx context.Context, req *mcp.CallToolRequest, params ClassifyScoreParams) (*mcp.CallToolResult, any, error) {
	logger := s.toolLogger(ToolClassifyScore)

	level, err := s.assessor.Classify(params.Score)
	if err != nil {
		return s.errorResult(logger, "score cannot be classified", err), nil, nil
	}

	text := fmt.Sprintf("Score %d: %s", params.Score, level.Diagnosis)
	if level.Recommendation != "" {
		text += "\nRecommendation: " + level.Recommendation
	}
	return textResult(text, level)
}

func (s *Server) handleListParameters(ctx context.Context, req *mcp.CallToolRequest, _ ListParametersParams) (*mcp.CallToolResult, any, error) {
	cfg := s.assessor.Config()

	listing := ParameterListing{
		Version:    cfg.Version,
		MaxScore:   cfg.MaxScore(),
		RiskLevels: cfg.RiskLevels,
	}
	for _, key := range domain.ParameterOrder {
		spec, err := cfg.Parameter(key)
		if err != nil {
			return s.errorResult(s.toolLogger(ToolListParameters), "configuration incomplete", err), nil, nil
		}
		listing.Parameters = append(listing.Parameters, spec)
	}

	return textResult(fmt.Sprintf("%d parameters, maximum score %d", len(listing.Parameters), listing.MaxScore), listing)
}

func (s *Server) handleChatMessage(ctx context.Context, req *mcp.CallToolRequest, params ChatMessageParams) (*mcp.CallToolResult, any, error) {
	logger := s.toolLogger(ToolChatMessage).WithField("chat_id", params.ChatID)

	if params.ChatID == "" {
		return s.errorResult(logger, "chat_id is required", nil), nil, nil
	}

	reply, err := s.shell.HandleMessage(ctx, params.ChatID, params.Text)
	if err != nil {
		return s.errorResult(logger, reply.Text, err), nil, nil
	}
	return textResult(reply.Text, reply)
}

func (s *Server) toolLogger(tool string) *logrus.Entry {
	return s.logger.WithFields(logrus.Fields{
		"tool":           tool,
		"correlation_id": uuid.New().String(),
	})
}

// errorResult reports a failed call to the client as a tool error. Broken
// configuration is logged as an error, bad input only at debug level.
func (s *Server) errorResult(logger *logrus.Entry, message string, err error) *mcp.CallToolResult {
	text := "Error: " + message
	if err != nil {
		text += " - " + err.Error()
		if domain.IsConfigurationDefect(err) {
			logger.WithError(err).Error("Tool call failed on configuration defect")
		} else {
			logger.WithError(err).Debug("Tool call rejected")
		}
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
		IsError: true,
	}
}

// textResult returns the human readable text followed by the JSON payload.
func textResult(text string, payload any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode tool result: %w", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
			&mcp.TextContent{Text: string(data)},
		},
	}, nil, nil
}
