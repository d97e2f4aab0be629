package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neorisk-server/internal/conversation"
	"github.com/neorisk-server/internal/domain"
	"github.com/neorisk-server/internal/riskconfig"
	"github.com/neorisk-server/internal/service"
)

func newTestServer(t *testing.T) (*Server, *test.Hook) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	cfg, err := riskconfig.LoadDefault()
	require.NoError(t, err)

	assessor := service.NewAssessmentService(cfg, logger)
	shell := conversation.NewShell(assessor, conversation.NewMemorySessionStore(10, 0), logger)
	return NewServer(domain.MCPConfig{}, assessor, shell, logger), hook
}

func goldenParams() AssessParams {
	return AssessParams{PH: 7.25, Age: 2, Apgar: 5, Weight: 1800, PaO2: 4.8, Malformations: 0, Intubation: 1}
}

func contentText(t *testing.T, result *mcp.CallToolResult, i int) string {
	t.Helper()
	require.Greater(t, len(result.Content), i)
	text, ok := result.Content[i].(*mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestNewServer_Defaults(t *testing.T) {
	server, _ := newTestServer(t)

	assert.Equal(t, "neorisk", server.config.ServerName)
	assert.Equal(t, "1.0.0", server.config.ServerVersion)
	assert.NotNil(t, server.MCPServer())
}

func TestAssessTransportRisk(t *testing.T) {
	server, _ := newTestServer(t)

	result, out, err := server.handleAssessTransportRisk(context.Background(), nil, goldenParams())
	require.NoError(t, err)
	assert.Nil(t, out)
	assert.False(t, result.IsError)

	assert.Contains(t, contentText(t, result, 0), "Total score: 16 of 40")

	var payload domain.AssessmentResult
	require.NoError(t, json.Unmarshal([]byte(contentText(t, result, 1)), &payload))
	assert.Equal(t, 16, payload.Score)
	assert.Equal(t, "High risk", payload.RiskLevel.Diagnosis)
}

func TestAssessTransportRisk_OutOfRange(t *testing.T) {
	server, hook := newTestServer(t)
	params := goldenParams()
	params.PH = 8.1

	result, _, err := server.handleAssessTransportRisk(context.Background(), nil, params)
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, contentText(t, result, 0), "out of acceptable range")

	for _, entry := range hook.AllEntries() {
		assert.NotEqual(t, logrus.ErrorLevel, entry.Level, "input errors are not logged as errors")
	}
}

func TestScoreParameter(t *testing.T) {
	server, _ := newTestServer(t)

	tests := []struct {
		name    string
		params  ScoreParameterParams
		isError bool
		text    string
	}{
		{"boundary", ScoreParameterParams{Parameter: "ph", Value: 7.2}, false, "Blood pH 7.20 pH"},
		{"binary", ScoreParameterParams{Parameter: "intubation", Value: 1}, false, "+3 points"},
		{"unknown", ScoreParameterParams{Parameter: "lactate", Value: 2}, true, "unknown parameter"},
		{"precision", ScoreParameterParams{Parameter: "apgar", Value: 5.5}, true, "whole number"},
		{"binary not 0/1", ScoreParameterParams{Parameter: "malformations", Value: 2}, true, "0 or 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, _, err := server.handleScoreParameter(context.Background(), nil, tt.params)
			require.NoError(t, err)
			assert.Equal(t, tt.isError, result.IsError)
			assert.Contains(t, contentText(t, result, 0), tt.text)
		})
	}
}

func TestClassifyScore(t *testing.T) {
	server, _ := newTestServer(t)

	result, _, err := server.handleClassifyScore(context.Background(), nil, ClassifyScoreParams{Score: 16})
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Contains(t, contentText(t, result, 0), "High risk")

	result, _, err = server.handleClassifyScore(context.Background(), nil, ClassifyScoreParams{Score: 41})
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestListParameters(t *testing.T) {
	server, _ := newTestServer(t)

	result, _, err := server.handleListParameters(context.Background(), nil, ListParametersParams{})
	require.NoError(t, err)

	var listing ParameterListing
	require.NoError(t, json.Unmarshal([]byte(contentText(t, result, 1)), &listing))
	assert.Equal(t, 40, listing.MaxScore)
	require.Len(t, listing.Parameters, domain.ParameterCount)
	assert.Equal(t, domain.ParamPH, listing.Parameters[0].Key)
	assert.Equal(t, domain.ParamIntubation, listing.Parameters[6].Key)
}

func TestChatMessage(t *testing.T) {
	server, _ := newTestServer(t)
	ctx := context.Background()

	result, _, err := server.handleChatMessage(ctx, nil, ChatMessageParams{ChatID: "c1", Text: "/start"})
	require.NoError(t, err)
	assert.Contains(t, contentText(t, result, 0), "Welcome")

	result, _, err = server.handleChatMessage(ctx, nil, ChatMessageParams{ChatID: "c1", Text: "7.25, 2, 5, 1800, 4.8, 0, 1"})
	require.NoError(t, err)

	var reply conversation.Reply
	require.NoError(t, json.Unmarshal([]byte(contentText(t, result, 1)), &reply))
	assert.True(t, reply.Complete)

	result, _, err = server.handleChatMessage(ctx, nil, ChatMessageParams{Text: "/start"})
	require.NoError(t, err)
	assert.True(t, result.IsError)
}
