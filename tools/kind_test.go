package tools_test

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/gptbridge/errcode"
	"github.com/effective-security/gptbridge/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	for _, k := range tools.AllKinds {
		got, err := tools.ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}

	_, err := tools.ParseKind("chatgpt_unknown")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errcode.ErrMethodNotFound))
	assert.Equal(t, "Unknown tool: chatgpt_unknown", err.Error())
}

func TestTemperature(t *testing.T) {
	assert.Equal(t, 0.3, tools.KindResearch.Temperature())
	assert.Equal(t, 0.2, tools.KindAnalyze.Temperature())
	assert.Equal(t, 0.4, tools.KindCollaborate.Temperature())
	assert.Equal(t, 0.3, tools.KindGetLatestInfo.Temperature())
}
