package output

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strandkit/strand/pkg/models"
	"github.com/strandkit/strand/pkg/protocol"
)

func TestOutputNode_DelegatesToAdapter(t *testing.T) {
	var gotConfig map[string]any

	adapters := protocol.AdapterMap{
		models.NodeTypeEmail: protocol.AdapterFunc(
			func(ctx context.Context, config map[string]any, input *models.Envelope) (map[string]any, error) {
				gotConfig = config
				return map[string]any{"message_id": "m-1"}, nil
			}),
	}

	node, err := NewOutputNode("notify", models.NodeTypeEmail, map[string]any{"to": "ops@example.com"})
	require.NoError(t, err)

	result, err := node.Execute(context.Background(),
		protocol.ExecutionContext{Adapters: adapters},
		models.NewEnvelope("run-1", map[string]any{"amount": 5}))

	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", gotConfig["to"])
	assert.Equal(t, "m-1", result.Envelope.Data["message_id"])
}

func TestOutputNode_AdapterErrorIsNodeFailure(t *testing.T) {
	adapters := protocol.AdapterMap{
		models.NodeTypeSlack: protocol.AdapterFunc(
			func(ctx context.Context, config map[string]any, input *models.Envelope) (map[string]any, error) {
				return nil, errors.New("channel_not_found")
			}),
	}

	node, err := NewOutputNode("post", models.NodeTypeSlack, nil)
	require.NoError(t, err)

	_, err = node.Execute(context.Background(),
		protocol.ExecutionContext{Adapters: adapters},
		models.NewEnvelope("run-1", nil))

	require.Error(t, err)

	var engineErr *models.EngineError
	require.ErrorAs(t, err, &engineErr)
	assert.Equal(t, models.ErrCodeAdapter, engineErr.Code)
	assert.Equal(t, "post", engineErr.NodeID)
}

func TestOutputNode_MissingAdapter(t *testing.T) {
	node, err := NewOutputNode("write", models.NodeTypeFileOutput, nil)
	require.NoError(t, err)

	_, err = node.Execute(context.Background(),
		protocol.ExecutionContext{Adapters: protocol.AdapterMap{}},
		models.NewEnvelope("run-1", nil))

	require.Error(t, err)

	var engineErr *models.EngineError
	require.ErrorAs(t, err, &engineErr)
	assert.Equal(t, models.ErrCodeAdapter, engineErr.Code)
}
