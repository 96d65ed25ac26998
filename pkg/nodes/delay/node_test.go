package delay

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strandkit/strand/pkg/models"
	"github.com/strandkit/strand/pkg/protocol"
)

func TestNewDelayNode_Config(t *testing.T) {
	tests := []struct {
		name    string
		config  map[string]any
		wantErr bool
	}{
		{"valid", map[string]any{"duration": "100ms"}, false},
		{"missing duration", map[string]any{}, true},
		{"unparseable", map[string]any{"duration": "soon"}, true},
		{"negative", map[string]any{"duration": "-5s"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDelayNode("wait", tt.config)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDelayNode_PassesThrough(t *testing.T) {
	node, err := NewDelayNode("wait", map[string]any{"duration": "10ms"})
	require.NoError(t, err)

	input := models.NewEnvelope("run-1", map[string]any{"amount": 5})
	start := time.Now()

	result, err := node.Execute(context.Background(), protocol.ExecutionContext{}, input)

	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
	assert.Equal(t, input.Data, result.Envelope.Data)
}

func TestDelayNode_CancellationCutsWaitShort(t *testing.T) {
	node, err := NewDelayNode("wait", map[string]any{"duration": "10s"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err = node.Execute(ctx, protocol.ExecutionContext{},
		models.NewEnvelope("run-1", nil))

	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)

	var engineErr *models.EngineError
	require.ErrorAs(t, err, &engineErr)
	assert.Equal(t, models.ErrCodeCancelled, engineErr.Code)
}
