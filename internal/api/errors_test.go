package api

import (
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNotFoundError(t *testing.T) {
	err := NewServerNotFoundError("filesystem")
	assert.Equal(t, "server filesystem not found", err.Error())
	assert.True(t, IsNotFound(fmt.Errorf("lookup: %w", err)))
	assert.False(t, IsNotFound(errors.New("other")))

	assert.Equal(t, "server alpha is not running", NewProcessNotFoundError("alpha").Error())
	assert.Equal(t, "profile work not found", NewProfileNotFoundError("work").Error())
}

func TestStreamClosed(t *testing.T) {
	err := fmt.Errorf("initialize: %w", &StreamError{Op: "read", Err: ErrStreamClosed})
	assert.True(t, IsStreamClosed(err))
	assert.False(t, IsStreamClosed(&StreamError{Op: "read", Err: io.ErrUnexpectedEOF}))
}

func TestTimeoutError(t *testing.T) {
	byDeadline := &TimeoutError{Phase: "initialize", After: 15 * time.Second, Attempts: 3}
	assert.Contains(t, byDeadline.Error(), "15s")
	assert.True(t, IsTimeout(byDeadline))

	byBudget := &TimeoutError{Phase: "tools/list", Attempts: 20}
	assert.Equal(t, "no tools/list response within 20 lines", byBudget.Error())
}

func TestSpawnErrorUnwrap(t *testing.T) {
	cause := errors.New("executable file not found")
	err := &SpawnError{ServerID: "x", Command: "nope", Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.True(t, IsSpawnError(fmt.Errorf("wrapped: %w", err)))

	missing := &SpawnError{ServerID: "x", Command: "npx", Err: &MissingSecretError{ServerID: "x", Key: "API_KEY"}}
	var mse *MissingSecretError
	assert.ErrorAs(t, missing, &mse)
	assert.Equal(t, "API_KEY", mse.Key)
}

func TestProtocolError(t *testing.T) {
	err := &ProtocolError{Method: "tools/call", Code: -32601, Message: "Method not found"}
	assert.Equal(t, "tools/call failed: Method not found (code -32601)", err.Error())
	assert.True(t, IsProtocolError(err))
	assert.False(t, IsProtocolError(&ParseError{Method: "tools/call", Err: errors.New("bad")}))
}
