package rpcerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCallError_Error(t *testing.T) {
	assert.Equal(t, "call failed: timedout", (&CallError{Reason: ReasonTimedOut}).Error())
	assert.Equal(t, "call failed: boom", (&CallError{Payload: "boom"}).Error())
}

func TestCallError_Is(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &CallError{Reason: ReasonCancelled})

	assert.ErrorIs(t, err, &CallError{Reason: ReasonCancelled})
	assert.NotErrorIs(t, err, &CallError{Reason: ReasonTimedOut})
	assert.NotErrorIs(t, err, errors.New("cancelled"))
}

func TestWirePayload(t *testing.T) {
	payload := map[string]any{"code": 7}

	assert.Equal(t, payload, WirePayload(&CallError{Payload: payload}))
	assert.Equal(t, ReasonTimedOut, WirePayload(&CallError{Reason: ReasonTimedOut}))
	assert.Equal(t, "plain failure", WirePayload(errors.New("plain failure")))
}
