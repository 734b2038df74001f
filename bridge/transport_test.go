package bridge

import (
	"encoding/json"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lens-ai/go-detect/inference"
)

// quietLogger keeps served-request log lines out of test output.
func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func servedPipe(t *testing.T, o *Orchestrator) (*Client, *Worker) {
	t.Helper()
	client, worker := Pipe()
	worker.Log = quietLogger()
	go worker.Serve(o)
	t.Cleanup(worker.Close)
	return client, worker
}

// TestPipeRoundTrip validates one full request/response exchange through
// the marshalled channel.
func TestPipeRoundTrip(t *testing.T) {
	session := detectorSession()
	client, _ := servedPipe(t, NewOrchestrator(readyManager(t, session), ""))

	resp, err := client.Call(validRequest())

	require.NoError(t, err, "a served call should complete")
	require.Nil(t, resp.Error, "a valid request should succeed end to end")
	assert.Equal(t, 2100, resp.OutputLength, "the summary should cross the boundary intact")
	assert.Equal(t, []int64{1, 300, 7}, resp.OutputDims, "the dims should cross the boundary intact")
}

// TestPipeErrorAsPayload validates that worker-side failures arrive as
// response payloads, not transport errors.
func TestPipeErrorAsPayload(t *testing.T) {
	manager := inference.NewManager(&stubEngine{session: detectorSession()})
	client, _ := servedPipe(t, NewOrchestrator(manager, ""))

	resp, err := client.Call(validRequest())

	require.NoError(t, err, "the channel must stay open until the error response is produced")
	require.NotNil(t, resp.Error, "the failure should arrive as payload")
	assert.Equal(t, ErrorKindModelNotReady, resp.Error.Kind, "the unready state should be visible to the caller")
}

// TestPipeTransferByValue validates that the worker receives an
// independent copy of the payload.
func TestPipeTransferByValue(t *testing.T) {
	session := detectorSession()
	client, _ := servedPipe(t, NewOrchestrator(readyManager(t, session), ""))

	req := validRequest()
	req.Tensor[0] = 0.25

	_, err := client.Call(req)
	require.NoError(t, err, "the call should complete")

	// Mutating what the worker saw must not touch the caller's slice.
	got := session.gotInputs["images"]
	require.NotNil(t, got, "the worker should have received the tensor")
	got.Data[0] = 0.75
	assert.Equal(t, float32(0.25), req.Tensor[0], "the caller's tensor should be untouched by worker-side mutation")
}

// TestPipeUnavailableAfterClose validates that a torn-down worker surfaces
// as ErrUnavailable instead of leaving the caller hanging.
func TestPipeUnavailableAfterClose(t *testing.T) {
	session := detectorSession()
	client, worker := servedPipe(t, NewOrchestrator(readyManager(t, session), ""))

	worker.Close()

	_, err := client.Call(validRequest())
	assert.ErrorIs(t, err, ErrUnavailable, "a closed channel should report the orchestrator as unavailable")
}

// TestPipeUnservedWorker validates that closing an idle, never-served pipe
// releases a blocked caller.
func TestPipeUnservedWorker(t *testing.T) {
	client, worker := Pipe()

	done := make(chan error, 1)
	go func() {
		_, err := client.Call(validRequest())
		done <- err
	}()

	worker.Close()
	assert.ErrorIs(t, <-done, ErrUnavailable, "closure must release a caller waiting on an unserved pipe")
}

// TestWorkerHandleMalformedPayload validates that undecodable bytes are
// answered as a malformed-request payload, never dropped.
func TestWorkerHandleMalformedPayload(t *testing.T) {
	session := detectorSession()
	_, worker := Pipe()
	worker.Log = quietLogger()

	raw := worker.handle([]byte("{not json"), NewOrchestrator(readyManager(t, session), ""))

	resp := decodeResponse(t, raw)
	require.NotNil(t, resp.Error, "a malformed payload should be answered with an error")
	assert.Equal(t, ErrorKindShapeMismatch, resp.Error.Kind, "a malformed payload is a caller error")
}

func decodeResponse(t *testing.T, raw []byte) *Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(raw, &resp), "the worker should always emit a decodable response")
	return &resp
}
