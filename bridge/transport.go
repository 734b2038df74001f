package bridge

import (
	"encoding/json"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ErrUnavailable reports that the worker-side endpoint vanished before a
// response arrived; the caller observes channel closure, never silence.
var ErrUnavailable = errors.New("orchestrator unavailable: channel closed")

// envelope is one in-flight call: a marshalled request paired with the
// channel its single response must arrive on.
type envelope struct {
	payload []byte
	reply   chan []byte
}

// pipe is the shared state of one connected endpoint pair.
type pipe struct {
	calls chan *envelope
	done  chan struct{}
	once  sync.Once
}

func (p *pipe) close() {
	p.once.Do(func() { close(p.done) })
}

// Client is the caller-side endpoint of the channel.
type Client struct {
	p *pipe
}

// Worker is the worker-side endpoint of the channel.
type Worker struct {
	// Log receives one entry per served request.
	Log *logrus.Logger

	p *pipe
}

// Pipe returns a connected caller/worker endpoint pair. Messages cross the
// pipe as marshalled bytes, so each side owns an independent copy of every
// payload, mirroring the structured-clone semantics of the real boundary.
func Pipe() (*Client, *Worker) {
	p := &pipe{
		calls: make(chan *envelope),
		done:  make(chan struct{}),
	}
	return &Client{p: p}, &Worker{p: p, Log: logrus.StandardLogger()}
}

// Call sends one request and blocks until its response arrives or the
// channel is torn down. There is no timeout: absence of a response is only
// ever signalled by closure, which surfaces as ErrUnavailable.
//
// Arguments:
//   - req: The request to deliver.
//
// Returns:
//   - *Response: The worker's response, success or error payload.
//   - error: ErrUnavailable if the worker endpoint is gone, or an encoding
//     failure.
func (c *Client) Call(req *Request) (*Response, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "encoding request")
	}

	env := &envelope{payload: payload, reply: make(chan []byte, 1)}
	select {
	case c.p.calls <- env:
	case <-c.p.done:
		return nil, ErrUnavailable
	}

	select {
	case raw := <-env.reply:
		var resp Response
		if err := json.Unmarshal(raw, &resp); err != nil {
			return nil, errors.Wrap(err, "decoding response")
		}
		return &resp, nil
	case <-c.p.done:
		return nil, ErrUnavailable
	}
}

// Close tears down the channel from the caller side.
func (c *Client) Close() { c.p.close() }

// Serve handles calls against the orchestrator until Close, producing
// exactly one response per request.
//
// Arguments:
//   - o: The orchestrator answering requests.
func (w *Worker) Serve(o *Orchestrator) {
	for {
		select {
		case env := <-w.p.calls:
			env.reply <- w.handle(env.payload, o)
		case <-w.p.done:
			return
		}
	}
}

// Close tears down the channel from the worker side; callers blocked in
// Call observe ErrUnavailable.
func (w *Worker) Close() { w.p.close() }

// handle unmarshals one request, runs it and marshals the response. A
// payload that does not decode is a malformed request and answered as such.
func (w *Worker) handle(payload []byte, o *Orchestrator) []byte {
	var resp *Response

	var req Request
	if err := json.Unmarshal(payload, &req); err != nil {
		resp = errorResponse(ErrorKindShapeMismatch, errors.Wrap(err, "malformed request payload"))
	} else {
		resp = o.Run(&req)
	}

	if resp.Error != nil {
		w.Log.WithFields(logrus.Fields{
			"kind":    resp.Error.Kind,
			"message": resp.Error.Message,
		}).Warn("inference request failed")
	} else {
		w.Log.WithFields(logrus.Fields{
			"output_length": resp.OutputLength,
			"output_dims":   resp.OutputDims,
		}).Info("inference request served")
	}

	raw, err := json.Marshal(resp)
	if err != nil {
		// A response that cannot be encoded still must answer the call.
		raw = []byte(`{"error":{"kind":"inference","message":"failed to encode response"}}`)
	}
	return raw
}
