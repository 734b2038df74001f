package bridge

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/lens-ai/go-detect/inference"
)

// ErrShapeMismatch reports a request whose tensor length disagrees with the
// product of its dims.
var ErrShapeMismatch = errors.New("tensor length does not match dims product")

// Orchestrator is the worker-side endpoint: it validates a request, gates
// it on the session manager, runs a single forward pass and summarizes the
// first declared output. Postprocessing of the raw output is deliberately
// left to a later stage.
type Orchestrator struct {
	manager *inference.Manager
	// inputName binds the request tensor; empty falls back to the
	// session's first declared input.
	inputName string
}

// NewOrchestrator creates an orchestrator over the given session manager.
//
// Arguments:
//   - manager: The session manager gating inference.
//   - inputName: The model input to bind the request tensor to; empty uses
//     the session's first declared input.
//
// Returns:
//   - *Orchestrator: The orchestrator.
func NewOrchestrator(manager *inference.Manager, inputName string) *Orchestrator {
	return &Orchestrator{manager: manager, inputName: inputName}
}

// Run executes one request and always produces a response: every failure
// is converted into an error payload rather than allowed to escape.
//
// Arguments:
//   - req: The inference request.
//
// Returns:
//   - *Response: The output summary, or the failure as payload.
func (o *Orchestrator) Run(req *Request) *Response {
	if err := validateShape(req); err != nil {
		return errorResponse(ErrorKindShapeMismatch, err)
	}

	session, err := o.manager.Session()
	if err != nil {
		return errorResponse(ErrorKindModelNotReady, err)
	}

	name := o.inputName
	if name == "" {
		names := session.InputNames()
		if len(names) == 0 {
			return errorResponse(ErrorKindInference, errors.New("session declares no inputs"))
		}
		name = names[0]
	}

	outputs, err := session.Run(map[string]*inference.Tensor{
		name: {Data: req.Tensor, Dims: req.Dims},
	})
	if err != nil {
		return errorResponse(ErrorKindInference, err)
	}

	outputNames := session.OutputNames()
	if len(outputNames) == 0 {
		return errorResponse(ErrorKindInference, errors.New("session declares no outputs"))
	}
	first, ok := outputs[outputNames[0]]
	if !ok {
		return errorResponse(ErrorKindInference, errors.Errorf("output %q missing from results", outputNames[0]))
	}

	return &Response{
		OutputLength: len(first.Data),
		OutputDims:   first.Dims,
	}
}

// validateShape checks the tensor length against the dims product before
// anything touches the engine.
func validateShape(req *Request) error {
	if len(req.Dims) == 0 {
		return errors.Wrap(ErrShapeMismatch, "empty dims")
	}
	shape := make(tensor.Shape, len(req.Dims))
	for i, d := range req.Dims {
		if d <= 0 {
			return errors.Wrapf(ErrShapeMismatch, "dim %d = %d", i, d)
		}
		shape[i] = int(d)
	}
	if want := shape.TotalSize(); len(req.Tensor) != want {
		return errors.Wrapf(ErrShapeMismatch, "have %d values, dims want %d", len(req.Tensor), want)
	}
	return nil
}

func errorResponse(kind ErrorKind, err error) *Response {
	return &Response{Error: &ErrorInfo{Kind: kind, Message: err.Error()}}
}
