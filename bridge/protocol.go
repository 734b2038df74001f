// Package bridge - The request/response protocol crossing the context
// boundary between the short-lived caller side and the persistent worker
// holding the loaded model.
package bridge

// ErrorKind classifies a response-level failure.
type ErrorKind string

const (
	// ErrorKindShapeMismatch marks a malformed request payload; a caller
	// error, not retried.
	ErrorKindShapeMismatch ErrorKind = "shape_mismatch"
	// ErrorKindModelNotReady marks inference requested before or after a
	// successful load; surfaced directly, not retried.
	ErrorKindModelNotReady ErrorKind = "model_not_ready"
	// ErrorKindInference marks a failure inside the forward pass itself.
	ErrorKindInference ErrorKind = "inference"
)

// ErrorInfo carries a failure across the boundary as an ordinary payload,
// so the caller always receives a response rather than a transport crash.
type ErrorInfo struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// Request is the payload of one inference call. It exists only for the
// duration of one exchange and crosses the boundary by value.
type Request struct {
	// Tensor holds the flat channel-planar float32 values.
	Tensor []float32 `json:"tensor"`
	// Dims is the tensor shape; its product must equal len(Tensor).
	Dims []int64 `json:"dims"`
}

// Response summarizes one forward pass, or carries the failure that
// replaced it. Exactly one Response answers each Request.
type Response struct {
	// OutputLength is the first declared output's element count.
	OutputLength int `json:"output_length,omitempty"`
	// OutputDims is the first declared output's shape.
	OutputDims []int64 `json:"output_dims,omitempty"`
	// Error is set instead of the summary fields on failure.
	Error *ErrorInfo `json:"error,omitempty"`
}
