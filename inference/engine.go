// Package inference - Model session lifecycle and the engine boundary.
package inference

// Tensor is a named-tensor value crossing the engine boundary.
type Tensor struct {
	// Data holds the flat float32 values.
	Data []float32
	// Dims is the tensor shape.
	Dims []int64
}

// SessionOptions configures a session load. The execution configuration
// itself is fixed (see ORTEngine): single-threaded, full graph optimization,
// no CPU memory arena.
type SessionOptions struct {
	// RuntimeLibPath points at the native runtime shared library; empty
	// selects the platform default.
	RuntimeLibPath string
}

// SessionHandle is a loaded, ready-to-execute model instance.
type SessionHandle interface {
	// Run executes a single forward pass over the named inputs and returns
	// the named outputs. Transient native resources are released before Run
	// returns, on success and failure alike.
	Run(inputs map[string]*Tensor) (map[string]*Tensor, error)
	// InputNames returns the model's declared input names in graph order.
	InputNames() []string
	// OutputNames returns the model's declared output names in graph order.
	OutputNames() []string
	// Close releases the session.
	Close() error
}

// Engine loads model assets into runnable sessions. It is the external
// inference-engine capability; the rest of the module treats it as a black
// box.
type Engine interface {
	Load(modelPath string, opts SessionOptions) (SessionHandle, error)
}
