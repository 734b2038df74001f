package inference

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

var (
	ortOnce    sync.Once
	ortInitErr error
)

// DefaultLibraryPath returns the ONNX Runtime shared library path for the
// current platform.
func DefaultLibraryPath() string {
	baseDir := "./lib/"
	libName := "onnxruntime"

	if runtime.GOOS == "windows" {
		return baseDir + libName + ".dll"
	}

	var ext string
	switch runtime.GOOS {
	case "darwin":
		ext = "dylib"
	case "linux":
		ext = "so"
	default:
		return baseDir + libName + "_amd64.so"
	}

	return fmt.Sprintf("%s%s_%s.%s", baseDir, libName, runtime.GOARCH, ext)
}

// initEnvironment initializes the native runtime once per process.
func initEnvironment(libPath string) error {
	ortOnce.Do(func() {
		if libPath == "" {
			libPath = DefaultLibraryPath()
		}
		ort.SetSharedLibraryPath(libPath)
		ortInitErr = ort.InitializeEnvironment()
	})
	return ortInitErr
}

// ORTEngine is the ONNX Runtime implementation of Engine.
type ORTEngine struct{}

// Load reads the model's declared input/output names and creates a session
// with the fixed execution configuration: intra- and inter-op parallelism
// of one, full graph optimization, and the CPU memory arena disabled to
// trade peak memory for simpler lifetime reasoning in a long-lived worker.
//
// Arguments:
//   - modelPath: Path to the ONNX model file.
//   - opts: Session options; only the runtime library path is consulted.
//
// Returns:
//   - SessionHandle: The loaded session.
//   - error: An error if environment setup, metadata reading or session
//     creation fails.
func (e *ORTEngine) Load(modelPath string, opts SessionOptions) (SessionHandle, error) {
	if err := initEnvironment(opts.RuntimeLibPath); err != nil {
		return nil, errors.Wrap(err, "initializing ONNX Runtime environment")
	}

	inputInfo, outputInfo, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, errors.Wrapf(err, "reading model metadata from %s", modelPath)
	}
	inputNames := make([]string, len(inputInfo))
	for i, info := range inputInfo {
		inputNames[i] = info.Name
	}
	outputNames := make([]string, len(outputInfo))
	for i, info := range outputInfo {
		outputNames[i] = info.Name
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, errors.Wrap(err, "creating session options")
	}
	defer options.Destroy()

	if err := options.SetIntraOpNumThreads(1); err != nil {
		return nil, errors.Wrap(err, "setting intra-op threads")
	}
	if err := options.SetInterOpNumThreads(1); err != nil {
		return nil, errors.Wrap(err, "setting inter-op threads")
	}
	if err := options.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableAll); err != nil {
		return nil, errors.Wrap(err, "setting graph optimization level")
	}
	if err := options.SetCpuMemArena(false); err != nil {
		return nil, errors.Wrap(err, "disabling CPU memory arena")
	}

	session, err := ort.NewDynamicAdvancedSession(modelPath, inputNames, outputNames, options)
	if err != nil {
		return nil, errors.Wrapf(err, "creating session for %s", modelPath)
	}

	return &ortSession{
		session:     session,
		inputNames:  inputNames,
		outputNames: outputNames,
	}, nil
}

// ortSession wraps a dynamic ONNX Runtime session.
type ortSession struct {
	session     *ort.DynamicAdvancedSession
	inputNames  []string
	outputNames []string
}

func (s *ortSession) InputNames() []string { return s.inputNames }

func (s *ortSession) OutputNames() []string { return s.outputNames }

// Run executes one forward pass. Input tensors are created for the call and
// destroyed before returning; output tensors allocated by the runtime are
// copied out and destroyed as well, so no native memory outlives the call.
func (s *ortSession) Run(inputs map[string]*Tensor) (map[string]*Tensor, error) {
	values := make([]ort.ArbitraryTensor, len(s.inputNames))
	defer func() {
		for _, v := range values {
			if v != nil {
				v.Destroy()
			}
		}
	}()

	for i, name := range s.inputNames {
		in, ok := inputs[name]
		if !ok {
			return nil, errors.Errorf("missing input tensor %q", name)
		}
		value, err := ort.NewTensor(ort.NewShape(in.Dims...), in.Data)
		if err != nil {
			return nil, errors.Wrapf(err, "creating input tensor %q", name)
		}
		values[i] = value
	}

	outputs := make([]ort.ArbitraryTensor, len(s.outputNames))
	defer func() {
		for _, o := range outputs {
			if o != nil {
				o.Destroy()
			}
		}
	}()

	if err := s.session.Run(values, outputs); err != nil {
		return nil, errors.Wrap(err, "running session")
	}

	results := make(map[string]*Tensor, len(outputs))
	for i, o := range outputs {
		value, ok := o.(*ort.Tensor[float32])
		if !ok {
			return nil, errors.Errorf("output %q is not a float32 tensor", s.outputNames[i])
		}
		shape := value.GetShape()
		dims := make([]int64, len(shape))
		copy(dims, shape)
		data := make([]float32, len(value.GetData()))
		copy(data, value.GetData())
		results[s.outputNames[i]] = &Tensor{Data: data, Dims: dims}
	}
	return results, nil
}

func (s *ortSession) Close() error {
	if s.session != nil {
		if err := s.session.Destroy(); err != nil {
			return errors.Wrap(err, "destroying session")
		}
		s.session = nil
	}
	return nil
}
