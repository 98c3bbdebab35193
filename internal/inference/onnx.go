package inference

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ortEnv guards process-wide ONNX Runtime initialization.
var ortEnv struct {
	once sync.Once
	err  error
}

// InitRuntime loads the ONNX Runtime shared library. Only the first call
// has any effect; later calls return the first call's result.
func InitRuntime(libPath string) error {
	ortEnv.once.Do(func() {
		ort.SetSharedLibraryPath(libPath)
		ortEnv.err = ort.InitializeEnvironment()
	})
	return ortEnv.err
}

// DefaultLibraryPath is where the runtime library is expected when no path
// is configured: next to the exported model.
func DefaultLibraryPath(modelPath string) string {
	return filepath.Join(filepath.Dir(modelPath), "libonnxruntime.so")
}

// ProbeONNXDevice checks whether the loaded runtime can register the
// execution provider for d. InitRuntime must have succeeded first.
func ProbeONNXDevice(d Device) error {
	opts, err := ort.NewSessionOptions()
	if err != nil {
		return err
	}
	defer opts.Destroy()
	return appendProvider(opts, d)
}

func appendProvider(opts *ort.SessionOptions, d Device) error {
	switch d {
	case DeviceCUDA:
		cuda, err := ort.NewCUDAProviderOptions()
		if err != nil {
			return err
		}
		defer cuda.Destroy()
		return opts.AppendExecutionProviderCUDA(cuda)
	case DeviceCoreML:
		return opts.AppendExecutionProviderCoreML(0)
	default:
		return nil
	}
}

type ONNXConfig struct {
	ModelPath      string
	LibraryPath    string
	Device         Device
	IntraOpThreads int
}

// ONNXScorer runs an exported classifier with ONNX Runtime. The model must
// take a single int64 tensor of shape [batch, seq] and produce a float32
// tensor of shape [batch, classes]. Sessions allow concurrent Run calls.
type ONNXScorer struct {
	session    *ort.DynamicAdvancedSession
	inputName  string
	outputName string
	numClasses int64
}

func NewONNXScorer(cfg ONNXConfig) (*ONNXScorer, error) {
	libPath := cfg.LibraryPath
	if libPath == "" {
		libPath = DefaultLibraryPath(cfg.ModelPath)
	}
	if err := InitRuntime(libPath); err != nil {
		return nil, fmt.Errorf("onnx: failed to initialize runtime: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to read model info: %w", err)
	}
	if len(inputs) != 1 {
		return nil, fmt.Errorf("onnx: expected exactly one model input, got %d", len(inputs))
	}
	if inputs[0].DataType != ort.TensorElementDataTypeInt64 {
		return nil, fmt.Errorf("onnx: input %q must be int64, got %v", inputs[0].Name, inputs[0].DataType)
	}
	if len(outputs) == 0 {
		return nil, fmt.Errorf("onnx: model has no outputs")
	}

	dims := outputs[0].Dimensions
	if len(dims) != 2 {
		return nil, fmt.Errorf("onnx: expected 2D output tensor, got %v", dims)
	}
	numClasses := dims[1]
	if numClasses <= 0 {
		return nil, fmt.Errorf("onnx: output class dimension must be static, got %d", numClasses)
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create session options: %w", err)
	}
	defer opts.Destroy()

	threads := cfg.IntraOpThreads
	if threads <= 0 {
		threads = 4
	}
	opts.SetIntraOpNumThreads(threads)
	opts.SetInterOpNumThreads(1)

	if err := appendProvider(opts, cfg.Device); err != nil {
		return nil, fmt.Errorf("onnx: failed to enable %s provider: %w", cfg.Device, err)
	}

	session, err := ort.NewDynamicAdvancedSession(
		cfg.ModelPath,
		[]string{inputs[0].Name},
		[]string{outputs[0].Name},
		opts,
	)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create session: %w", err)
	}

	return &ONNXScorer{
		session:    session,
		inputName:  inputs[0].Name,
		outputName: outputs[0].Name,
		numClasses: numClasses,
	}, nil
}

// Score runs a single-row batch and returns the raw class scores.
func (s *ONNXScorer) Score(ctx context.Context, batch [][]int64) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(batch) != 1 {
		return nil, fmt.Errorf("onnx: expected batch of 1, got %d", len(batch))
	}
	row := batch[0]
	seqLen := int64(len(row))

	input := make([]int64, len(row))
	copy(input, row)

	tIn, err := ort.NewTensor(ort.NewShape(1, seqLen), input)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create input tensor: %w", err)
	}
	defer tIn.Destroy()

	tOut, err := ort.NewEmptyTensor[float32](ort.NewShape(1, s.numClasses))
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create output tensor: %w", err)
	}
	defer tOut.Destroy()

	if err := s.session.Run([]ort.Value{tIn}, []ort.Value{tOut}); err != nil {
		return nil, fmt.Errorf("onnx: inference failed: %w", err)
	}

	src := tOut.GetData()
	out := make([]float32, len(src))
	copy(out, src)
	return out, nil
}

func (s *ONNXScorer) NumClasses() int {
	return int(s.numClasses)
}

func (s *ONNXScorer) Close() error {
	return s.session.Destroy()
}
