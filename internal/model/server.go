// Package model owns the loaded classifier. One Server is created at process
// startup, shared read-only by every request, and destroyed at shutdown.
// Inference is deterministic: the ONNX session carries no training-mode
// state, so the same tensor always produces the same raw scores.
package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/apex/log"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/arko007/chexray-api/internal/conditions"
)

const acquireTimeout = 5 * time.Second

var (
	ErrNotLoaded     = errors.New("model not loaded")
	ErrShapeMismatch = errors.New("input tensor shape mismatch")
)

// session bundles one ONNX session with its pre-allocated I/O tensors.
// onnxruntime_go sessions bind tensors at creation time, so a session must
// never be used by two requests at once; the Server's pool enforces that.
type session struct {
	sess   *ort.AdvancedSession
	input  *ort.Tensor[float32]
	output *ort.Tensor[float32]
}

func (s *session) destroy() {
	if s.input != nil {
		s.input.Destroy()
	}
	if s.output != nil {
		s.output.Destroy()
	}
	if s.sess != nil {
		s.sess.Destroy()
	}
}

// Server is the process-wide classifier handle.
type Server struct {
	Metadata Metadata

	sessions chan *session
	poolSize int
	device   string
	inputLen int
	closed   atomic.Bool
}

// NewServer initializes the ONNX runtime, loads the checkpoint and builds a
// pool of poolSize inference sessions. The metadata sidecar's class list
// must match the condition vocabulary exactly, order included.
func NewServer(modelPath, metadataPath, device string, poolSize int) (*Server, error) {
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
	}

	metaFile, err := os.ReadFile(metadataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}

	var metadata Metadata
	if err := json.Unmarshal(metaFile, &metadata); err != nil {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}

	if err := validateClasses(metadata.Classes); err != nil {
		return nil, err
	}

	inputLen := 1
	for _, dim := range metadata.InputShape {
		inputLen *= int(dim)
	}

	if poolSize <= 0 {
		poolSize = 1
	}

	srv := &Server{
		Metadata: metadata,
		sessions: make(chan *session, poolSize),
		poolSize: poolSize,
		device:   device,
		inputLen: inputLen,
	}

	for i := 0; i < poolSize; i++ {
		s, err := newSession(modelPath, metadata)
		if err != nil {
			srv.Close()
			return nil, fmt.Errorf("failed to create session %d: %w", i, err)
		}
		srv.sessions <- s
	}

	log.WithFields(log.Fields{
		"model":     modelPath,
		"sessions":  poolSize,
		"device":    device,
		"num_class": len(metadata.Classes),
	}).Info("classifier loaded")

	return srv, nil
}

func validateClasses(classes []string) error {
	if len(classes) != conditions.Count {
		return fmt.Errorf("metadata declares %d classes, expected %d", len(classes), conditions.Count)
	}
	for i, name := range classes {
		if name != conditions.Names[i] {
			return fmt.Errorf("metadata class %d is %q, expected %q", i, name, conditions.Names[i])
		}
	}
	return nil
}

func newSession(modelPath string, metadata Metadata) (*session, error) {
	inputShape := ort.NewShape(metadata.InputShape...)
	outputShape := ort.NewShape(metadata.OutputShape...)

	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	sess, err := ort.NewAdvancedSession(modelPath,
		[]string{"input"}, []string{"output"},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &session{sess: sess, input: inputTensor, output: outputTensor}, nil
}

// Infer runs one forward pass and returns the raw per-condition scores in
// vocabulary order. The returned slice is owned by the caller.
func (s *Server) Infer(ctx context.Context, tensor []float32) ([]float32, error) {
	if s.closed.Load() {
		return nil, ErrNotLoaded
	}
	if len(tensor) != s.inputLen {
		return nil, fmt.Errorf("%w: got %d values, expected %d", ErrShapeMismatch, len(tensor), s.inputLen)
	}

	sess, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer s.release(sess)

	copy(sess.input.GetData(), tensor)

	if err := sess.sess.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	out := sess.output.GetData()
	raw := make([]float32, conditions.Count)
	copy(raw, out[:conditions.Count])
	return raw, nil
}

func (s *Server) acquire(ctx context.Context) (*session, error) {
	select {
	case sess, ok := <-s.sessions:
		if !ok {
			return nil, ErrNotLoaded
		}
		return sess, nil
	case <-time.After(acquireTimeout):
		return nil, errors.New("timeout waiting for an inference session")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Server) release(sess *session) {
	if s.closed.Load() {
		sess.destroy()
		return
	}
	s.sessions <- sess
}

// Ready reports whether the server can accept inference calls.
func (s *Server) Ready() bool {
	return !s.closed.Load()
}

// Device returns the compute device the checkpoint was loaded on, for the
// health boundary.
func (s *Server) Device() string {
	return s.device
}

// Close tears down every pooled session and the ONNX environment. No Infer
// call may follow.
func (s *Server) Close() {
	if s.closed.Swap(true) {
		return
	}
	close(s.sessions)
	for sess := range s.sessions {
		sess.destroy()
	}
	ort.DestroyEnvironment()
}
