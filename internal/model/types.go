package model

// Metadata describes the checkpoint artifact. It is read once at startup
// from the JSON sidecar shipped next to the ONNX file and validated against
// the condition vocabulary before any inference runs.
type Metadata struct {
	InputShape  []int64  `json:"input_shape"`
	OutputShape []int64  `json:"output_shape"`
	Classes     []string `json:"classes"`
	ImageSize   int      `json:"image_size"`
}
