// Package value defines the prediction values exchanged with MCP clients.
//
// MCP clients cannot be trusted to inline binary payloads, so tensors and
// images travel as filesystem paths and only scalars are carried inline.
package value

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"slices"

	"github.com/google/uuid"
	"github.com/levelsai/levels/api/muna"
	"github.com/morikuni/failure/v2"
)

// ErrorCode defines error types for value conversion
type ErrorCode string

const (
	// ErrUnsupportedValue represents a kind or Go type that has no conversion
	ErrUnsupportedValue ErrorCode = "UnsupportedValue"
	// ErrInvalidValue represents a value whose fields are inconsistent
	ErrInvalidValue ErrorCode = "InvalidValue"
	// ErrFile represents failures reading or writing value files
	ErrFile ErrorCode = "ValueFile"
)

func (c ErrorCode) ErrorCode() string {
	return string(c)
}

// Kind discriminates MCP values
type Kind string

const (
	KindScalar Kind = "scalar"
	KindTensor Kind = "tensor"
	KindImage  Kind = "image"
)

// Value is an MCP-compatible prediction value
type Value struct {
	Kind Kind `json:"kind" jsonschema:"Value kind: scalar, tensor or image."`
	// Data is the scalar itself, or a path to raw tensor data or to an image file
	Data  any        `json:"data" jsonschema:"Scalar value, path to raw little-endian tensor data, or path to an image file."`
	Dtype muna.Dtype `json:"dtype,omitempty" jsonschema:"Tensor data type. Required for tensors."`
	Shape []int      `json:"shape,omitempty" jsonschema:"Tensor shape. Required for tensors."`
}

// Scalar returns a scalar value
func Scalar(v any) Value {
	return Value{Kind: KindScalar, Data: v}
}

// Validate checks that the fields required by the kind are present
func (v Value) Validate() error {
	switch v.Kind {
	case KindScalar:
		return nil
	case KindImage:
		if _, ok := v.Data.(string); !ok {
			return failure.New(ErrInvalidValue, failure.Message("Image data must be a file path"))
		}
		return nil
	case KindTensor:
		if _, ok := v.Data.(string); !ok {
			return failure.New(ErrInvalidValue, failure.Message("Tensor data must be a file path"))
		}
		if !v.Dtype.IsTensor() {
			return failure.New(ErrInvalidValue,
				failure.Messagef("Tensor dtype %q is not supported", v.Dtype))
		}
		if slices.ContainsFunc(v.Shape, func(d int) bool { return d < 0 }) {
			return failure.New(ErrInvalidValue,
				failure.Messagef("Tensor shape %v has a negative dimension", v.Shape))
		}
		return nil
	default:
		return failure.New(ErrUnsupportedValue,
			failure.Messagef("Cannot deserialize value of type %s to plain value", v.Kind))
	}
}

// ToPlain converts an MCP value into a value the Muna client accepts
func ToPlain(v Value) (any, error) {
	if err := v.Validate(); err != nil {
		return nil, err
	}

	switch v.Kind {
	case KindScalar:
		return v.Data, nil
	case KindImage:
		path := v.Data.(string)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, failure.Wrap(err, failure.WithCode(ErrFile),
				failure.Message("Failed to read image"),
				failure.Context{"path": path})
		}
		_, format, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return nil, failure.Wrap(err, failure.WithCode(ErrInvalidValue),
				failure.Message("File is not a PNG or JPEG image"),
				failure.Context{"path": path})
		}
		return muna.Image{Format: format, Data: data}, nil
	default:
		path := v.Data.(string)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, failure.Wrap(err, failure.WithCode(ErrFile),
				failure.Message("Failed to read tensor data"),
				failure.Context{"path": path})
		}
		t := muna.Tensor{Dtype: v.Dtype, Shape: slices.Clone(v.Shape), Data: data}
		if t.Shape == nil {
			t.Shape = []int{}
		}
		if want := t.Len() * v.Dtype.ElementSize(); want != len(data) {
			return nil, failure.New(ErrInvalidValue,
				failure.Messagef("Tensor file has %d bytes, %s%v needs %d", len(data), v.Dtype, v.Shape, want),
				failure.Context{"path": path})
		}
		return t, nil
	}
}

// FileWriter stores tensor and image results so clients can reference them by path
type FileWriter interface {
	WriteFile(suffix string, data []byte) (string, error)
}

// DirWriter writes files with unique names into Dir
type DirWriter struct {
	Dir string
}

// WriteFile implements FileWriter
func (w DirWriter) WriteFile(suffix string, data []byte) (string, error) {
	dir := w.Dir
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "levels")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", failure.Wrap(err, failure.WithCode(ErrFile),
			failure.Context{"dir": dir})
	}
	path := filepath.Join(dir, uuid.NewString()+suffix)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", failure.Wrap(err, failure.WithCode(ErrFile),
			failure.Context{"path": path})
	}
	return path, nil
}

// FromPlain converts a Muna result into an MCP value, writing binary payloads with w
func FromPlain(v any, w FileWriter) (Value, error) {
	switch x := v.(type) {
	case nil, bool, string, []any, map[string]any,
		float32, float64, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return Scalar(x), nil
	case muna.Tensor:
		path, err := w.WriteFile(".bin", x.Data)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindTensor, Data: path, Dtype: x.Dtype, Shape: x.Shape}, nil
	case muna.Image:
		data := x.Data
		if x.Format != "png" {
			img, _, err := image.Decode(bytes.NewReader(x.Data))
			if err != nil {
				return Value{}, failure.Wrap(err, failure.WithCode(ErrInvalidValue),
					failure.Message("Result image cannot be decoded"))
			}
			var buf bytes.Buffer
			if err := png.Encode(&buf, img); err != nil {
				return Value{}, failure.Wrap(err, failure.WithCode(ErrInvalidValue))
			}
			data = buf.Bytes()
		}
		path, err := w.WriteFile(".png", data)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindImage, Data: path}, nil
	case muna.Binary:
		path, err := w.WriteFile(".bin", x)
		if err != nil {
			return Value{}, err
		}
		return Scalar(path), nil
	default:
		return Value{}, failure.New(ErrUnsupportedValue,
			failure.Message(fmt.Sprintf("Cannot serialize value of type %T to MCP value", v)))
	}
}
