package muna

import (
	"encoding/json"
)

// User is the owner of a predictor
type User struct {
	Username string `json:"username"`
	Name     string `json:"name,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
}

// Predictor is a prediction function hosted on Muna
type Predictor struct {
	Tag         string    `json:"tag"`
	Owner       User      `json:"owner"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status,omitempty"`
	Access      string    `json:"access,omitempty"`
	License     string    `json:"license,omitempty"`
	Created     string    `json:"created,omitempty"`
	Card        string    `json:"card,omitempty"`
	Media       string    `json:"media,omitempty"`
	Signature   Signature `json:"signature"`
}

// Signature describes the inputs and outputs of a predictor
type Signature struct {
	Inputs  []Parameter `json:"inputs"`
	Outputs []Parameter `json:"outputs"`
}

// Parameter is a single predictor input or output
type Parameter struct {
	Name         string              `json:"name"`
	Type         Dtype               `json:"type,omitempty"`
	Description  string              `json:"description,omitempty"`
	Optional     bool                `json:"optional,omitempty"`
	Range        []float64           `json:"range,omitempty"`
	Enumeration  []EnumerationMember `json:"enumeration,omitempty"`
	ValueSchema  json.RawMessage     `json:"valueSchema,omitempty"`
	DefaultValue json.RawMessage     `json:"defaultValue,omitempty"`
}

// EnumerationMember is one allowed value of an enumerated parameter
type EnumerationMember struct {
	Name  string          `json:"name"`
	Value json.RawMessage `json:"value"`
}

// Acceleration selects the hardware a remote prediction runs on
type Acceleration string

const (
	AccelerationRemoteAuto Acceleration = "remote_auto"
	AccelerationRemoteCPU  Acceleration = "remote_cpu"
	AccelerationRemoteA40  Acceleration = "remote_a40"
	AccelerationRemoteA100 Acceleration = "remote_a100"
)

// Prediction is the outcome of invoking a predictor.
// Results holds plain values: Go scalars, []any, map[string]any, Tensor, Image, Binary or nil.
type Prediction struct {
	ID      string
	Tag     string
	Created string
	Results []any
	// Latency in milliseconds
	Latency float64
	Error   *string
	Logs    *string
}

// Tensor is a dense array of little-endian elements
type Tensor struct {
	Dtype Dtype
	Shape []int
	Data  []byte
}

// Len returns the number of elements described by the shape
func (t Tensor) Len() int {
	n := 1
	for _, d := range t.Shape {
		n *= d
	}
	return n
}

// Image is an encoded image file
type Image struct {
	// Format is "png" or "jpeg"
	Format string
	Data   []byte
}

// Binary is an opaque blob
type Binary []byte

// RemoteValue is the wire form of a value. Shape is null for values that are not tensors.
type RemoteValue struct {
	Data  *string `json:"data"`
	Type  Dtype   `json:"type"`
	Shape []int   `json:"shape"`
}

type remotePrediction struct {
	ID      string        `json:"id"`
	Tag     string        `json:"tag"`
	Created string        `json:"created"`
	Results []RemoteValue `json:"results"`
	Latency float64       `json:"latency"`
	Error   *string       `json:"error"`
	Logs    *string       `json:"logs"`
}

type createRemotePredictionRequest struct {
	Tag          string                 `json:"tag"`
	Inputs       map[string]RemoteValue `json:"inputs"`
	Acceleration Acceleration           `json:"acceleration"`
	ClientID     string                 `json:"clientId,omitempty"`
}

type createValueRequest struct {
	Name string `json:"name"`
}

type createValueResponse struct {
	UploadURL   string `json:"uploadUrl"`
	DownloadURL string `json:"downloadUrl"`
}

type errorResponse struct {
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}
