package muna

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"

	"github.com/morikuni/failure/v2"
)

// toRemoteValue serialises a plain value for the wire
func (c *Client) toRemoteValue(ctx context.Context, name string, v any) (RemoteValue, error) {
	var (
		data  []byte
		dtype Dtype
		shape []int
		mime  = "application/octet-stream"
	)

	switch x := v.(type) {
	case nil:
		return RemoteValue{Type: DtypeNull}, nil
	case float64:
		data, dtype, shape = le(float32(x)), DtypeFloat32, []int{}
	case float32:
		data, dtype, shape = le(x), DtypeFloat32, []int{}
	case bool:
		data, dtype, shape = boolBytes(x), DtypeBool, []int{}
	case int, int32, int64, json.Number:
		i, err := toInt32(x)
		switch {
		case err == nil:
			data, dtype = le(i), DtypeInt32
		case isJSONFloat(x):
			f, _ := x.(json.Number).Float64()
			data, dtype = le(float32(f)), DtypeFloat32
		default:
			return RemoteValue{}, invalidValue(name, v, err)
		}
		shape = []int{}
	case Tensor:
		if !x.Dtype.IsTensor() {
			return RemoteValue{}, invalidValue(name, v, fmt.Errorf("dtype %q is not a tensor dtype", x.Dtype))
		}
		if want := x.Len() * x.Dtype.ElementSize(); want != len(x.Data) {
			return RemoteValue{}, invalidValue(name, v, fmt.Errorf("tensor has %d bytes, shape %v needs %d", len(x.Data), x.Shape, want))
		}
		data, dtype, shape = x.Data, x.Dtype, x.Shape
		if shape == nil {
			shape = []int{}
		}
	case string:
		data, dtype, mime = []byte(x), DtypeString, "text/plain"
	case []any, map[string]any:
		b, err := json.Marshal(x)
		if err != nil {
			return RemoteValue{}, invalidValue(name, v, err)
		}
		data, mime = b, "application/json"
		dtype = DtypeList
		if _, ok := x.(map[string]any); ok {
			dtype = DtypeDict
		}
	case Image:
		data, dtype, mime = x.Data, DtypeImage, "image/"+x.Format
	case Binary:
		data, dtype = x, DtypeBinary
	default:
		return RemoteValue{}, invalidValue(name, v, fmt.Errorf("unsupported type %T", v))
	}

	u, err := c.upload(ctx, name, data, mime)
	if err != nil {
		return RemoteValue{}, err
	}
	return RemoteValue{Data: &u, Type: dtype, Shape: shape}, nil
}

// toInt32 narrows an integer, rejecting values int32 cannot hold
func toInt32(v any) (int32, error) {
	var i int64
	switch x := v.(type) {
	case int:
		i = int64(x)
	case int32:
		return x, nil
	case int64:
		i = x
	case json.Number:
		n, err := x.Int64()
		if err != nil {
			return 0, err
		}
		i = n
	}
	if i < math.MinInt32 || i > math.MaxInt32 {
		return 0, fmt.Errorf("integer %d overflows int32", i)
	}
	return int32(i), nil
}

// isJSONFloat reports whether v is a json.Number without an integer form
func isJSONFloat(v any) bool {
	n, ok := v.(json.Number)
	if !ok {
		return false
	}
	if _, err := n.Int64(); err == nil {
		return false
	}
	_, err := n.Float64()
	return err == nil && strings.ContainsAny(string(n), ".eE")
}

// upload returns a data URL for small payloads and uploads larger ones
func (c *Client) upload(ctx context.Context, name string, data []byte, mime string) (string, error) {
	if len(data) <= c.maxDataURLSize {
		return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
	}

	var v createValueResponse
	if err := c.do(ctx, http.MethodPost, "/values", createValueRequest{Name: name}, &v); err != nil {
		return "", failure.Wrap(err, failure.Context{"value": name})
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, v.UploadURL, bytes.NewReader(data))
	if err != nil {
		return "", failure.Wrap(err, failure.WithCode(ErrRequest))
	}
	req.Header.Set("Content-Type", mime)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", failure.Wrap(err, failure.WithCode(ErrRequest),
			failure.Message("Failed to upload value"),
			failure.Context{"value": name})
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", failure.New(ErrRequest,
			failure.Messagef("Failed to upload value: %s", resp.Status),
			failure.Context{"value": name})
	}
	return v.DownloadURL, nil
}

// fromRemoteValue deserialises a wire value into a plain value
func (c *Client) fromRemoteValue(ctx context.Context, rv RemoteValue) (any, error) {
	if rv.Type == DtypeNull || rv.Data == nil {
		return nil, nil
	}

	data, err := c.download(ctx, *rv.Data)
	if err != nil {
		return nil, err
	}

	switch {
	case rv.Type.IsTensor():
		t := Tensor{Dtype: rv.Type, Shape: rv.Shape, Data: data}
		if want := t.Len() * rv.Type.ElementSize(); want != len(data) {
			return nil, failure.New(ErrInvalidValue,
				failure.Messagef("Result tensor has %d bytes, shape %v needs %d", len(data), rv.Shape, want))
		}
		if len(rv.Shape) == 0 {
			return scalar(rv.Type, data), nil
		}
		return t, nil
	case rv.Type == DtypeString:
		return string(data), nil
	case rv.Type == DtypeList:
		var out []any
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, failure.Wrap(err, failure.WithCode(ErrInvalidValue))
		}
		return out, nil
	case rv.Type == DtypeDict:
		var out map[string]any
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, failure.Wrap(err, failure.WithCode(ErrInvalidValue))
		}
		return out, nil
	case rv.Type == DtypeImage:
		return Image{Format: imageFormat(data), Data: data}, nil
	case rv.Type == DtypeBinary:
		return Binary(data), nil
	default:
		return nil, failure.New(ErrInvalidValue,
			failure.Messagef("Cannot deserialize value of type %s", rv.Type))
	}
}

// download resolves a data URL inline or fetches an http(s) URL
func (c *Client) download(ctx context.Context, rawURL string) ([]byte, error) {
	if strings.HasPrefix(rawURL, "data:") {
		return decodeDataURL(rawURL)
	}

	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, failure.New(ErrDownload,
			failure.Message("Unsupported value URL"),
			failure.Context{"url": rawURL})
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, failure.Wrap(err, failure.WithCode(ErrDownload))
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, failure.Wrap(err, failure.WithCode(ErrDownload),
			failure.Context{"url": rawURL})
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, failure.New(ErrDownload,
			failure.Messagef("Failed to download value: %s", resp.Status),
			failure.Context{"url": rawURL})
	}
	return io.ReadAll(resp.Body)
}

func decodeDataURL(s string) ([]byte, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(s, "data:"), ",")
	if !ok {
		return nil, failure.New(ErrDownload, failure.Message("Malformed data URL"))
	}
	if strings.HasSuffix(header, ";base64") {
		b, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, failure.Wrap(err, failure.WithCode(ErrDownload),
				failure.Message("Malformed data URL"))
		}
		return b, nil
	}
	p, err := url.PathUnescape(payload)
	if err != nil {
		return nil, failure.Wrap(err, failure.WithCode(ErrDownload))
	}
	return []byte(p), nil
}

func invalidValue(name string, v any, err error) error {
	return failure.Wrap(err, failure.WithCode(ErrInvalidValue),
		failure.Messagef("Cannot serialize input %q", name),
		failure.Context{"type": fmt.Sprintf("%T", v)})
}

func le(v any) []byte {
	var buf bytes.Buffer
	// only fixed-size values reach here
	_ = binary.Write(&buf, binary.LittleEndian, v)
	return buf.Bytes()
}

func boolBytes(b bool) []byte {
	if b {
		return []byte{1}
	}
	return []byte{0}
}

// scalar decodes a single element
func scalar(d Dtype, b []byte) any {
	switch d {
	case DtypeFloat16:
		return float64(halfToFloat32(binary.LittleEndian.Uint16(b)))
	case DtypeFloat32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
	case DtypeFloat64:
		return math.Float64frombits(binary.LittleEndian.Uint64(b))
	case DtypeInt8:
		return int64(int8(b[0]))
	case DtypeInt16:
		return int64(int16(binary.LittleEndian.Uint16(b)))
	case DtypeInt32:
		return int64(int32(binary.LittleEndian.Uint32(b)))
	case DtypeInt64:
		return int64(binary.LittleEndian.Uint64(b))
	case DtypeUint8:
		return uint64(b[0])
	case DtypeUint16:
		return uint64(binary.LittleEndian.Uint16(b))
	case DtypeUint32:
		return uint64(binary.LittleEndian.Uint32(b))
	case DtypeUint64:
		return binary.LittleEndian.Uint64(b)
	case DtypeBool:
		return b[0] != 0
	}
	return nil
}

// halfToFloat32 converts an IEEE 754 binary16 value
func halfToFloat32(h uint16) float32 {
	sign := uint32(h>>15) << 31
	exp := int32(h>>10) & 0x1f
	frac := uint32(h) & 0x3ff

	switch {
	case exp == 0 && frac == 0:
		return math.Float32frombits(sign)
	case exp == 0:
		// subnormal: normalise the fraction
		exp = 1
		for frac&0x400 == 0 {
			frac <<= 1
			exp--
		}
		frac &= 0x3ff
	case exp == 0x1f:
		return math.Float32frombits(sign | 0x7f800000 | frac<<13)
	}
	return math.Float32frombits(sign | uint32(exp+112)<<23 | frac<<13)
}

func imageFormat(b []byte) string {
	if bytes.HasPrefix(b, []byte("\x89PNG\r\n\x1a\n")) {
		return "png"
	}
	if bytes.HasPrefix(b, []byte{0xff, 0xd8, 0xff}) {
		return "jpeg"
	}
	return "png"
}
