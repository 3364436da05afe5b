package muna

// Dtype is the data type of a value exchanged with a predictor
type Dtype string

const (
	DtypeNull    Dtype = "null"
	DtypeFloat16 Dtype = "float16"
	DtypeFloat32 Dtype = "float32"
	DtypeFloat64 Dtype = "float64"
	DtypeInt8    Dtype = "int8"
	DtypeInt16   Dtype = "int16"
	DtypeInt32   Dtype = "int32"
	DtypeInt64   Dtype = "int64"
	DtypeUint8   Dtype = "uint8"
	DtypeUint16  Dtype = "uint16"
	DtypeUint32  Dtype = "uint32"
	DtypeUint64  Dtype = "uint64"
	DtypeBool    Dtype = "bool"
	DtypeString  Dtype = "string"
	DtypeList    Dtype = "list"
	DtypeDict    Dtype = "dict"
	DtypeImage   Dtype = "image"
	DtypeBinary  Dtype = "binary"
)

// TensorDtypes lists the dtypes a tensor can hold
var TensorDtypes = []Dtype{
	DtypeFloat16, DtypeFloat32, DtypeFloat64,
	DtypeInt8, DtypeInt16, DtypeInt32, DtypeInt64,
	DtypeUint8, DtypeUint16, DtypeUint32, DtypeUint64,
	DtypeBool,
}

func (d Dtype) String() string {
	return string(d)
}

// ElementSize returns the size in bytes of one tensor element, or 0 if d is not a tensor dtype
func (d Dtype) ElementSize() int {
	switch d {
	case DtypeInt8, DtypeUint8, DtypeBool:
		return 1
	case DtypeFloat16, DtypeInt16, DtypeUint16:
		return 2
	case DtypeFloat32, DtypeInt32, DtypeUint32:
		return 4
	case DtypeFloat64, DtypeInt64, DtypeUint64:
		return 8
	default:
		return 0
	}
}

// IsTensor reports whether d can be the element type of a tensor
func (d Dtype) IsTensor() bool {
	return d.ElementSize() > 0
}

// IsFloat reports whether d is a floating point type
func (d Dtype) IsFloat() bool {
	switch d {
	case DtypeFloat16, DtypeFloat32, DtypeFloat64:
		return true
	}
	return false
}

// IsSigned reports whether d is a signed integer type
func (d Dtype) IsSigned() bool {
	switch d {
	case DtypeInt8, DtypeInt16, DtypeInt32, DtypeInt64:
		return true
	}
	return false
}

// IsUnsigned reports whether d is an unsigned integer type
func (d Dtype) IsUnsigned() bool {
	switch d {
	case DtypeUint8, DtypeUint16, DtypeUint32, DtypeUint64:
		return true
	}
	return false
}
