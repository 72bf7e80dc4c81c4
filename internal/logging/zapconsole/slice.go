package zapconsole

import (
	"strconv"

	"go.uber.org/zap/zapcore"
)

const _sizeSliceArray = 4

var _slicePool = NewPool(func() *sliceArrayEncoder {
	return &sliceArrayEncoder{elems: make([]string, 0, _sizeSliceArray)}
})

// sliceArrayEncoder collects the output of the EncoderConfig callbacks
// (time, level, caller) as plain strings.
type sliceArrayEncoder struct {
	elems []string
}

var _ zapcore.PrimitiveArrayEncoder = (*sliceArrayEncoder)(nil)

func getSliceEncoder() *sliceArrayEncoder {
	return _slicePool.Get()
}

func putSliceEncoder(arr *sliceArrayEncoder) {
	arr.elems = arr.elems[:0]
	_slicePool.Put(arr)
}

func (arr *sliceArrayEncoder) AppendBool(v bool)             { arr.AppendString(strconv.FormatBool(v)) }
func (arr *sliceArrayEncoder) AppendByteString(v []byte)     { arr.AppendString(string(v)) }
func (arr *sliceArrayEncoder) AppendComplex128(v complex128) { arr.AppendString(strconv.FormatComplex(v, 'g', -1, 128)) }
func (arr *sliceArrayEncoder) AppendComplex64(v complex64)   { arr.AppendString(strconv.FormatComplex(complex128(v), 'g', -1, 64)) }
func (arr *sliceArrayEncoder) AppendFloat64(v float64)       { arr.AppendString(strconv.FormatFloat(v, 'g', -1, 64)) }
func (arr *sliceArrayEncoder) AppendFloat32(v float32)       { arr.AppendString(strconv.FormatFloat(float64(v), 'g', -1, 32)) }
func (arr *sliceArrayEncoder) AppendInt(v int)               { arr.AppendInt64(int64(v)) }
func (arr *sliceArrayEncoder) AppendInt64(v int64)           { arr.AppendString(strconv.FormatInt(v, 10)) }
func (arr *sliceArrayEncoder) AppendInt32(v int32)           { arr.AppendInt64(int64(v)) }
func (arr *sliceArrayEncoder) AppendInt16(v int16)           { arr.AppendInt64(int64(v)) }
func (arr *sliceArrayEncoder) AppendInt8(v int8)             { arr.AppendInt64(int64(v)) }
func (arr *sliceArrayEncoder) AppendString(v string)         { arr.elems = append(arr.elems, v) }
func (arr *sliceArrayEncoder) AppendUint(v uint)             { arr.AppendUint64(uint64(v)) }
func (arr *sliceArrayEncoder) AppendUint64(v uint64)         { arr.AppendString(strconv.FormatUint(v, 10)) }
func (arr *sliceArrayEncoder) AppendUint32(v uint32)         { arr.AppendUint64(uint64(v)) }
func (arr *sliceArrayEncoder) AppendUint16(v uint16)         { arr.AppendUint64(uint64(v)) }
func (arr *sliceArrayEncoder) AppendUint8(v uint8)           { arr.AppendUint64(uint64(v)) }
func (arr *sliceArrayEncoder) AppendUintptr(v uintptr)       { arr.AppendUint64(uint64(v)) }
