package logging

import (
	"time"

	"go.uber.org/zap/zapcore"
)

// objectEncoder is a zapcore.ObjectEncoder that flattens fields into a
// key/value slice suitable for a go-kit logger, opening namespaces as
// underscore-joined key prefixes.
//
// Adapted from zap's own memory encoder, which exists purely for testing
// zapcore.ObjectMarshaler implementations against a predictable shape.
type objectEncoder struct {
	fields []interface{}
	prefix string
}

var _ zapcore.ObjectEncoder = (*objectEncoder)(nil)

func (enc *objectEncoder) key(k string) string {
	if enc.prefix == "" {
		return k
	}
	return enc.prefix + "_" + k
}

func (enc *objectEncoder) add(k string, v interface{}) {
	enc.fields = append(enc.fields, enc.key(k), v)
}

func (enc *objectEncoder) AddArray(k string, v zapcore.ArrayMarshaler) error {
	arr := &arrayEncoder{elems: make([]interface{}, 0)}
	err := v.MarshalLogArray(arr)
	enc.add(k, arr.elems)
	return err
}

func (enc *objectEncoder) AddObject(k string, v zapcore.ObjectMarshaler) error {
	sub := &objectEncoder{}
	err := v.MarshalLogObject(sub)
	enc.add(k, sub.fields)
	return err
}

func (enc *objectEncoder) AddBinary(k string, v []byte)          { enc.add(k, v) }
func (enc *objectEncoder) AddByteString(k string, v []byte)      { enc.add(k, string(v)) }
func (enc *objectEncoder) AddBool(k string, v bool)               { enc.add(k, v) }
func (enc *objectEncoder) AddComplex128(k string, v complex128)  { enc.add(k, v) }
func (enc *objectEncoder) AddComplex64(k string, v complex64)    { enc.add(k, v) }
func (enc *objectEncoder) AddDuration(k string, v time.Duration) { enc.add(k, v) }
func (enc *objectEncoder) AddTime(k string, v time.Time)         { enc.add(k, v) }
func (enc *objectEncoder) AddFloat64(k string, v float64)        { enc.add(k, v) }
func (enc *objectEncoder) AddFloat32(k string, v float32)        { enc.add(k, v) }
func (enc *objectEncoder) AddInt(k string, v int)                { enc.add(k, v) }
func (enc *objectEncoder) AddInt64(k string, v int64)            { enc.add(k, v) }
func (enc *objectEncoder) AddInt32(k string, v int32)            { enc.add(k, v) }
func (enc *objectEncoder) AddInt16(k string, v int16)            { enc.add(k, v) }
func (enc *objectEncoder) AddInt8(k string, v int8)              { enc.add(k, v) }
func (enc *objectEncoder) AddString(k, v string)                 { enc.add(k, v) }
func (enc *objectEncoder) AddUint(k string, v uint)              { enc.add(k, v) }
func (enc *objectEncoder) AddUint64(k string, v uint64)          { enc.add(k, v) }
func (enc *objectEncoder) AddUint32(k string, v uint32)          { enc.add(k, v) }
func (enc *objectEncoder) AddUint16(k string, v uint16)          { enc.add(k, v) }
func (enc *objectEncoder) AddUint8(k string, v uint8)            { enc.add(k, v) }
func (enc *objectEncoder) AddUintptr(k string, v uintptr)        { enc.add(k, v) }
func (enc *objectEncoder) AddReflected(k string, v interface{}) error {
	enc.add(k, v)
	return nil
}

func (enc *objectEncoder) OpenNamespace(k string) {
	enc.prefix = enc.key(k)
}

type arrayEncoder struct {
	elems []interface{}
}

var _ zapcore.ArrayEncoder = (*arrayEncoder)(nil)

func (arr *arrayEncoder) AppendArray(v zapcore.ArrayMarshaler) error {
	sub := &arrayEncoder{}
	err := v.MarshalLogArray(sub)
	arr.elems = append(arr.elems, sub.elems)
	return err
}

func (arr *arrayEncoder) AppendObject(v zapcore.ObjectMarshaler) error {
	sub := &objectEncoder{}
	err := v.MarshalLogObject(sub)
	arr.elems = append(arr.elems, sub.fields)
	return err
}

func (arr *arrayEncoder) AppendReflected(v interface{}) error {
	arr.elems = append(arr.elems, v)
	return nil
}

func (arr *arrayEncoder) AppendBool(v bool)          { arr.elems = append(arr.elems, v) }
func (arr *arrayEncoder) AppendByteString(v []byte)  { arr.elems = append(arr.elems, string(v)) }
func (arr *arrayEncoder) AppendComplex128(v complex128) { arr.elems = append(arr.elems, v) }
func (arr *arrayEncoder) AppendComplex64(v complex64)   { arr.elems = append(arr.elems, v) }
func (arr *arrayEncoder) AppendDuration(v time.Duration) { arr.elems = append(arr.elems, v) }
func (arr *arrayEncoder) AppendTime(v time.Time)         { arr.elems = append(arr.elems, v) }
func (arr *arrayEncoder) AppendFloat64(v float64)    { arr.elems = append(arr.elems, v) }
func (arr *arrayEncoder) AppendFloat32(v float32)    { arr.elems = append(arr.elems, v) }
func (arr *arrayEncoder) AppendInt(v int)            { arr.elems = append(arr.elems, v) }
func (arr *arrayEncoder) AppendInt64(v int64)        { arr.elems = append(arr.elems, v) }
func (arr *arrayEncoder) AppendInt32(v int32)        { arr.elems = append(arr.elems, v) }
func (arr *arrayEncoder) AppendInt16(v int16)        { arr.elems = append(arr.elems, v) }
func (arr *arrayEncoder) AppendInt8(v int8)          { arr.elems = append(arr.elems, v) }
func (arr *arrayEncoder) AppendString(v string)      { arr.elems = append(arr.elems, v) }
func (arr *arrayEncoder) AppendUint(v uint)          { arr.elems = append(arr.elems, v) }
func (arr *arrayEncoder) AppendUint64(v uint64)      { arr.elems = append(arr.elems, v) }
func (arr *arrayEncoder) AppendUint32(v uint32)      { arr.elems = append(arr.elems, v) }
func (arr *arrayEncoder) AppendUint16(v uint16)      { arr.elems = append(arr.elems, v) }
func (arr *arrayEncoder) AppendUint8(v uint8)        { arr.elems = append(arr.elems, v) }
func (arr *arrayEncoder) AppendUintptr(v uintptr)    { arr.elems = append(arr.elems, v) }
