// Copyright 2025 The Fluxion Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package engine

// DType identifies the element type of an array or opaque buffer. The empty
// string means "any" and matches every element type during validation.
type DType string

const (
	DTypeAny  DType = ""
	DTypeF32  DType = "f32"
	DTypeF64  DType = "f64"
	DTypeI32  DType = "i32"
	DTypeI64  DType = "i64"
	DTypeU8   DType = "u8"
	DTypeBool DType = "bool"
)

// Opaque is implemented by externally managed buffers, typically GPU-side
// field descriptors. The engine never reads their contents; it only checks
// the reported element type, lane count, and shape during validation.
type Opaque interface {
	BufferDType() DType
	BufferLanes() int
	BufferShape() []int
}

// Array is a dense host-side typed array. Data holds the backing slice and is
// not interpreted by the engine; producers and consumers agree on its
// concrete type through the element DType.
type Array struct {
	DType DType
	Lanes int
	Shape []int
	Data  interface{}
}

// Len returns the number of elements implied by the shape, not counting
// lanes. A nil shape counts as zero elements.
func (a *Array) Len() int {
	if len(a.Shape) == 0 {
		return 0
	}
	n := 1
	for _, d := range a.Shape {
		n *= d
	}
	return n
}

// NewArray builds an array of scalar elements with the given shape.
func NewArray(dtype DType, shape []int, data interface{}) *Array {
	return &Array{DType: dtype, Shape: shape, Data: data}
}

// NewVectorArray builds an array whose elements are vectors of the given
// lane count.
func NewVectorArray(dtype DType, lanes int, shape []int, data interface{}) *Array {
	return &Array{DType: dtype, Lanes: lanes, Shape: shape, Data: data}
}
