// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package hal

import (
	"fmt"
)

// OperationType is the tag of an operation, following the NN HAL numbering.
//
// Values up to OperationTypeTanh belong to the V1_0 operation set; the remaining ones
// were introduced in V1_1.
type OperationType int32

const (
	OperationTypeAdd                         OperationType = 0
	OperationTypeAveragePool2D               OperationType = 1
	OperationTypeConcatenation               OperationType = 2
	OperationTypeConv2D                      OperationType = 3
	OperationTypeDepthwiseConv2D             OperationType = 4
	OperationTypeDepthToSpace                OperationType = 5
	OperationTypeDequantize                  OperationType = 6
	OperationTypeEmbeddingLookup             OperationType = 7
	OperationTypeFloor                       OperationType = 8
	OperationTypeFullyConnected              OperationType = 9
	OperationTypeHashtableLookup             OperationType = 10
	OperationTypeL2Normalization             OperationType = 11
	OperationTypeL2Pool2D                    OperationType = 12
	OperationTypeLocalResponseNormalization  OperationType = 13
	OperationTypeLogistic                    OperationType = 14
	OperationTypeLSHProjection               OperationType = 15
	OperationTypeLSTM                        OperationType = 16
	OperationTypeMaxPool2D                   OperationType = 17
	OperationTypeMul                         OperationType = 18
	OperationTypeRelu                        OperationType = 19
	OperationTypeRelu1                       OperationType = 20
	OperationTypeRelu6                       OperationType = 21
	OperationTypeReshape                     OperationType = 22
	OperationTypeResizeBilinear              OperationType = 23
	OperationTypeRNN                         OperationType = 24
	OperationTypeSoftmax                     OperationType = 25
	OperationTypeSpaceToDepth                OperationType = 26
	OperationTypeSVDF                        OperationType = 27
	OperationTypeTanh                        OperationType = 28
	OperationTypeBatchToSpaceND              OperationType = 29
	OperationTypeDiv                         OperationType = 30
	OperationTypeMean                        OperationType = 31
	OperationTypePad                         OperationType = 32
	OperationTypeSpaceToBatchND              OperationType = 33
	OperationTypeSqueeze                     OperationType = 34
	OperationTypeStridedSlice                OperationType = 35
	OperationTypeSub                         OperationType = 36
	OperationTypeTranspose                   OperationType = 37
	lastOperationType                                      = OperationTypeTranspose
)

var operationTypeNames = [...]string{
	OperationTypeAdd:                        "ADD",
	OperationTypeAveragePool2D:              "AVERAGE_POOL_2D",
	OperationTypeConcatenation:              "CONCATENATION",
	OperationTypeConv2D:                     "CONV_2D",
	OperationTypeDepthwiseConv2D:            "DEPTHWISE_CONV_2D",
	OperationTypeDepthToSpace:               "DEPTH_TO_SPACE",
	OperationTypeDequantize:                 "DEQUANTIZE",
	OperationTypeEmbeddingLookup:            "EMBEDDING_LOOKUP",
	OperationTypeFloor:                      "FLOOR",
	OperationTypeFullyConnected:             "FULLY_CONNECTED",
	OperationTypeHashtableLookup:            "HASHTABLE_LOOKUP",
	OperationTypeL2Normalization:            "L2_NORMALIZATION",
	OperationTypeL2Pool2D:                   "L2_POOL_2D",
	OperationTypeLocalResponseNormalization: "LOCAL_RESPONSE_NORMALIZATION",
	OperationTypeLogistic:                   "LOGISTIC",
	OperationTypeLSHProjection:              "LSH_PROJECTION",
	OperationTypeLSTM:                       "LSTM",
	OperationTypeMaxPool2D:                  "MAX_POOL_2D",
	OperationTypeMul:                        "MUL",
	OperationTypeRelu:                       "RELU",
	OperationTypeRelu1:                      "RELU1",
	OperationTypeRelu6:                      "RELU6",
	OperationTypeReshape:                    "RESHAPE",
	OperationTypeResizeBilinear:             "RESIZE_BILINEAR",
	OperationTypeRNN:                        "RNN",
	OperationTypeSoftmax:                    "SOFTMAX",
	OperationTypeSpaceToDepth:               "SPACE_TO_DEPTH",
	OperationTypeSVDF:                       "SVDF",
	OperationTypeTanh:                       "TANH",
	OperationTypeBatchToSpaceND:             "BATCH_TO_SPACE_ND",
	OperationTypeDiv:                        "DIV",
	OperationTypeMean:                       "MEAN",
	OperationTypePad:                        "PAD",
	OperationTypeSpaceToBatchND:             "SPACE_TO_BATCH_ND",
	OperationTypeSqueeze:                    "SQUEEZE",
	OperationTypeStridedSlice:               "STRIDED_SLICE",
	OperationTypeSub:                        "SUB",
	OperationTypeTranspose:                  "TRANSPOSE",
}

// String implements fmt.Stringer.
func (t OperationType) String() string {
	if t.IsValid() {
		return operationTypeNames[t]
	}
	return fmt.Sprintf("OperationType(%d)", int32(t))
}

// IsValid returns whether t is a known operation tag.
func (t OperationType) IsValid() bool {
	return t >= 0 && t <= lastOperationType
}

// Version returns the first version of the operation set where t was introduced.
// It panics for invalid tags.
func (t OperationType) Version() Version {
	if !t.IsValid() {
		panic(fmt.Sprintf("hal: no version for invalid operation type %d", int32(t)))
	}
	if t <= OperationTypeTanh {
		return V1_0
	}
	return V1_1
}

// ParseOperationType returns the OperationType for the given name, e.g.: "STRIDED_SLICE".
func ParseOperationType(name string) (OperationType, bool) {
	for ii, n := range operationTypeNames {
		if n == name {
			return OperationType(ii), true
		}
	}
	return -1, false
}

// Operation is one step of the model: a tag plus the indices of its input and output operands.
type Operation struct {
	Type    OperationType
	Inputs  []uint32
	Outputs []uint32
}

// String implements fmt.Stringer.
func (op *Operation) String() string {
	return fmt.Sprintf("%s(inputs=%v, outputs=%v)", op.Type, op.Inputs, op.Outputs)
}
