package cpu

import "github.com/born-ml/dispatch/internal/tensor"

// broadcastStrides returns inShape's strides aligned to outShape, with
// stride 0 on padded and size-1 dimensions.
func broadcastStrides(inShape, outShape tensor.Shape) []int {
	strides := make([]int, len(outShape))
	orig := inShape.ComputeStrides()
	offset := len(outShape) - len(inShape)
	for i := range strides {
		j := i - offset
		if j < 0 || inShape[j] == 1 {
			continue
		}
		strides[i] = orig[j]
	}
	return strides
}

// flatIndex maps a flat output index to a flat input index.
func flatIndex(outIdx int, outStrides, inStrides []int) int {
	idx := 0
	for i, s := range outStrides {
		coord := outIdx / s
		outIdx %= s
		idx += coord * inStrides[i]
	}
	return idx
}
