// Package ops declares the standard operator library and binds the CPU
// backend's kernels to it.
//
// Each operator is registered once per dispatch key it supports:
//   - Dense element-wise and reduction ops: one key per supported dtype,
//     every tensor argument (CPU, Strided, dtype).
//   - Sparse ops: float32 and float64, with SparseCOO or Strided per
//     argument as the operator's math requires.
//   - conditional: every dtype, both branches strided on the CPU.
package ops
