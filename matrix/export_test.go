// SPDX-License-Identifier: MIT

package matrix

// WithCause exposes withCause to matrix_test.
var WithCause = withCause
