// SPDX-License-Identifier: MIT
// Package matrix: sentinel error set.
// Every message is prefixed with "matrix: ..." so it can be grepped in logs.
// Context (cell coordinates, sequence ids) is added with fmt.Errorf("...: %w")
// at the boundary; callers match with errors.Is.

package matrix

import "errors"

var (
	// ErrBadShape is returned when a matrix of negative order is requested.
	ErrBadShape = errors.New("matrix: invalid shape")

	// ErrOutOfRange indicates that a row or column index is outside [0,n).
	ErrOutOfRange = errors.New("matrix: index out of range")

	// ErrIncompleteMatrix indicates a required cell was never written. It is
	// fatal for clustering: it means orchestration upstream did not finish.
	ErrIncompleteMatrix = errors.New("matrix: distance matrix incomplete")

	// ErrBadOption indicates a nonsensical build option (e.g. negative workers).
	ErrBadOption = errors.New("matrix: invalid build option")
)
