// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.19
//

package gnsscore

import "github.com/pkg/errors"

var (
	// ErrSingular is returned when a matrix can not be inverted.
	ErrSingular = errors.New("singular matrix")
	// ErrNotConverged is returned when the eigenvalue iteration does not converge.
	ErrNotConverged = errors.New("eigenvalue iteration not converged")
	// ErrDimension is returned for non-conformable or under-determined input.
	ErrDimension = errors.New("invalid matrix dimension")
	// ErrNoRecords is returned when a load produced no valid record.
	ErrNoRecords = errors.New("no valid records")
	// ErrFatal is returned by a store that can no longer keep its invariants.
	ErrFatal = errors.New("store is in a fatal state")
)

// FatalFunc is called when a store hits an unrecoverable condition.
type FatalFunc func(msg string)
