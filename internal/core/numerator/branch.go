package numerator

import (
	"context"

	"docnum/internal/core/apperror"
	"docnum/internal/core/id"
)

// BranchDirectory supplies the printed prefix of a branch. The branch registry is
// owned elsewhere; the engine treats the prefix as an opaque string.
type BranchDirectory interface {
	BranchPrefix(ctx context.Context, companyID, branchID id.ID) (string, error)
}

// StaticBranches is a BranchDirectory backed by a fixed branch ID → prefix map.
type StaticBranches map[id.ID]string

// BranchPrefix implements BranchDirectory.
func (s StaticBranches) BranchPrefix(_ context.Context, _, branchID id.ID) (string, error) {
	prefix, ok := s[branchID]
	if !ok {
		return "", apperror.NewNotFound("branch", branchID.String())
	}
	return prefix, nil
}

// Ensure compile-time interface compliance.
var _ BranchDirectory = StaticBranches(nil)
