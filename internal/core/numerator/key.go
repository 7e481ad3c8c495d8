package numerator

import (
	"fmt"

	"docnum/internal/core/apperror"
	"docnum/internal/core/id"
)

// Key identifies one counter stream. It never changes once a sequence exists.
type Key struct {
	CompanyID    id.ID        `db:"company_id" json:"company_id"`
	BranchID     id.ID        `db:"branch_id" json:"branch_id"`
	DocumentType DocumentType `db:"document_type" json:"document_type"`
}

// String renders the key as company/branch/type for logs and error details.
func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%s", k.CompanyID, k.BranchID, k.DocumentType)
}

// Validate checks every component is set.
func (k Key) Validate() error {
	fields := make(map[string]string)
	if id.IsNil(k.CompanyID) {
		fields["company_id"] = "This field is required"
	}
	if id.IsNil(k.BranchID) {
		fields["branch_id"] = "This field is required"
	}
	if k.DocumentType == "" {
		fields["document_type"] = "This field is required"
	}
	if len(fields) > 0 {
		return apperror.NewValidationErrors(fields)
	}
	return nil
}
