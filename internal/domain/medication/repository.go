package medication

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	CreateBatch(ctx context.Context, meds []*Medication) error
	GetByID(ctx context.Context, id uuid.UUID) (*Medication, error)
	List(ctx context.Context, q *ListMedicationsQuery) ([]*Medication, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
	DeactivateByPrescription(ctx context.Context, prescriptionID uuid.UUID) (int64, error)
}
