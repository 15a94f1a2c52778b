package bundle

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/medforge/clindocs/internal/domain/resource"
)

func op(kind resource.Operation, resourceType, id string) Operation {
	return Operation{Kind: kind, Type: resourceType, ID: id}
}

func TestOrder_PromotesFoundationTypes(t *testing.T) {
	ops := []Operation{
		op(resource.OperationCreate, "Observation", "o1"),
		op(resource.OperationCreate, "DocumentReference", "d1"),
		op(resource.OperationCreate, "Encounter", "e1"),
		op(resource.OperationCreate, "Patient", "p1"),
	}

	ordered := Order(ops)
	types := make([]string, len(ordered))
	for i, o := range ordered {
		types[i] = o.Type
	}
	require.Equal(t, []string{"Patient", "Encounter", "Observation", "DocumentReference"}, types)
}

func TestOrder_StableWithinPriority(t *testing.T) {
	ops := []Operation{
		op(resource.OperationCreate, "Observation", "o1"),
		op(resource.OperationCreate, "Condition", "c1"),
		op(resource.OperationCreate, "Observation", "o2"),
	}

	ordered := Order(ops)
	require.Equal(t, "o1", ordered[0].ID)
	require.Equal(t, "c1", ordered[1].ID)
	require.Equal(t, "o2", ordered[2].ID)
}

func TestOrder_UnknownTypesLast(t *testing.T) {
	ops := []Operation{
		op(resource.OperationCreate, "CustomThing", "x1"),
		op(resource.OperationCreate, "Patient", "p1"),
	}

	ordered := Order(ops)
	require.Equal(t, "Patient", ordered[0].Type)
	require.Equal(t, "CustomThing", ordered[1].Type)
}

func TestOrder_DoesNotMutateInput(t *testing.T) {
	ops := []Operation{
		op(resource.OperationCreate, "Observation", "o1"),
		op(resource.OperationCreate, "Patient", "p1"),
	}

	Order(ops)
	require.Equal(t, "Observation", ops[0].Type)
}
