package bundle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/medforge/clindocs/internal/domain/audit"
	"github.com/medforge/clindocs/internal/domain/resource"
	"github.com/medforge/clindocs/internal/metrics"
	"github.com/medforge/clindocs/internal/schema"
)

// ResourceService is the slice of the resource service the importer
// dispatches against.
type ResourceService interface {
	Create(ctx context.Context, tenantID string, req resource.WriteRequest) (*resource.Version, error)
	Update(ctx context.Context, tenantID string, req resource.WriteRequest) (*resource.Version, error)
	Delete(ctx context.Context, tenantID, resourceType, id, actor string) (*resource.Version, error)
}

// Importer runs the bundle import pipeline:
// parse, order, validate, dispatch, aggregate.
type Importer struct {
	resources  ResourceService
	audit      audit.Sink
	validator  *schema.Validator
	logger     *slog.Logger
	maxEntries int
}

// NewImporter creates a bundle importer. maxEntries of 0 means no cap.
func NewImporter(resources ResourceService, sink audit.Sink, validator *schema.Validator, logger *slog.Logger, maxEntries int) *Importer {
	return &Importer{
		resources:  resources,
		audit:      sink,
		validator:  validator,
		logger:     logger,
		maxEntries: maxEntries,
	}
}

// Import applies a raw bundle against the store. Only an unparseable bundle
// fails as a whole; every other failure is isolated to its entry, and the
// returned job always carries one outcome per entry. Applied entries are
// never rolled back.
func (imp *Importer) Import(ctx context.Context, tenantID, actor string, raw []byte) (*ImportJob, error) {
	start := time.Now()

	ops, err := Parse(imp.validator, raw)
	if err != nil {
		metrics.BundleParseFailures.Inc()
		return nil, err
	}
	if imp.maxEntries > 0 && len(ops) > imp.maxEntries {
		return nil, fmt.Errorf("%w: %d entries, limit %d", ErrTooManyEntries, len(ops), imp.maxEntries)
	}

	// Assign final ids before validation so the batch key set is complete.
	// Bundle create entries always get a generated id; the bundle-local id
	// only serves intra-bundle references.
	for i := range ops {
		if ops[i].Kind == resource.OperationCreate {
			ops[i].FinalID = uuid.NewString()
		} else {
			ops[i].FinalID = ops[i].ID
		}
	}

	ops = Order(ops)
	unresolved := ValidateReferences(ops, KeySet(ops))

	job := &ImportJob{
		ID:       uuid.NewString(),
		Outcomes: make([]EntryOutcome, 0, len(ops)),
	}

	for i, op := range ops {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		outcome := EntryOutcome{
			ResourceType: op.Type,
			OriginalID:   op.ID,
			FinalID:      op.FinalID,
		}

		if refs, ok := unresolved[i]; ok {
			outcome.Status = OutcomeFailed
			outcome.ErrorCode = CodeInvalidReferences
			outcome.Message = "unresolved references: " + strings.Join(refs, ", ")
			job.record(outcome)
			continue
		}

		if err := imp.dispatch(ctx, tenantID, actor, op); err != nil {
			outcome.Status = OutcomeFailed
			outcome.ErrorCode = classify(err)
			outcome.Message = err.Error()
			imp.logger.Warn("bundle entry failed",
				"type", op.Type, "id", op.FinalID, "code", outcome.ErrorCode, "error", err)
		} else {
			outcome.Status = OutcomeSuccess
		}
		job.record(outcome)
	}

	if imp.audit != nil {
		err := imp.audit.Record(ctx, tenantID, &audit.Entry{
			ResourceType: "Bundle",
			ResourceID:   job.ID,
			Action:       audit.ActionImport,
			Actor:        actor,
			Detail: fmt.Sprintf(`{"processed":%d,"succeeded":%d,"failed":%d}`,
				job.Processed, job.Succeeded, job.Failed),
		})
		if err != nil {
			imp.logger.Warn("import audit record failed", "job", job.ID, "error", err)
		}
	}

	metrics.ImportDuration.Observe(time.Since(start).Seconds())
	imp.logger.Info("bundle import finished",
		"job", job.ID, "processed", job.Processed, "succeeded", job.Succeeded, "failed", job.Failed)
	return job, nil
}

func (imp *Importer) dispatch(ctx context.Context, tenantID, actor string, op Operation) error {
	switch op.Kind {
	case resource.OperationCreate:
		_, err := imp.resources.Create(ctx, tenantID, resource.WriteRequest{
			Type:     op.Type,
			ID:       op.FinalID,
			Document: op.Document,
			Actor:    actor,
		})
		return err
	case resource.OperationUpdate:
		_, err := imp.resources.Update(ctx, tenantID, resource.WriteRequest{
			Type:     op.Type,
			ID:       op.FinalID,
			Document: op.Document,
			Actor:    actor,
		})
		return err
	case resource.OperationDelete:
		_, err := imp.resources.Delete(ctx, tenantID, op.Type, op.FinalID, actor)
		return err
	default:
		return fmt.Errorf("unknown operation kind %q", op.Kind)
	}
}

func (job *ImportJob) record(outcome EntryOutcome) {
	job.Outcomes = append(job.Outcomes, outcome)
	job.Processed++
	if outcome.Status == OutcomeSuccess {
		job.Succeeded++
	} else {
		job.Failed++
	}
	metrics.ImportEntries.WithLabelValues(string(outcome.Status)).Inc()
}

func classify(err error) string {
	switch {
	case errors.Is(err, resource.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, resource.ErrConflict):
		return CodeConflict
	case errors.Is(err, resource.ErrInvalidInput):
		return CodeParseError
	default:
		return CodeStoreError
	}
}
