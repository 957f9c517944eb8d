package prescriptions

import (
	"context"

	"github.com/Diegogtz03/kofy-app/pkg/interfaces"
	"github.com/Diegogtz03/kofy-app/pkg/logger"
	"github.com/Diegogtz03/kofy-app/pkg/types"
)

// Ingestor converts raw scanned or hand-edited prescription text into drug
// explanations attached to a visit, plus reminder candidates for the user to
// confirm. It never schedules reminders itself: confirmation is a separate
// user step and only confirmed candidates reach the reminder scheduler.
type Ingestor struct {
	api    interfaces.SessionAPI
	visits interfaces.VisitStore
	creds  types.Credentials
	logger *logger.Logger
}

// NewIngestor creates a new prescription ingestor
func NewIngestor(api interfaces.SessionAPI, visits interfaces.VisitStore, creds types.Credentials, log *logger.Logger) *Ingestor {
	return &Ingestor{
		api:    api,
		visits: visits,
		creds:  creds,
		logger: log,
	}
}

// Ingest submits the prescription text for extraction and appends the
// returned explanations to the visit. On failure nothing is appended, so
// resubmitting the same text is safe; appends are additive and duplicate
// suppression by drug name is not attempted here.
func (i *Ingestor) Ingest(ctx context.Context, rawText, patientContext, visitID string) (*types.PrescriptionExtraction, error) {
	record, err := i.visits.GetByID(ctx, visitID)
	if err != nil {
		return nil, err
	}

	extraction, err := i.api.SubmitPrescriptionText(ctx, i.creds.Token, rawText, patientContext)
	if err != nil {
		return nil, err
	}

	if len(extraction.Explanations) > 0 {
		if err := i.visits.AppendPrescriptionResults(ctx, record, extraction.Explanations, nil); err != nil {
			return nil, err
		}
	}

	i.logger.WithVisitID(visitID).WithFields(map[string]interface{}{
		"explanations": len(extraction.Explanations),
		"candidates":   len(extraction.Reminders),
	}).Info("Ingested prescription text")

	return extraction, nil
}

// ConfirmReminder records a user-confirmed reminder on the visit after the
// scheduler has armed it
func (i *Ingestor) ConfirmReminder(ctx context.Context, visitID string, reminder *types.ReminderSpec) error {
	record, err := i.visits.GetByID(ctx, visitID)
	if err != nil {
		return err
	}

	return i.visits.AppendPrescriptionResults(ctx, record, nil, []types.ReminderSpec{*reminder})
}
