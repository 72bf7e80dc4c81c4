package calllog

import (
	"context"

	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/logging"
	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/payload"
	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/transcript"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// ProcessAndStoreTranscript extracts facts from the delivery's transcript and stores them on
// callLog. Failures are logged only; the returned set is empty when nothing was stored.
func (service *Service) ProcessAndStoreTranscript(
	ctx context.Context,
	p payload.Payload,
	callLog *CallLog,
) transcript.FactSet {
	if callLog == nil {
		return transcript.FactSet{}
	}

	raw, ok := payload.Transcript(p)
	if !ok {
		logging.Logger.Info("[ProcessAndStoreTranscript] No transcript in webhook",
			zap.String("log_id", callLog.LogID),
		)

		return transcript.FactSet{}
	}

	facts := transcript.ExtractInfo(raw)
	if facts.IsEmpty() {
		logging.Logger.Info("[ProcessAndStoreTranscript] No facts extracted from transcript",
			zap.String("log_id", callLog.LogID),
		)

		return transcript.FactSet{}
	}

	data, err := json.Marshal(facts)
	if err != nil {
		logging.Logger.Error("[ProcessAndStoreTranscript] Failed to encode transcript data",
			zap.String("log_id", callLog.LogID),
			zap.String("error", err.Error()),
		)

		return transcript.FactSet{}
	}

	err = service.store.UpdateTranscriptData(ctx, callLog.ID, data)
	if err != nil {
		logging.Logger.Error("[ProcessAndStoreTranscript] Failed to store transcript data",
			zap.String("log_id", callLog.LogID),
			zap.String("error", err.Error()),
		)

		return transcript.FactSet{}
	}

	callLog.TranscriptData = datatypes.JSON(data)

	logging.Logger.Info("[ProcessAndStoreTranscript] Transcript data stored",
		zap.String("log_id", callLog.LogID),
		zap.ByteString("transcript_data", data),
	)

	return facts
}
