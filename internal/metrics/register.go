package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var registerOnce sync.Once

// Register registers every collector with the default registry. Must be called once from main;
// repeated calls are no-ops.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			EmbeddingRequestsTotal,
			EmbeddingRequestDuration,
			EmbeddingTokensTotal,
			EmbeddingErrorsTotal,
			EmbeddingBudgetTokensRemaining,
			EmbeddingCacheTotal,
			CompletionRequestsTotal,
			CompletionRequestDuration,
			CompletionTokensTotal,
			IndexOperationsTotal,
			IngestedRecordsTotal,
			CandidatesPerCycle,
			SessionCyclesTotal,
			httpRequestDuration,
			httpRequestsTotal,
		)
	})
}
