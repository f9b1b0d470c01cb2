package domains

import (
	"context"
	"encoding/json"

	"oip/dpaccuracy/internal/domains/common/job"
	"oip/dpaccuracy/internal/domains/common/response"
)

// HandlerFunc Handler 函数类型
type HandlerFunc func(
	ctx context.Context,
	services *Services,
	meta *job.Meta,
	payload json.RawMessage,
) (response.ResultI, error)

// HandlerMap 路由表（ActionType → Handler 映射）
var HandlerMap = map[string]HandlerFunc{
	"run_accuracy_check":         handleRunAccuracyCheck,
	"remediate_discrepancy":      handleRemediateDiscrepancy,
	"batch_remediate":            handleBatchRemediate,
	"process_snooze_expirations": handleProcessSnoozeExpirations,
}
