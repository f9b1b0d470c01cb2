package response

import (
	"oip/dpaccuracy/internal/domains/common/job"
	"oip/dpaccuracy/pkg/errorutil"
)

// TaskResult 队列任务结果（实现 ResultI 接口）
// Data 承载各动作的业务输出（check_id、修复结果、批量汇总等）
type TaskResult struct {
	ID     string           `json:"id"`
	Status string           `json:"status"`
	Data   interface{}      `json:"data,omitempty"`
	Error  *errorutil.Error `json:"error,omitempty"`
}

const (
	TaskStatusSuccess = "SUCCESS"
	TaskStatusFailed  = "FAILED"
)

// NewTaskResult 创建任务结果
func NewTaskResult(data interface{}) *TaskResult {
	return &TaskResult{Data: data}
}

// Set 实现 ResultI 接口
func (r *TaskResult) Set(meta *job.Meta, err error) {
	r.ID = meta.ID
	if err != nil {
		r.Status = TaskStatusFailed
		r.Error = errorutil.Wrap(err)
	} else {
		r.Status = TaskStatusSuccess
	}
}

// GetStatus 实现 ResultI 接口
func (r *TaskResult) GetStatus() string {
	return r.Status
}
