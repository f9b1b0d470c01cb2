package model

// RemediationResult 单次修复执行结果（修复服务对外永不抛出异常）
type RemediationResult struct {
	Success bool                   `json:"success"`
	Action  string                 `json:"action"` // sync_retry / value_update / cache_clear / none
	Detail  map[string]interface{} `json:"detail,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

// BatchRemediationResult 批量修复汇总（success + failed == total）
type BatchRemediationResult struct {
	Total   int `json:"total"`
	Success int `json:"success"`
	Failed  int `json:"failed"`
}
