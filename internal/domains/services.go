package domains

import (
	"oip/dpaccuracy/internal/alerting"
	"oip/dpaccuracy/internal/remediation"
	"oip/dpaccuracy/internal/scanner"
)

// Services 注入到 Handler 的业务服务集合
type Services struct {
	Scanner     *scanner.Scanner
	Alerts      *alerting.Manager
	Remediation *remediation.Service
}
