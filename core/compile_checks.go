package core

import glog "github.com/goliatone/go-logger/glog"

var (
	_ OutcomeRecorder = NopOutcomeRecorder{}
	_ error           = (*OperationError)(nil)

	_ Logger         = glog.Nop()
	_ LoggerProvider = glog.ProviderFromLogger(glog.Nop())
)
