// Package check implements the four Bluetooth stack diagnostics: kernel
// modules, hardware presence, daemon service and controller functionality.
package check

// Status is the verdict of one diagnostic.
type Status string

const (
	StatusOK      Status = "ok"
	StatusFail    Status = "fail"
	StatusUnknown Status = "unknown"
)

// Check names, fixed across cycles.
const (
	NameModules       = "modules"
	NameHardware      = "hardware"
	NameService       = "service"
	NameFunctionality = "functionality"
)

// Result is the outcome of one diagnostic run. Results carry no memory of
// prior cycles.
type Result struct {
	Name   string `json:"name"`
	Status Status `json:"status"`
	Detail string `json:"detail"`
}

// Failed reports whether the check found a hard failure. Unknown is a soft
// outcome and does not count.
func (r Result) Failed() bool {
	return r.Status == StatusFail
}
