package extension

// State is the lifecycle state of a registered extension.
//
//	Registered -> Installing -> Installed | Failed
//	Installed  -> Uninstalling -> (removed)
type State int

const (
	StateRegistered State = iota
	StateInstalling
	StateInstalled
	StateUninstalling
	StateFailed
)

// String returns a string representation of the state.
func (s State) String() string {
	switch s {
	case StateRegistered:
		return "registered"
	case StateInstalling:
		return "installing"
	case StateInstalled:
		return "installed"
	case StateUninstalling:
		return "uninstalling"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
