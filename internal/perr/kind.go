package perr

// Kind is a coarse error classification, matching the taxonomy in
// spec.md §7. It is a classification, not a Go type hierarchy: errors
// of different Kind are all *Error values distinguished by this field.
type Kind int

// Kinds, matching spec.md §7's taxonomy.
const (
	KindUnknown Kind = iota
	KindBadParameters
	KindOutOfMemory
	KindBadHandle
	KindBadState
	KindBadName
	KindEndOfFile
	KindRemoteNotSupported
	KindDriveEmpty
	KindRemoteNotReady
	KindDeviceNotFound
	KindNoRemoteService
	KindOperationInUse
	KindBlockDriverMissing
	KindBlockDriverFull
	KindBlockDriverSized
	KindEscape
	KindDevice
)

var kindNames = map[Kind]string{
	KindUnknown:            "unknown error",
	KindBadParameters:      "bad parameters",
	KindOutOfMemory:        "out of memory",
	KindBadHandle:          "bad handle",
	KindBadState:           "bad state",
	KindBadName:            "bad name",
	KindEndOfFile:          "end of file",
	KindRemoteNotSupported: "remote not supported",
	KindDriveEmpty:         "drive empty",
	KindRemoteNotReady:     "remote not ready",
	KindDeviceNotFound:     "device not found",
	KindNoRemoteService:    "no remote service",
	KindOperationInUse:     "operation in use",
	KindBlockDriverMissing: "block driver missing",
	KindBlockDriverFull:    "block driver full",
	KindBlockDriverSized:   "block driver wrong size",
	KindEscape:             "escape",
	KindDevice:             "device error",
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unrecognised error kind"
}
