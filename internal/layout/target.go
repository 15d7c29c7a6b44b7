package layout

// Target describes the ABI target and its pointer properties.
type Target struct {
	Triple   string // e.g. "x86_64-linux-gnu"
	PtrSize  int    // bytes
	PtrAlign int    // bytes
}

func X86_64LinuxGNU() Target {
	return Target{
		Triple:   "x86_64-linux-gnu",
		PtrSize:  8,
		PtrAlign: 8,
	}
}

func Armv7LinuxGNUEABI() Target {
	return Target{
		Triple:   "armv7-linux-gnueabi",
		PtrSize:  4,
		PtrAlign: 4,
	}
}
