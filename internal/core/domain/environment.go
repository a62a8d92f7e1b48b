package domain

// TargetEnvironment describes the environment a resolution targets:
// runtime version and platform attributes for marker evaluation, and the
// artifact compatibility tags the environment accepts, most preferred
// first.
type TargetEnvironment struct {
	PythonVersion     string
	PythonFullVersion string
	SysPlatform       string
	OSName            string
	PlatformMachine   string

	// CompatTags lists accepted artifact tags in preference order,
	// e.g. ["cp312-manylinux_x86_64", "py3-none-any"].
	CompatTags []string
}

// MarkerValue resolves a marker variable name against the environment.
// Unknown variables resolve to the empty string, which makes their
// comparisons false rather than fatal.
func (e TargetEnvironment) MarkerValue(name string) string {
	switch name {
	case "python_version":
		return e.PythonVersion
	case "python_full_version":
		return e.PythonFullVersion
	case "sys_platform":
		return e.SysPlatform
	case "os_name":
		return e.OSName
	case "platform_machine":
		return e.PlatformMachine
	default:
		return ""
	}
}

// AcceptsTag reports whether the environment accepts an artifact tag, and
// at which preference rank (lower is better).
func (e TargetEnvironment) AcceptsTag(tag string) (rank int, ok bool) {
	for i, t := range e.CompatTags {
		if t == tag {
			return i, true
		}
	}
	return 0, false
}
