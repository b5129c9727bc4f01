package trigger

import "github.com/getwud/wud-triggers/pkg/types"

// Semver differences reported in UpdateKind.SemverDiff.
const (
	semverMajor = "major"
	semverMinor = "minor"
)

// ThresholdReached reports whether a container update is significant enough for threshold.
//
// Only tag updates carrying a semver difference are filtered: "minor" drops major bumps and
// "patch" drops major and minor bumps. Every other update passes.
func ThresholdReached(container types.Container, threshold string) bool {
	kind := container.UpdateKind
	if threshold == ThresholdAll || kind.Kind != types.UpdateKindTag || kind.SemverDiff == "" {
		return true
	}

	switch threshold {
	case ThresholdMinor:
		return kind.SemverDiff != semverMajor
	case ThresholdPatch:
		return kind.SemverDiff != semverMajor && kind.SemverDiff != semverMinor
	default:
		return true
	}
}
