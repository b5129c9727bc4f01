package types

// Update kinds reported in UpdateKind.Kind.
const (
	UpdateKindTag     = "tag"
	UpdateKindDigest  = "digest"
	UpdateKindUnknown = "unknown"
)

// Container describes a monitored image instance.
//
// It is owned by the store; triggers only read it.
type Container struct {
	ID              string           `json:"id"`
	Watcher         string           `json:"watcher"`
	Name            string           `json:"name"`
	DisplayName     string           `json:"displayName"`
	DisplayIcon     string           `json:"displayIcon"`
	UpdateAvailable bool             `json:"updateAvailable"`
	Image           Image            `json:"image"`
	UpdateKind      UpdateKind       `json:"updateKind"`
	Result          *ContainerResult `json:"result,omitempty"`
}

// Image holds the currently running image reference.
type Image struct {
	Name   string      `json:"name"`
	Tag    ImageTag    `json:"tag"`
	Digest ImageDigest `json:"digest"`
}

// ImageTag is the running tag.
type ImageTag struct {
	Value string `json:"value"`
}

// ImageDigest is the running digest.
type ImageDigest struct {
	Value string `json:"value,omitempty"`
}

// UpdateKind describes what changed between the running and the candidate image.
type UpdateKind struct {
	Kind        string `json:"kind"`                 // tag, digest or unknown.
	LocalValue  string `json:"localValue,omitempty"` // Running tag or digest.
	RemoteValue string `json:"remoteValue,omitempty"`
	SemverDiff  string `json:"semverDiff,omitempty"` // major, minor, patch, prerelease.
}

// ContainerResult describes the candidate new version.
type ContainerResult struct {
	Tag    string `json:"tag,omitempty"`
	Digest string `json:"digest,omitempty"`
	Link   string `json:"link,omitempty"`
}

// Label returns the display name, falling back to the container name.
func (c Container) Label() string {
	if c.DisplayName != "" {
		return c.DisplayName
	}

	return c.Name
}
