package protocol

import (
	"errors"
	"fmt"
)

// Version identifies a wire protocol revision.
type Version string

const (
	V1 Version = "1.0"
	V2 Version = "2.0"
	V3 Version = "3.0"
)

// SupportedVersions lists the versions this client speaks, in order of
// preference (newest first). Negotiation walks this list.
var SupportedVersions = []Version{V3, V2, V1}

// ErrNoCompatibleVersion is returned when the server's advertised versions
// have no overlap with SupportedVersions. The handshake must not proceed.
var ErrNoCompatibleVersion = errors.New("no compatible protocol version")

// FeatureSet is the fixed capability profile of a protocol version.
type FeatureSet struct {
	Tools     bool
	Resources bool
	Streaming bool
	Batching  bool
}

var featureSets = map[Version]FeatureSet{
	V1: {Tools: true},
	V2: {Tools: true, Resources: true, Streaming: true},
	V3: {Tools: true, Resources: true, Streaming: true, Batching: true},
}

// Features returns the feature set for a supported version.
func (v Version) Features() FeatureSet {
	return featureSets[v]
}

// Supports looks up a capability by name. Unknown names are always false so
// callers degrade safely against capabilities this build has never heard of.
func (f FeatureSet) Supports(name string) bool {
	switch name {
	case "tools":
		return f.Tools
	case "resources":
		return f.Resources
	case "streaming":
		return f.Streaming
	case "batching":
		return f.Batching
	default:
		return false
	}
}

// Negotiate selects the protocol version for a session from the server's
// advertised version list. The list is unordered; the highest version in
// SupportedVersions that the server also speaks wins. A server that advertises
// nothing is assumed to speak only the lowest supported version.
func Negotiate(serverVersions []string) (Version, FeatureSet, error) {
	if len(serverVersions) == 0 {
		lowest := SupportedVersions[len(SupportedVersions)-1]
		return lowest, lowest.Features(), nil
	}

	offered := make(map[string]struct{}, len(serverVersions))
	for _, v := range serverVersions {
		offered[v] = struct{}{}
	}

	for _, v := range SupportedVersions {
		if _, ok := offered[string(v)]; ok {
			return v, v.Features(), nil
		}
	}

	return "", FeatureSet{}, fmt.Errorf("%w: server offers %v", ErrNoCompatibleVersion, serverVersions)
}
