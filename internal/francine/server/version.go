package server

import (
	"github.com/Masterminds/semver/v3"

	"github.com/tansive/francine/pkg/api"
)

// Version is the server version.
const Version = "0.1.0"

// APIVersion is the version of the HTTP API shapes in pkg/api.
const APIVersion = api.Version

// clients with the same minor API version are accepted
var apiConstraint *semver.Constraints

func init() {
	var err error
	apiConstraint, err = semver.NewConstraint("~" + APIVersion)
	if err != nil {
		panic(err)
	}
}

// IsAPICompatible reports whether a client speaking version can use this
// server. Invalid versions are not compatible.
func IsAPICompatible(version string) bool {
	v, err := semver.NewVersion(version)
	if err != nil {
		return false
	}
	return apiConstraint.Check(v)
}
