// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package sink

import (
	"bytes"

	"github.com/siemens/mailsift/batch"
	"github.com/siemens/mailsift/types"
)

// Artifact is the newline-delimited list of the addresses of a single
// classification.
type Artifact struct {
	Class types.Classification
	Name  string // file name, such as "valid.txt".
	Data  []byte // one address per line, each line terminated by "\n".
	Lines int    // number of addresses.
}

// ArtifactName returns the name of the artifact for the specified
// classification.
func ArtifactName(class types.Classification) string {
	return class.String() + ".txt"
}

// Artifacts returns the artifacts for all classifications with at least one
// address, in the canonical order of classifications. Additionally, it returns
// the classifications without any addresses, for which there are no
// artifacts.
func Artifacts(rs *batch.ResultSet) (artifacts []Artifact, empty []types.Classification) {
	for _, class := range types.AllClassifications {
		addrs := rs.Get(class)
		if len(addrs) == 0 {
			empty = append(empty, class)
			continue
		}
		var buff bytes.Buffer
		for _, addr := range addrs {
			buff.WriteString(addr)
			buff.WriteByte('\n')
		}
		artifacts = append(artifacts, Artifact{
			Class: class,
			Name:  ArtifactName(class),
			Data:  buff.Bytes(),
			Lines: len(addrs),
		})
	}
	return
}
