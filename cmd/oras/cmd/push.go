// Copyright 2024 go-oras Authors All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/oras-community/go-oras/pkg/name"
	v1 "github.com/oras-community/go-oras/pkg/v1"
)

func init() { Root.AddCommand(NewCmdPush()) }

// NewCmdPush creates a new cobra.Command for the push subcommand.
func NewCmdPush() *cobra.Command {
	var artifactType string
	var annotationsFile string
	var ociLayout bool

	cmd := &cobra.Command{
		Use:   "push REF FILE [FILE...]",
		Short: "Push files as an OCI artifact",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, paths := args[0], args[1:]

			annotations, err := loadAnnotations(annotationsFile)
			if err != nil {
				return err
			}

			var m *v1.Manifest
			if ociLayout {
				lref, err := name.ParseLayout(ref)
				if err != nil {
					return err
				}
				m, err = newLayout().PushArtifact(cmd.Context(), lref, artifactType, annotations, nil, paths...)
				if err != nil {
					return err
				}
			} else {
				cref, err := name.ParseContainer(ref)
				if err != nil {
					return err
				}
				m, err = newRegistry().PushArtifact(cmd.Context(), cref, artifactType, annotations, nil, paths...)
				if err != nil {
					return err
				}
			}

			desc, err := m.Descriptor(v1.DefaultAlgorithm)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pushed %s\nDigest: %s\n", ref, desc.Digest)
			return nil
		},
	}
	cmd.Flags().StringVar(&artifactType, "artifact-type", "", "Artifact type of the pushed manifest")
	cmd.Flags().StringVar(&annotationsFile, "annotations-file", "", "Path to a JSON annotations file")
	cmd.Flags().BoolVar(&ociLayout, "oci-layout", false, "Treat REF as an OCI image layout path")
	return cmd
}

// loadAnnotations parses the flat annotations JSON file, when given.
func loadAnnotations(path string) (*v1.Annotations, error) {
	if path == "" {
		return nil, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return v1.ParseAnnotations(b)
}
