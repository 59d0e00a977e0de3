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

	"github.com/spf13/cobra"

	"github.com/oras-community/go-oras/pkg/name"
	v1 "github.com/oras-community/go-oras/pkg/v1"
)

func init() { Root.AddCommand(NewCmdAttach()) }

// NewCmdAttach creates a new cobra.Command for the attach subcommand.
func NewCmdAttach() *cobra.Command {
	var artifactType string
	var annotationsFile string

	cmd := &cobra.Command{
		Use:   "attach REF FILE [FILE...]",
		Short: "Attach an artifact to the subject REF points at",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cref, err := name.ParseContainer(args[0])
			if err != nil {
				return err
			}
			annotations, err := loadAnnotations(annotationsFile)
			if err != nil {
				return err
			}
			m, err := newRegistry().AttachArtifact(cmd.Context(), cref, artifactType, annotations, args[1:]...)
			if err != nil {
				return err
			}
			desc, err := m.Descriptor(v1.DefaultAlgorithm)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Attached to %s\nDigest: %s\n", cref, desc.Digest)
			return nil
		},
	}
	cmd.Flags().StringVar(&artifactType, "artifact-type", "", "Artifact type of the attached manifest (required)")
	cmd.Flags().StringVar(&annotationsFile, "annotations-file", "", "Path to a JSON annotations file")
	cmd.MarkFlagRequired("artifact-type")
	return cmd
}
