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
	"github.com/spf13/cobra"

	"github.com/oras-community/go-oras/pkg/name"
)

func init() { Root.AddCommand(NewCmdPull()) }

// NewCmdPull creates a new cobra.Command for the pull subcommand.
func NewCmdPull() *cobra.Command {
	var output string
	var overwrite bool
	var ociLayout bool

	cmd := &cobra.Command{
		Use:   "pull REF",
		Short: "Pull an OCI artifact's files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if ociLayout {
				lref, err := name.ParseLayout(args[0])
				if err != nil {
					return err
				}
				return newLayout().PullArtifact(cmd.Context(), lref, output, overwrite)
			}
			cref, err := name.ParseContainer(args[0])
			if err != nil {
				return err
			}
			return newRegistry().PullArtifact(cmd.Context(), cref, output, overwrite)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", ".", "Output directory")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing files")
	cmd.Flags().BoolVar(&ociLayout, "oci-layout", false, "Treat REF as an OCI image layout path")
	return cmd
}
