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
)

func init() {
	Root.AddCommand(NewCmdTags())
	Root.AddCommand(NewCmdRepos())
}

// NewCmdTags creates a new cobra.Command for the tags subcommand.
func NewCmdTags() *cobra.Command {
	var ociLayout bool

	cmd := &cobra.Command{
		Use:   "tags REF",
		Short: "List the tags of a repository or image layout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if ociLayout {
				lref, err := name.ParseLayout(args[0])
				if err != nil {
					return err
				}
				tags, err := newLayout().GetTags(cmd.Context(), lref)
				if err != nil {
					return err
				}
				for _, t := range tags.Tags {
					fmt.Fprintln(cmd.OutOrStdout(), t)
				}
				return nil
			}
			cref, err := name.ParseContainer(args[0])
			if err != nil {
				return err
			}
			tags, err := newRegistry().GetTags(cmd.Context(), cref)
			if err != nil {
				return err
			}
			for _, t := range tags.Tags {
				fmt.Fprintln(cmd.OutOrStdout(), t)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&ociLayout, "oci-layout", false, "Treat REF as an OCI image layout path")
	return cmd
}

// NewCmdRepos creates a new cobra.Command for the repos subcommand.
func NewCmdRepos() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "repos REGISTRY/REPO",
		Aliases: []string{"catalog"},
		Short:   "List the repositories of a registry",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cref, err := name.ParseContainer(args[0])
			if err != nil {
				return err
			}
			repos, err := newRegistry().GetRepositories(cmd.Context(), cref)
			if err != nil {
				return err
			}
			for _, r := range repos.Repositories {
				fmt.Fprintln(cmd.OutOrStdout(), r)
			}
			return nil
		},
	}
	return cmd
}
