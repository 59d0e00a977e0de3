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
	Root.AddCommand(NewCmdManifest())
	Root.AddCommand(NewCmdDigest())
	Root.AddCommand(NewCmdBlob())
	Root.AddCommand(NewCmdReferrers())
	Root.AddCommand(NewCmdDelete())
}

// NewCmdManifest creates a new cobra.Command for the manifest subcommand.
func NewCmdManifest() *cobra.Command {
	return &cobra.Command{
		Use:   "manifest REF",
		Short: "Fetch the raw manifest of a reference",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cref, err := name.ParseContainer(args[0])
			if err != nil {
				return err
			}
			m, err := newRegistry().GetManifest(cmd.Context(), cref)
			if err != nil {
				return err
			}
			raw, err := m.RawManifest()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(raw)
			return err
		},
	}
}

// NewCmdDigest creates a new cobra.Command for the digest subcommand.
func NewCmdDigest() *cobra.Command {
	return &cobra.Command{
		Use:   "digest REF",
		Short: "Resolve a reference to its digest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cref, err := name.ParseContainer(args[0])
			if err != nil {
				return err
			}
			desc, err := newRegistry().ProbeDescriptor(cmd.Context(), cref)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), desc.Digest)
			return nil
		},
	}
}

// NewCmdBlob creates a new cobra.Command for the blob subcommand.
func NewCmdBlob() *cobra.Command {
	return &cobra.Command{
		Use:   "blob REF@DIGEST",
		Short: "Fetch a blob by digest and write it to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cref, err := name.ParseContainer(args[0])
			if err != nil {
				return err
			}
			b, err := newRegistry().GetBlob(cmd.Context(), cref)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(b)
			return err
		},
	}
}

// NewCmdReferrers creates a new cobra.Command for the referrers subcommand.
func NewCmdReferrers() *cobra.Command {
	var artifactType string

	cmd := &cobra.Command{
		Use:   "referrers REF@DIGEST",
		Short: "List the artifacts attached to a subject",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cref, err := name.ParseContainer(args[0])
			if err != nil {
				return err
			}
			refs, err := newRegistry().GetReferrers(cmd.Context(), cref, artifactType)
			if err != nil {
				return err
			}
			for _, d := range refs.Manifests {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", d.Digest, d.ArtifactType)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&artifactType, "artifact-type", "", "Filter referrers by artifact type")
	return cmd
}

// NewCmdDelete creates a new cobra.Command for the delete subcommand.
func NewCmdDelete() *cobra.Command {
	return &cobra.Command{
		Use:   "delete REF",
		Short: "Delete a manifest from a registry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cref, err := name.ParseContainer(args[0])
			if err != nil {
				return err
			}
			return newRegistry().Delete(cmd.Context(), cref)
		},
	}
}
