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
	"context"

	"github.com/spf13/cobra"

	"github.com/oras-community/go-oras/pkg/name"
	"github.com/oras-community/go-oras/pkg/oras"
)

func init() { Root.AddCommand(NewCmdCopy()) }

// NewCmdCopy creates a new cobra.Command for the cp subcommand.
func NewCmdCopy() *cobra.Command {
	var recursive bool
	var includeReferrers bool
	var fromLayout bool
	var toLayout bool

	cmd := &cobra.Command{
		Use:     "cp SRC DST",
		Aliases: []string{"copy"},
		Short:   "Copy an artifact between registries and image layouts",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := oras.CopyOptions{
				Recursive:        recursive,
				IncludeReferrers: includeReferrers,
			}
			return runCopy(cmd.Context(), args[0], args[1], fromLayout, toLayout, opts)
		},
	}
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Descend into nested indexes")
	cmd.Flags().BoolVar(&includeReferrers, "include-referrers", false, "Also copy attached artifacts")
	cmd.Flags().BoolVar(&fromLayout, "from-oci-layout", false, "Treat SRC as an OCI image layout path")
	cmd.Flags().BoolVar(&toLayout, "to-oci-layout", false, "Treat DST as an OCI image layout path")
	return cmd
}

func runCopy(ctx context.Context, src, dst string, fromLayout, toLayout bool, opts oras.CopyOptions) error {
	switch {
	case fromLayout && toLayout:
		srcRef, err := name.ParseLayout(src)
		if err != nil {
			return err
		}
		dstRef, err := name.ParseLayout(dst)
		if err != nil {
			return err
		}
		return oras.Copy(ctx, newLayout(), srcRef, newLayout(), dstRef, opts)
	case fromLayout:
		srcRef, err := name.ParseLayout(src)
		if err != nil {
			return err
		}
		dstRef, err := name.ParseContainer(dst)
		if err != nil {
			return err
		}
		return oras.Copy(ctx, newLayout(), srcRef, newRegistry(), dstRef, opts)
	case toLayout:
		srcRef, err := name.ParseContainer(src)
		if err != nil {
			return err
		}
		dstRef, err := name.ParseLayout(dst)
		if err != nil {
			return err
		}
		return oras.Copy(ctx, newRegistry(), srcRef, newLayout(), dstRef, opts)
	default:
		srcRef, err := name.ParseContainer(src)
		if err != nil {
			return err
		}
		dstRef, err := name.ParseContainer(dst)
		if err != nil {
			return err
		}
		return oras.Copy(ctx, newRegistry(), srcRef, newRegistry(), dstRef, opts)
	}
}
