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

// Package cmd holds the oras CLI commands.
package cmd

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/oras-community/go-oras/pkg/authn"
	"github.com/oras-community/go-oras/pkg/logs"
	"github.com/oras-community/go-oras/pkg/v1/layout"
	"github.com/oras-community/go-oras/pkg/v1/remote"
)

var (
	insecure      bool
	skipTLSVerify bool
	verbose       bool
	timeoutSecs   int
	username      string
	password      string
)

// Root is the top-level oras command.
var Root = &cobra.Command{
	Use:   "oras",
	Short: "Push, pull, and copy OCI artifacts",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			logs.Debug.SetOutput(os.Stderr)
		}
	},
	SilenceUsage: true,
}

func init() {
	Root.PersistentFlags().BoolVar(&insecure, "insecure", false, "Allow sending credentials over plain HTTP")
	Root.PersistentFlags().BoolVar(&skipTLSVerify, "skip-tls-verify", false, "Skip TLS certificate verification")
	Root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logs")
	Root.PersistentFlags().IntVar(&timeoutSecs, "timeout", 60, "Connect timeout in seconds")
	Root.PersistentFlags().StringVarP(&username, "username", "u", "", "Registry username")
	Root.PersistentFlags().StringVarP(&password, "password", "p", "", "Registry password")
}

// newRegistry builds a registry store from the global flags. Explicit
// credentials win over the Docker config file.
func newRegistry() *remote.Registry {
	opts := []remote.Option{
		remote.WithTimeout(time.Duration(timeoutSecs) * time.Second),
	}
	if insecure {
		opts = append(opts, remote.WithInsecure())
	}
	if skipTLSVerify {
		opts = append(opts, remote.WithSkipTLSVerify())
	}
	if username != "" || password != "" {
		opts = append(opts, remote.WithAuth(&authn.Basic{Username: username, Password: password}))
	} else {
		opts = append(opts, remote.WithAuthFromKeychain(authn.DefaultKeychain))
	}
	return remote.NewRegistry(opts...)
}

// newLayout builds a layout store.
func newLayout() *layout.Store {
	return layout.NewStore()
}
