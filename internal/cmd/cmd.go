// Copyright 2026 The Cockroach Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package cmd contains the commands of the dine binary.
package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/dining/dine"
	"github.com/cockroachdb/dining/trace"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Command returns the root command.
func Command() *cobra.Command {
	var verbosity int
	root := &cobra.Command{
		Use:           "dine",
		Short:         "exercise the ring arbiter with concurrent agents",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			switch {
			case verbosity >= 2:
				log.SetLevel(log.TraceLevel)
			case verbosity == 1:
				log.SetLevel(log.DebugLevel)
			default:
				log.SetLevel(log.InfoLevel)
			}
		},
	}
	root.PersistentFlags().CountVarP(&verbosity, "verbose", "v",
		"increase logging verbosity to debug; repeat for trace")
	root.AddCommand(runCommand(), verifyCommand())
	return root
}

func runCommand() *cobra.Command {
	var cfg dine.Config
	var configFile, tracePath string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "drive agents through acquire/release cycles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if configFile != "" {
				// Persistent flags such as verbose have already been
				// applied by the root command.
				if err := applyConfigFile(cmd.LocalNonPersistentFlags(), configFile); err != nil {
					return err
				}
			}
			if err := cfg.Preflight(); err != nil {
				return err
			}

			var rec *trace.Recorder
			events := dine.LogEvents(log.StandardLogger())
			if tracePath != "" {
				rec = trace.NewRecorder()
				events = rec.Events(events)
			}
			arb, err := cfg.NewArbiter(events)
			if err != nil {
				return err
			}

			log.WithFields(log.Fields{
				"agents": cfg.Agents,
				"cycles": cfg.Cycles,
				"policy": arb.Policy(),
				"seed":   cfg.Seed,
			}).Info("starting")
			report, runErr := dine.Run(cmd.Context(), &cfg, arb)
			if report != nil {
				report.Log()
			}
			if rec != nil {
				if err := writeTrace(tracePath, cfg.Agents, rec.Snapshot()); err != nil {
					return err
				}
			}
			return runErr
		},
	}
	cfg.Bind(cmd.Flags())
	cmd.Flags().StringVar(&configFile, "config", "",
		"a TOML file of flag names and values; flags on the command line take precedence")
	cmd.Flags().StringVar(&tracePath, "trace", "",
		"write the arbiter's event trace to this file")
	return cmd
}

func verifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verify TRACE",
		Short: "check a trace written by run for exclusion violations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			size, events, err := trace.Read(f)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			sum, err := trace.Verify(size, events)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			acquired, blocked := 0, 0
			for agent := range sum.Acquired {
				acquired += sum.Acquired[agent]
				blocked += sum.Blocked[agent]
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(),
				"ok: %d events, %d agents, %d acquisitions, %d blocks\n",
				len(events), size, acquired, blocked)
			return err
		},
	}
}

// applyConfigFile sets every flag named in the TOML file that was not
// given on the command line. Only flags in the set may be named.
func applyConfigFile(flags *pflag.FlagSet, path string) error {
	var values map[string]any
	if _, err := toml.DecodeFile(path, &values); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		f := flags.Lookup(key)
		if f == nil || key == "config" || key == "help" {
			return fmt.Errorf("%s: unknown setting %q", path, key)
		}
		if f.Changed {
			continue
		}
		if err := flags.Set(key, fmt.Sprint(values[key])); err != nil {
			return fmt.Errorf("%s: %s: %w", path, key, err)
		}
	}
	return nil
}

func writeTrace(path string, size int, events []trace.Event) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := trace.Write(out, size, events); err != nil {
		_ = out.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	log.WithFields(log.Fields{"events": len(events), "path": path}).Info("trace written")
	return out.Close()
}
