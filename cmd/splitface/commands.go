/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"splitface/internal/componentpack"
	"splitface/internal/editor"
	"splitface/internal/layout"
	"splitface/internal/nodepath"
	"splitface/internal/storage"
	"splitface/internal/ui"
	"splitface/internal/undo"
	"splitface/internal/version"
	"splitface/internal/widget"
)

// logLevel overrides logging.level from the config when set.
var logLevel string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "splitface",
		Short:         "Edit and preview speedrun timer layouts built from Lua components",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (overrides config)")
	root.AddCommand(
		versionCmd(),
		componentsCmd(),
		newCmd(),
		validateCmd(),
		renderCmd(),
		recentCmd(),
		packCmd(),
		uiCmd(),
	)
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "splitface", version.String())
		},
	}
}

func componentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "components",
		Short: "List the installed components",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := setup()
			if err != nil {
				return err
			}
			defer env.Close()
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tAUTHOR\tFILE")
			for _, name := range env.cat.Names() {
				def, err := env.cat.Definition(name)
				if err != nil {
					fmt.Fprintf(tw, "%s\t-\t%s (%v)\n", name, env.cat.File(name), err)
					continue
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", name, def.Author, env.cat.File(name))
			}
			return tw.Flush()
		},
	}
}

func newCmd() *cobra.Command {
	var name, author, rootComponent string
	var children []string
	cmd := &cobra.Command{
		Use:   "new <file>",
		Short: "Create a layout file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup()
			if err != nil {
				return err
			}
			defer env.Close()
			l := layout.Default()
			if name != "" {
				l.Name = name
			}
			l.Author = author
			if rootComponent != "" {
				if _, err := l.Insert(nodepath.Root, rootComponent, env.cat, env.repo); err != nil {
					return err
				}
				for _, c := range children {
					if _, err := l.Insert(nodepath.Root, c, env.cat, env.repo); err != nil {
						return err
					}
				}
			} else if len(children) > 0 {
				return fmt.Errorf("--child needs --root")
			}
			if err := l.Save(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "layout name")
	cmd.Flags().StringVar(&author, "author", "", "layout author")
	cmd.Flags().StringVar(&rootComponent, "root", "", "component at the root of the tree")
	cmd.Flags().StringArrayVar(&children, "child", nil, "component appended under the root (repeatable)")
	return cmd
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a layout file against the installed components",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup()
			if err != nil {
				return err
			}
			defer env.Close()
			loaded, err := layout.Open(args[0], env.cat, env.repo)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			nodes := 0
			if loaded.Layout.Content != nil {
				loaded.Layout.Content.Walk(nodepath.Root, func(nodepath.Path, *layout.Component) { nodes++ })
			}
			fmt.Fprintf(out, "%s by %q: %d components, %d images\n", loaded.Layout.Name, loaded.Layout.Author, nodes, loaded.Images.Len())
			if loaded.Warnings != nil {
				fmt.Fprintf(out, "warnings:\n%v\n", loaded.Warnings)
			}
			return nil
		},
	}
}

func renderCmd() *cobra.Command {
	var splits int
	cmd := &cobra.Command{
		Use:   "render <file>",
		Short: "Print the widget tree a layout renders to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup()
			if err != nil {
				return err
			}
			defer env.Close()
			loaded, err := layout.Open(args[0], env.cat, env.repo)
			if err != nil {
				return err
			}
			env.repo.ReplaceImages(loaded.Images)
			for i := 0; i < splits; i++ {
				env.timer.StartOrSplit()
			}
			env.rt.Inject(env.repo)
			return widget.Fprint(cmd.OutOrStdout(), loaded.Layout.Render(env.repo))
		},
	}
	cmd.Flags().IntVar(&splits, "splits", 0, "start the sample timer and split this many times before rendering")
	return cmd
}

func recentCmd() *cobra.Command {
	var limit int
	var prune bool
	cmd := &cobra.Command{
		Use:   "recent",
		Short: "List recently opened layouts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := setup()
			if err != nil {
				return err
			}
			defer env.Close()
			ix, err := storage.OpenIndex(cmd.Context(), env.cfg.Paths.DataDir)
			if err != nil {
				return err
			}
			defer func() { _ = ix.Close() }()
			if limit <= 0 {
				limit = env.cfg.Editor.RecentLimit
			}
			if prune {
				if err := ix.Prune(cmd.Context(), limit); err != nil {
					return err
				}
			}
			rows, err := ix.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "OPENED\tNAME\tPATH")
			for _, r := range rows {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", r.OpenedAt.Local().Format(time.DateTime), r.Name, r.Path)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "number of entries (default from config)")
	cmd.Flags().BoolVar(&prune, "prune", false, "forget everything beyond the limit")
	return cmd
}

func packCmd() *cobra.Command {
	pack := &cobra.Command{Use: "pack", Short: "Export or install component packs"}
	pack.AddCommand(&cobra.Command{
		Use:   "export <file.zip>",
		Short: "Zip the installed components and libraries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup()
			if err != nil {
				return err
			}
			defer env.Close()
			m, err := componentpack.Export(env.cfg.ComponentsDir(), env.cfg.LibDir(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d components and %d libraries to %s\n", len(m.Components), len(m.Libraries), args[0])
			return nil
		},
	}, &cobra.Command{
		Use:   "install <file.zip>",
		Short: "Install a component pack without overwriting existing files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup()
			if err != nil {
				return err
			}
			defer env.Close()
			res, err := componentpack.Install(args[0], env.cfg.ComponentsDir(), env.cfg.LibDir())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, f := range res.Installed {
				fmt.Fprintf(out, "installed %s\n", f)
			}
			for _, f := range res.Skipped {
				fmt.Fprintf(out, "skipped   %s (exists)\n", f)
			}
			return nil
		},
	})
	return pack
}

func uiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ui [file]",
		Short: "Launch the layout editor (build with -tags fyne)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup()
			if err != nil {
				return err
			}
			defer env.Close()
			var file string
			if len(args) == 1 {
				file, _ = filepath.Abs(args[0])
			}
			ix, err := storage.OpenIndex(cmd.Context(), env.cfg.Paths.DataDir)
			if err != nil {
				return err
			}
			defer func() { _ = ix.Close() }()
			return ui.Run(cmd.Context(), env.cfg, editor.Options{
				Catalog:       env.cat,
				Repo:          env.repo,
				Timer:         env.timer,
				Recent:        ix,
				History:       undo.NewHistory(undo.Config{MaxBytes: 32 * 1024 * 1024, MaxDepth: 200, MinInterval: time.Second}),
				ComponentsDir: env.cfg.ComponentsDir(),
				LayoutsDir:    env.cfg.Paths.LayoutsDir,
			}, file)
		},
	}
}
