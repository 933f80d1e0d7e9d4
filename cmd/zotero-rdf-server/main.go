// Package main provides the zotero-rdf-server binary entry point.
// The server maps Zotero libraries into RDF named graphs, keeps them
// refreshed, and exposes export and operational endpoints over HTTP.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ch-sander/zotero-rdf-server/rdf"
	"github.com/ch-sander/zotero-rdf-server/store"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "zotero-rdf-server"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		configPath    string
		librariesPath string
		logLevel      string
	)

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Zotero to RDF named-graph server",
		Long: `zotero-rdf-server maps bibliographic libraries from the Zotero Web API
(or local exports) into RDF named graphs.

Each library becomes one named graph, refreshed atomically on a schedule
or on demand. Shared entities (tags, persons, places) can converge into a
knowledge-base graph across libraries.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath, librariesPath, logLevel)
		},
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVarP(&librariesPath, "libraries", "l", "", "Libraries file path (YAML)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level override (debug, info, warn, error)")

	cmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the server (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath, librariesPath, logLevel)
		},
	})

	var refreshLibrary string
	refreshCmd := &cobra.Command{
		Use:   "refresh",
		Short: "Run one refresh cycle and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRefresh(configPath, librariesPath, logLevel, refreshLibrary)
		},
	}
	refreshCmd.Flags().StringVar(&refreshLibrary, "library", "", "Refresh only this library")
	cmd.AddCommand(refreshCmd)

	var (
		exportFormat string
		exportGraph  string
		exportOut    string
	)
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Refresh, then export the store and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(configPath, librariesPath, logLevel, exportFormat, exportGraph, exportOut)
		},
	}
	exportCmd.Flags().StringVar(&exportFormat, "format", "trig", "Export format (trig, nquads, ttl, nt, n3, xml)")
	exportCmd.Flags().StringVar(&exportGraph, "graph", "", "Export only this named graph")
	exportCmd.Flags().StringVar(&exportOut, "out", "-", "Output file, - for stdout")
	cmd.AddCommand(exportCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	return cmd
}

func runServe(configPath, librariesPath, logLevel string) error {
	app, err := newApp(configPath, librariesPath, logLevel)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return app.Serve(ctx)
}

func runRefresh(configPath, librariesPath, logLevel, library string) error {
	app, err := newApp(configPath, librariesPath, logLevel)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return app.RefreshOnce(ctx, library)
}

func runExport(configPath, librariesPath, logLevel, format, graph, out string) error {
	parsed, err := store.ParseFormat(format)
	if err != nil {
		return err
	}

	app, err := newApp(configPath, librariesPath, logLevel)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.RefreshOnce(ctx, ""); err != nil {
		return err
	}

	body, err := app.gateway.Export(ctx, parsed, rdf.IRI(graph))
	if err != nil {
		return err
	}
	defer body.Close()

	w := io.Writer(os.Stdout)
	if out != "" && out != "-" {
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	_, err = io.Copy(w, body)
	return err
}
