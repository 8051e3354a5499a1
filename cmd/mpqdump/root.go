// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	mpq "github.com/suprsokr/sc2mpq"
)

var (
	showHeaders  bool
	showHash     bool
	showBlock    bool
	skipListfile bool
	listFiles    bool
	extractAll   bool
	verbose      bool
)

var rootCmd = &cobra.Command{
	Use:   "mpqdump [flags] <archive>",
	Short: "Inspect and extract MPQ replay archives",
	Long: `mpqdump reads MPQ archives such as StarCraft II replay files.
It can print the archive headers and metadata tables, list the files
named by the listfile, and extract the archive contents to disk.`,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().BoolVarP(&showHeaders, "headers", "I", false, "Print the archive headers")
	rootCmd.Flags().BoolVarP(&showHash, "hash-table", "H", false, "Print the hash table")
	rootCmd.Flags().BoolVarP(&showBlock, "block-table", "b", false, "Print the block table")
	rootCmd.Flags().BoolVarP(&skipListfile, "skip-listfile", "s", false, "Do not read the listfile")
	rootCmd.Flags().BoolVarP(&listFiles, "list-files", "t", false, "List the files in the archive")
	rootCmd.Flags().BoolVarP(&extractAll, "extract", "x", false, "Extract files to a directory named after the archive")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

func run(cmd *cobra.Command, args []string) error {
	log := logrus.New()
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	archive, err := mpq.Open(args[0], &mpq.Options{
		SkipListfile: skipListfile,
		Logger:       log,
	})
	if err != nil {
		return err
	}

	if showHeaders {
		printHeaders(archive.Header())
	}
	if showHash {
		printHashTable(archive.HashTable())
	}
	if showBlock {
		printBlockTable(archive.BlockTable())
	}
	if listFiles {
		for _, name := range archive.Files() {
			fmt.Println(name)
		}
	}
	if extractAll {
		return extractToDir(archive, args[0], log)
	}
	return nil
}

// extractToDir writes every listfile entry under a directory named
// after the archive, minus its extension.
func extractToDir(archive *mpq.Archive, path string, log *logrus.Logger) error {
	base := filepath.Base(path)
	dir := strings.TrimSuffix(base, filepath.Ext(base))

	files, err := archive.ExtractAll()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	for _, f := range files {
		if f.Data == nil {
			log.WithField("file", f.Name).Warn("listed file not present in archive")
			continue
		}
		if err := os.WriteFile(filepath.Join(dir, f.Name), f.Data, 0644); err != nil {
			return fmt.Errorf("write %s: %w", f.Name, err)
		}
		log.WithFields(logrus.Fields{"file": f.Name, "bytes": len(f.Data)}).Debug("extracted")
	}
	return nil
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
