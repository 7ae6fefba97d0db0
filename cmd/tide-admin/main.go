// Package main is the entry point for the Tide Storage admin CLI.
// It provides offline administrative commands; the server reads
// credentials from its config file, so generating a key pair here and
// pasting it into the config is the whole provisioning flow.
package main

import (
	"fmt"
	"os"

	"github.com/tidecloud/tide-storage/internal/pkg/keygen"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "version":
		fmt.Printf("Tide Storage Admin CLI\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)

	case "keygen":
		accessKey, secretKey, err := keygen.Pair()
		if err != nil {
			fmt.Fprintf(os.Stderr, "key generation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Add to the credentials section of the server config:")
		fmt.Println()
		fmt.Println("credentials:")
		fmt.Printf("  - access_key: %s\n", accessKey)
		fmt.Printf("    secret_key: %s\n", secretKey)

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Tide Storage Admin CLI

Usage:
  tide-admin <command> [arguments]

Commands:
  keygen      Generate an access key and secret key pair
  version     Print version information
  help        Show this help message

Examples:
  tide-admin keygen`)
}
