// Package main is the entry point for the Tide Storage presign CLI.
// It generates presigned URLs locally from configured credentials, for
// handing out time-limited object access without calling the server.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/tidecloud/tide-storage/internal/auth"
	"github.com/tidecloud/tide-storage/internal/config"
	"github.com/tidecloud/tide-storage/internal/credential"
	"github.com/tidecloud/tide-storage/internal/service"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	method := flag.String("method", "GET", "HTTP method (GET, PUT, HEAD, DELETE)")
	path := flag.String("path", "", "object path, e.g. /bucket/key")
	accessKey := flag.String("access-key", "", "access key to sign with")
	expires := flag.Int64("expires", 0, "validity window in seconds (0 = server default)")
	host := flag.String("host", "localhost:9000", "server host for the URL")
	scheme := flag.String("scheme", "http", "URL scheme")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Printf("Tide Storage Presign CLI\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)
		return
	}

	if *path == "" || *accessKey == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg := config.MustLoad(*configPath)

	creds := make([]credential.Credentials, 0, len(cfg.Credentials))
	for _, c := range cfg.Credentials {
		region := c.Region
		if region == "" {
			region = cfg.Auth.Region
		}
		creds = append(creds, credential.Credentials{
			AccessKey: c.AccessKey,
			SecretKey: c.SecretKey,
			Region:    region,
		})
	}

	logger := zerolog.New(os.Stderr).Level(zerolog.WarnLevel)
	authenticator := auth.NewAuthenticator(credential.NewStaticStore(creds), cfg.Auth.Region, logger)
	presign := service.NewPresignService(authenticator, int64(cfg.Auth.PresignedURLExpiration.Seconds()), logger)

	signed, err := presign.GeneratePresignedURL(service.GeneratePresignedURLInput{
		Method:    *method,
		Path:      *path,
		AccessKey: *accessKey,
		Expires:   *expires,
		Host:      *host,
		Scheme:    *scheme,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "presign failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(signed)
}
