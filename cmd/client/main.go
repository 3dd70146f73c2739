package main

import (
	"context"
	"fmt"
	"os"

	"github.com/MKhiriev/go-health-keeper/internal/cli"
	"github.com/MKhiriev/go-health-keeper/models"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	buildInfo := models.NewAppBuildInfo(buildVersion, buildDate, buildCommit)

	if err := cli.NewRootCommand(buildInfo).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
