// Package main is the teco-call command line tool: it calls any Tencent
// Cloud API action with free-form JSON parameters and prints the raw
// Response payload.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mitchellh/go-homedir"

	"github.com/teco-project/teco-core/client"
	"github.com/teco-project/teco-core/config"
	"github.com/teco-project/teco-core/credentials"
	"github.com/teco-project/teco-core/internal/logging"
)

// defaultProfilePath is where the YAML client profile lives unless -profile
// points elsewhere.
const defaultProfilePath = "~/.tencentcloud/profile.yaml"

func main() {
	service := flag.String("service", "", "short service name, e.g. cvm")
	apiVersion := flag.String("api-version", "", "service API version, e.g. 2017-03-12")
	action := flag.String("action", "", "API action to call, e.g. DescribeInstances")
	params := flag.String("params", "{}", "request parameters as a JSON object, @file, or - for stdin")
	region := flag.String("region", "", "region override (default: profile or TENCENTCLOUD_REGION)")
	endpoint := flag.String("endpoint", "", "custom endpoint URL override")
	profilePath := flag.String("profile", "", "path to the YAML client profile (default: "+defaultProfilePath+")")
	timeout := flag.Int("timeout", 0, "call timeout in seconds (default: from profile or 20)")
	logLevel := flag.String("log-level", "", "log level: debug, info, warn, error (default: from profile or info)")
	logFormat := flag.String("log-format", "", "log format: text, json (default: from profile or text)")
	flag.Parse()

	if *service == "" || *apiVersion == "" || *action == "" {
		fmt.Fprintln(os.Stderr, "usage: teco-call -service cvm -api-version 2017-03-12 -action DescribeInstances [-params '{...}']")
		os.Exit(2)
	}

	path := *profilePath
	if path == "" {
		expanded, err := homedir.Expand(defaultProfilePath)
		if err == nil {
			path = expanded
		}
	}
	profile, err := config.LoadProfile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load profile: %v\n", err)
		os.Exit(1)
	}

	// Command-line flags override profile values.
	if *logLevel != "" {
		profile.Logging.Level = *logLevel
	}
	if *logFormat != "" {
		profile.Logging.Format = *logFormat
	}
	logging.Setup(profile.Logging.Level, profile.Logging.Format, os.Stderr)

	conf := profile.Apply(config.New(*service, *apiVersion))
	if *region != "" {
		conf.Region = config.Region(*region)
	}
	if *endpoint != "" {
		conf.Endpoint = config.CustomEndpoint(*endpoint)
	}
	if *timeout > 0 {
		conf.Timeout = time.Duration(*timeout) * time.Second
	}

	paramData, err := readParams(*params)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read parameters: %v\n", err)
		os.Exit(1)
	}

	req := client.NewCommonRequest(nil)
	if err := req.SetParamsJSON(paramData); err != nil {
		fmt.Fprintf(os.Stderr, "invalid parameters: %v\n", err)
		os.Exit(1)
	}

	provider := credentials.DefaultChainProvider()
	c := client.New(conf, provider)
	defer c.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var resp client.CommonResponse
	if err := c.Execute(ctx, *action, req, &resp); err != nil {
		fmt.Fprintf(os.Stderr, "call failed: %v\n", err)
		os.Exit(1)
	}

	var pretty map[string]any
	if err := json.Unmarshal(resp.Body(), &pretty); err != nil {
		os.Stdout.Write(resp.Body())
		fmt.Println()
		return
	}
	out, _ := json.MarshalIndent(pretty, "", "  ")
	os.Stdout.Write(out)
	fmt.Println()
}

// readParams resolves the -params flag: a literal JSON object, @file, or -
// for stdin.
func readParams(spec string) ([]byte, error) {
	switch {
	case spec == "-":
		return io.ReadAll(os.Stdin)
	case strings.HasPrefix(spec, "@"):
		return os.ReadFile(spec[1:])
	default:
		return []byte(spec), nil
	}
}
