// Package main probes the planner's operations server. It is meant for
// container health checks and monitoring scripts.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/alchemorsel/planner/internal/infrastructure/config"
	"github.com/alchemorsel/planner/pkg/healthcheck"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	exitCodeSuccess = 0
	exitCodeFailure = 1
	exitCodeError   = 2
)

// Options holds command-line configuration
type Options struct {
	URL           string
	ConfigPath    string
	Timeout       time.Duration
	RetryCount    int
	RetryDelay    time.Duration
	AllowDegraded bool
	Verbose       bool
	OutputFormat  string
}

func main() {
	os.Exit(run(parseFlags()))
}

func parseFlags() Options {
	opts := Options{}

	flag.StringVar(&opts.URL, "url", "", "Health endpoint URL; derived from the config when empty")
	flag.StringVar(&opts.ConfigPath, "config", "", "Path to the planner config file")
	flag.DurationVar(&opts.Timeout, "timeout", 5*time.Second, "Request timeout")
	flag.IntVar(&opts.RetryCount, "retries", 2, "Number of retries on connection errors")
	flag.DurationVar(&opts.RetryDelay, "retry-delay", time.Second, "Delay between retries")
	flag.BoolVar(&opts.AllowDegraded, "allow-degraded", true, "Treat a degraded service as passing")
	flag.BoolVar(&opts.Verbose, "verbose", false, "Verbose output")
	flag.StringVar(&opts.OutputFormat, "format", "text", "Output format: text or json")
	flag.Parse()

	return opts
}

func run(opts Options) int {
	url := opts.URL
	if url == "" {
		cfg, err := config.Load(opts.ConfigPath)
		if err != nil {
			fmt.Printf("Failed to load config: %v\n", err)
			return exitCodeError
		}
		url = healthURL(cfg)
	}

	client := &http.Client{
		Timeout:   opts.Timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	var lastError error
	for attempt := 0; attempt <= opts.RetryCount; attempt++ {
		if attempt > 0 {
			if opts.Verbose {
				fmt.Printf("Retrying in %v... (attempt %d/%d)\n", opts.RetryDelay, attempt, opts.RetryCount)
			}
			time.Sleep(opts.RetryDelay)
		}

		resp, err := client.Get(url)
		if err != nil {
			lastError = err
			if opts.Verbose {
				fmt.Printf("Request failed: %v\n", err)
			}
			continue
		}
		return handleResponse(resp, opts)
	}

	fmt.Printf("Health check failed after %d attempts: %v\n", opts.RetryCount+1, lastError)
	return exitCodeError
}

// healthURL points at the health path of the configured ops server. A
// wildcard listen host is probed on loopback.
func healthURL(cfg *config.Config) string {
	host := cfg.Monitoring.OpsHost
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(cfg.Monitoring.OpsPort)) + cfg.Monitoring.HealthCheckPath
}

func handleResponse(resp *http.Response, opts Options) int {
	defer resp.Body.Close()

	var body struct {
		Status healthcheck.Status  `json:"status"`
		Checks []healthcheck.Check `json:"checks"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		fmt.Printf("Failed to decode response: %v\n", err)
		return exitCodeError
	}

	switch opts.OutputFormat {
	case "json":
		data, _ := json.MarshalIndent(body, "", "  ")
		fmt.Println(string(data))
	default:
		fmt.Printf("status: %s (http %d)\n", body.Status, resp.StatusCode)
		if opts.Verbose {
			for _, c := range body.Checks {
				fmt.Printf("  %-10s %-9s %s\n", c.Name, c.Status, c.Message)
			}
		}
	}

	switch body.Status {
	case healthcheck.StatusHealthy:
		return exitCodeSuccess
	case healthcheck.StatusDegraded:
		if opts.AllowDegraded {
			return exitCodeSuccess
		}
		return exitCodeFailure
	default:
		return exitCodeFailure
	}
}
