// benchmark drives the reconciler's verify endpoint at a configurable
// concurrency and reports latency and drift statistics. It is an operational
// tool for sizing scanner.repair_concurrency and the RPC provider, not part of
// the service itself.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"
)

const defaultBaseURL = "http://localhost:8080"

type Config struct {
	BaseURL       string
	APIKey        string
	AddressesFile string        // File with one address per line
	Requests      int           // Total requests to issue (capped by address count when a file is given)
	Concurrency   int           // Number of concurrent workers
	Timeout       time.Duration // Per-request timeout
	OutputFile    string        // Output markdown file path (optional)
	Debug         bool
}

type verifyResponse struct {
	Correct       bool    `json:"correct"`
	DBTokenID     *uint64 `json:"db_token_id"`
	LedgerTokenID *uint64 `json:"ledger_token_id"`
	Error         string  `json:"error"`
}

type requestResult struct {
	Address  string
	Duration time.Duration
	Status   int
	Correct  bool
	Drifted  bool
	Err      error
}

type RunStats struct {
	Total     int
	Succeeded int
	Failed    int
	Drifted   int
	NotReady  int

	Started   time.Time
	Elapsed   time.Duration
	Latencies []time.Duration

	FailureSamples []string
}

func main() {
	cfg := parseFlags()

	addresses, err := loadAddresses(cfg)
	if err != nil {
		fmt.Printf("Error loading addresses: %v\n", err)
		os.Exit(1)
	}
	if len(addresses) == 0 {
		fmt.Println("Error: no addresses to benchmark (use -addresses)")
		flag.Usage()
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\n\nReceived interrupt signal, shutting down...")
		cancel()
	}()

	fmt.Printf("Target: %s\n", cfg.BaseURL)
	fmt.Printf("Addresses: %d, requests: %d, concurrency: %d\n\n", len(addresses), cfg.Requests, cfg.Concurrency)

	stats := run(ctx, cfg, addresses)

	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("BENCHMARK RESULTS")
	fmt.Println(strings.Repeat("=", 80))
	printStats(stats)

	if cfg.OutputFile != "" {
		if err := writeMarkdownReport(cfg.OutputFile, cfg, stats); err != nil {
			fmt.Printf("\n⚠️  Warning: Failed to write markdown file: %v\n", err)
		} else {
			fmt.Printf("\n✓ Report written to: %s\n", cfg.OutputFile)
		}
	}

	if stats.Failed > 0 {
		os.Exit(1)
	}
}

func parseFlags() *Config {
	cfg := &Config{}

	flag.StringVar(&cfg.BaseURL, "url", "", "Base URL of the reconciler API")
	flag.StringVar(&cfg.APIKey, "api-key", "", "API key (only needed when benchmarking mutating routes)")
	flag.StringVar(&cfg.AddressesFile, "addresses", "", "File with one owner address per line")
	flag.IntVar(&cfg.Requests, "requests", 100, "Total number of requests to issue")
	flag.IntVar(&cfg.Concurrency, "concurrency", 4, "Number of concurrent workers")
	flag.DurationVar(&cfg.Timeout, "timeout", 10*time.Second, "Per-request timeout")
	flag.StringVar(&cfg.OutputFile, "output", "", "Write a markdown report to this path")
	flag.BoolVar(&cfg.Debug, "debug", false, "Print every request result")
	flag.Parse()

	// Flags override the config file, which overrides the built-in default
	fileCfg, err := LoadConfig(GetDefaultConfigPath())
	if err == nil {
		if cfg.BaseURL == "" {
			cfg.BaseURL = fileCfg.BaseURL
		}
		if cfg.APIKey == "" {
			cfg.APIKey = fileCfg.APIKey
		}
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")

	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}

	return cfg
}

// loadAddresses reads the address list, skipping blanks and comment lines
func loadAddresses(cfg *Config) ([]string, error) {
	if cfg.AddressesFile == "" {
		return nil, nil
	}

	f, err := os.Open(cfg.AddressesFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var addresses []string
	s := bufio.NewScanner(f)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		addresses = append(addresses, line)
	}
	return addresses, s.Err()
}

// run issues cfg.Requests verify calls across the worker pool, cycling through
// the address list
func run(ctx context.Context, cfg *Config, addresses []string) *RunStats {
	stats := &RunStats{Started: time.Now()}

	client := &http.Client{Timeout: cfg.Timeout}

	jobs := make(chan string)
	results := make(chan requestResult)

	var wg sync.WaitGroup
	for i := 0; i < cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for address := range jobs {
				results <- verifyOnce(ctx, client, cfg, address)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := 0; i < cfg.Requests; i++ {
			select {
			case <-ctx.Done():
				return
			case jobs <- addresses[i%len(addresses)]:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	done := 0
	for res := range results {
		done++
		collect(stats, res)

		if cfg.Debug {
			fmt.Printf("%s %s status=%d drift=%v err=%v\n",
				res.Address, formatDuration(res.Duration), res.Status, res.Drifted, res.Err)
		} else if done%25 == 0 {
			fmt.Printf("\r⏳ %d/%d requests (failed: %d, drifted: %d)    ", done, cfg.Requests, stats.Failed, stats.Drifted)
		}
	}

	stats.Elapsed = time.Since(stats.Started)
	return stats
}

func verifyOnce(ctx context.Context, client *http.Client, cfg *Config, address string) requestResult {
	url := fmt.Sprintf("%s/api/v1/identities/%s/verify", cfg.BaseURL, address)

	start := time.Now()
	result := requestResult{Address: address}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		result.Err = err
		return result
	}
	if cfg.APIKey != "" {
		req.Header.Set("Authorization", "ApiKey "+cfg.APIKey)
	}

	resp, err := client.Do(req)
	result.Duration = time.Since(start)
	if err != nil {
		result.Err = err
		return result
	}
	defer resp.Body.Close()

	result.Status = resp.StatusCode
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		result.Err = err
		return result
	}

	if resp.StatusCode != http.StatusOK {
		result.Err = fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		return result
	}

	var vr verifyResponse
	if err := json.Unmarshal(body, &vr); err != nil {
		result.Err = fmt.Errorf("bad response body: %w", err)
		return result
	}

	result.Correct = vr.Correct
	result.Drifted = !vr.Correct && vr.Error == ""
	if vr.Error != "" {
		result.Err = fmt.Errorf("ledger probe: %s", vr.Error)
	}

	return result
}

func collect(stats *RunStats, res requestResult) {
	stats.Total++
	if res.Duration > 0 {
		stats.Latencies = append(stats.Latencies, res.Duration)
	}

	switch {
	case res.Err != nil:
		stats.Failed++
		if res.Status == http.StatusServiceUnavailable {
			stats.NotReady++
		}
		if len(stats.FailureSamples) < 5 {
			stats.FailureSamples = append(stats.FailureSamples, fmt.Sprintf("%s: %v", res.Address, res.Err))
		}
	default:
		stats.Succeeded++
		if res.Drifted {
			stats.Drifted++
		}
	}
}

func printStats(stats *RunStats) {
	fmt.Printf("\n%s Requests: %d, succeeded: %d (%s), failed: %d (%s)\n",
		statusEmoji(stats.Succeeded, stats.Failed),
		stats.Total,
		stats.Succeeded, percentageString(stats.Succeeded, stats.Total),
		stats.Failed, percentageString(stats.Failed, stats.Total))
	fmt.Printf("Drifted records: %d (%s)\n", stats.Drifted, percentageString(stats.Drifted, stats.Succeeded))
	if stats.NotReady > 0 {
		fmt.Printf("Not-ready rejections: %d\n", stats.NotReady)
	}

	fmt.Printf("\nElapsed: %s, throughput: %s\n", formatDuration(stats.Elapsed), formatRate(stats.Total, stats.Elapsed))
	if len(stats.Latencies) > 0 {
		fmt.Printf("Latency p50: %s, p95: %s, p99: %s, max: %s\n",
			formatDuration(percentile(stats.Latencies, 50)),
			formatDuration(percentile(stats.Latencies, 95)),
			formatDuration(percentile(stats.Latencies, 99)),
			formatDuration(percentile(stats.Latencies, 100)))
	}

	if len(stats.FailureSamples) > 0 {
		fmt.Println("\nFailure samples:")
		for _, sample := range stats.FailureSamples {
			fmt.Printf("  - %s\n", sample)
		}
	}
}

func writeMarkdownReport(path string, cfg *Config, stats *RunStats) error {
	var b strings.Builder

	b.WriteString("# Verify Endpoint Benchmark\n\n")
	b.WriteString(fmt.Sprintf("- Target: `%s`\n", cfg.BaseURL))
	b.WriteString(fmt.Sprintf("- Date: %s\n", stats.Started.UTC().Format(time.RFC3339)))
	b.WriteString(fmt.Sprintf("- Concurrency: %d\n\n", cfg.Concurrency))

	b.WriteString("| Metric | Value |\n|---|---|\n")
	b.WriteString(fmt.Sprintf("| Requests | %d |\n", stats.Total))
	b.WriteString(fmt.Sprintf("| Succeeded | %d (%s) |\n", stats.Succeeded, percentageString(stats.Succeeded, stats.Total)))
	b.WriteString(fmt.Sprintf("| Failed | %d (%s) |\n", stats.Failed, percentageString(stats.Failed, stats.Total)))
	b.WriteString(fmt.Sprintf("| Drifted | %d |\n", stats.Drifted))
	b.WriteString(fmt.Sprintf("| Elapsed | %s |\n", formatDuration(stats.Elapsed)))
	b.WriteString(fmt.Sprintf("| Throughput | %s |\n", formatRate(stats.Total, stats.Elapsed)))
	if len(stats.Latencies) > 0 {
		b.WriteString(fmt.Sprintf("| p50 | %s |\n", formatDuration(percentile(stats.Latencies, 50))))
		b.WriteString(fmt.Sprintf("| p95 | %s |\n", formatDuration(percentile(stats.Latencies, 95))))
		b.WriteString(fmt.Sprintf("| p99 | %s |\n", formatDuration(percentile(stats.Latencies, 99))))
	}

	return os.WriteFile(path, []byte(b.String()), 0644)
}
