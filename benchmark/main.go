// Package main benchmarks the xrays CLI across repositories of different sizes.
// For every repository it times compute with the snapshot cache disabled, then
// with a cache (first successful run cold, the rest averaged as warm), and
// finally the hotspots and coupling queries over the resulting record table.
// Results are written to a timestamped CSV file.
//
// Prerequisites:
// - xrays binary installed and available in PATH
// - Test repositories cloned to the specified base directory
// - Git repositories: csv-parser, fd, git, kubernetes
//
// Usage: go run benchmark/main.go [repo-base-dir]
//
//	repo-base-dir: Directory containing test repositories
package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// BenchmarkResult holds the timings of one command on one repository.
type BenchmarkResult struct {
	Repository  string
	Command     string
	NoCacheTime string
	ColdTime    string
	WarmTime    string
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	RepoBase    string
	DataBase    string
	Timeout     time.Duration
	Workers     int
	NoCacheRuns int
	CacheRuns   int
	QueryRuns   int
	TestRepos   []string
	FilePattern map[string]string
}

func main() {
	if len(os.Args) != 2 {
		fmt.Printf("Usage: %s [repo-base-dir]\n", os.Args[0])
		os.Exit(1)
	}
	repoBase := os.Args[1]

	dataBase, err := os.MkdirTemp("", "xrays-benchmark-")
	if err != nil {
		fmt.Printf("Failed to create data directory: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = os.RemoveAll(dataBase) }()

	config := BenchmarkConfig{
		RepoBase:    repoBase,
		DataBase:    dataBase,
		Timeout:     15 * time.Minute,
		Workers:     14,
		NoCacheRuns: 2,
		CacheRuns:   3,
		QueryRuns:   5,
		TestRepos:   []string{"csv-parser", "fd", "git", "kubernetes"},
		FilePattern: map[string]string{
			"csv-parser": `.*\.(py|cpp|h)`,
			"fd":         `.*\.rs`,
			"git":        `.*\.[ch]`,
			"kubernetes": `.*\.go`,
		},
	}

	if err := checkPrerequisites(config); err != nil {
		fmt.Printf("Prerequisites check failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Clearing cache...\n")
	clearCmd := exec.Command("xrays", "cache", "clear")
	if output, err := clearCmd.CombinedOutput(); err != nil {
		fmt.Printf("Warning: failed to clear cache: %v\nOutput: %s\n", err, string(output))
	} else {
		fmt.Printf("Cache cleared successfully\n")
	}

	results := runBenchmarks(config)

	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}

	printSummary(results)
}

// checkPrerequisites verifies that the xrays binary and test repositories exist.
func checkPrerequisites(config BenchmarkConfig) error {
	if _, err := exec.LookPath("xrays"); err != nil {
		return fmt.Errorf("xrays binary not found in PATH")
	}
	for _, repo := range config.TestRepos {
		repoPath := filepath.Join(config.RepoBase, repo)
		if _, err := os.Stat(repoPath); os.IsNotExist(err) {
			return fmt.Errorf("repository %s not found at %s", repo, repoPath)
		}
	}
	return nil
}

// runBenchmarks executes the compute and query suites for every repository.
func runBenchmarks(config BenchmarkConfig) []BenchmarkResult {
	var results []BenchmarkResult

	fmt.Printf("Starting benchmark: %d repos, %v timeout, %d workers, no-cache: %d runs, cache: %d runs, query: %d runs\n",
		len(config.TestRepos), config.Timeout, config.Workers, config.NoCacheRuns, config.CacheRuns, config.QueryRuns)

	for _, repo := range config.TestRepos {
		fmt.Printf("Benchmarking %s\n", repo)
		repoPath := filepath.Join(config.RepoBase, repo)
		dataDir := filepath.Join(config.DataBase, repo)

		result := runComputeSuite(config, repo, repoPath, dataDir)
		results = append(results, result)
		if result.ColdTime == "TIMEOUT" {
			fmt.Printf("  Skipping queries for %s, no record table was built\n", repo)
			continue
		}

		results = append(results, runQuerySuite(config, repo, dataDir, "hotspots", "--revision-cutoff", "5"))
		results = append(results, runQuerySuite(config, repo, dataDir, "coupling", "--coupling-cutoff", "5", "--max-commit-files", "30"))
	}

	return results
}

// runComputeSuite times compute without a cache and then with a SQLite cache.
func runComputeSuite(config BenchmarkConfig, repo, repoPath, dataDir string) BenchmarkResult {
	fmt.Printf("Running compute on %s\n", repo)

	args := func(cacheBackend string) []string {
		a := []string{"compute", "--cache-backend", cacheBackend, "--progress", "no",
			"--workers", strconv.Itoa(config.Workers)}
		if pattern, ok := config.FilePattern[repo]; ok {
			a = append(a, "--file-pattern", pattern)
		}
		return append(a, repoPath, dataDir)
	}

	fmt.Printf("  No-cache phase (%d runs)\n", config.NoCacheRuns)
	noCache := runTimed(config, args("none"), config.NoCacheRuns, computeSucceeded)

	fmt.Printf("  Cache phase (%d runs)\n", config.CacheRuns)
	cached := runTimed(config, args("sqlite"), config.CacheRuns, computeSucceeded)

	coldTime := "TIMEOUT"
	var warm []float64
	if len(cached) > 0 {
		coldTime = formatSeconds(cached[0])
		warm = cached[1:]
	}

	result := BenchmarkResult{
		Repository:  repo,
		Command:     "compute",
		NoCacheTime: average(noCache),
		ColdTime:    coldTime,
		WarmTime:    average(warm),
	}
	fmt.Printf("  No-cache average: %s, Cold time: %s, Warm average: %s\n", result.NoCacheTime, result.ColdTime, result.WarmTime)
	return result
}

// runQuerySuite times a query command over an existing record table.
// Queries never touch the snapshot cache, so only the warm column is filled.
func runQuerySuite(config BenchmarkConfig, repo, dataDir, command string, extraArgs ...string) BenchmarkResult {
	fmt.Printf("Running %s on %s\n", command, repo)

	args := append([]string{command, "--output", "csv", "--output-file", os.DevNull}, extraArgs...)
	args = append(args, dataDir)
	times := runTimed(config, args, config.QueryRuns, func([]byte) bool { return true })

	result := BenchmarkResult{
		Repository:  repo,
		Command:     command,
		NoCacheTime: "-",
		ColdTime:    "-",
		WarmTime:    average(times),
	}
	fmt.Printf("  Average: %s\n", result.WarmTime)
	return result
}

// runTimed runs xrays numRuns times and returns the durations of the runs that
// finished in time and passed the success check.
func runTimed(config BenchmarkConfig, args []string, numRuns int, ok func([]byte) bool) []float64 {
	var times []float64
	for run := 1; run <= numRuns; run++ {
		start := time.Now()

		cmd := exec.Command("xrays", args...)

		done := make(chan bool, 1)
		var output []byte
		var cmdErr error

		go func() {
			output, cmdErr = cmd.CombinedOutput()
			done <- true
		}()

		select {
		case <-done:
			if cmdErr == nil && ok(output) {
				times = append(times, time.Since(start).Seconds())
			}
		case <-time.After(config.Timeout):
			if cmd.Process != nil {
				_ = cmd.Process.Kill()
			}
			<-done
		}
	}
	return times
}

// computeSucceeded checks the compute summary line.
func computeSucceeded(output []byte) bool {
	outputStr := string(output)
	return strings.Contains(outputStr, "Built") && strings.Contains(outputStr, "Record table:")
}

func average(times []float64) string {
	if len(times) == 0 {
		return "TIMEOUT"
	}
	var sum float64
	for _, t := range times {
		sum += t
	}
	return formatSeconds(sum / float64(len(times)))
}

func formatSeconds(s float64) string {
	return fmt.Sprintf("%.3fs", s)
}

// saveResults writes benchmark results to a timestamped CSV file.
func saveResults(results []BenchmarkResult) error {
	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("/tmp/xrays_benchmark_%s.csv", timestamp)

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close file %s: %v\n", filename, closeErr)
		}
	}()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"repo", "cmd", "no_cache_avg", "cold_time", "warm_avg"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, result := range results {
		if err := writer.Write([]string{result.Repository, result.Command, result.NoCacheTime, result.ColdTime, result.WarmTime}); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

// printSummary displays the final benchmark results summary.
func printSummary(results []BenchmarkResult) {
	fmt.Printf("Benchmark complete\n")

	printCommandSummary(results, "compute", "Compute:")
	printCommandSummary(results, "hotspots", "Hotspots Query:")
	printCommandSummary(results, "coupling", "Coupling Query:")
}

func printCommandSummary(results []BenchmarkResult, command, title string) {
	fmt.Printf("%s\n", title)
	for _, result := range results {
		if result.Command == command {
			fmt.Printf("  %-12s: No-cache: %s, Cold: %s, Warm: %s\n", result.Repository, result.NoCacheTime, result.ColdTime, result.WarmTime)
		}
	}
}
