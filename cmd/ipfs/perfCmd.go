package ipfs

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/pcrawfurd/dIPFS/cmd/util"
	"github.com/pcrawfurd/dIPFS/lib/queue"
	"github.com/pcrawfurd/dIPFS/rpc/common"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for dIPFS bridge nodes",
		Long:    "",
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfLargeValueSizeKB = 100
	perfNumThreads       = 10
	perfSkip             = make([]string, 0)
)

func init() {
	// add flags
	key := "skip"
	IpfsCommands.PersistentFlags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. add,connect)"))
	key = "threads"
	IpfsCommands.PersistentFlags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark"))
	key = "large-value-size"
	IpfsCommands.PersistentFlags().Int(key, 1000, util.WrapString("How large the value for the add-large test should be (in KB)"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfLargeValueSizeKB = viper.GetInt("large-value-size")
	perfNumThreads = viper.GetInt("threads")
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

// perfResult bundles the throughput measurement with the latency histogram
// of a single benchmark
type perfResult struct {
	bench   testing.BenchmarkResult
	latency gometrics.Histogram
}

func runPerf(_ *cobra.Command, _ []string) error {

	fmt.Println("Performance testing tool for dIPFS bridge nodes")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(util.GetClientConfig().String())
	fmt.Printf("Threads: %d\n", perfNumThreads)
	fmt.Println()

	fmt.Println("starting tests...")

	origin := util.GetOrigin()
	if origin == "" {
		origin = "perf"
	}

	// Create results map
	results := make(map[string]perfResult)

	// Each benchmark queues submissions on the bridge. The queues are
	// cleared by the node every block, so no cleanup is needed here.
	benchmarks := []struct {
		name string
		op   func(counter int) error
	}{
		{
			name: "connect",
			op: func(counter int) error {
				addr := fmt.Sprintf("/ip4/127.0.0.1/tcp/%d/p2p/QmPerfPeer%d", 4001+counter%100, counter%100)
				return bridge.Connect(origin, []byte(addr))
			},
		},
		{
			name: "add",
			op: func(counter int) error {
				return bridge.AddBytes(origin, []byte(fmt.Sprintf("perf-%d", counter)))
			},
		},
		{
			name: "add-large",
			op: func() func(int) error {
				largeValue := make([]byte, perfLargeValueSizeKB*1024)
				return func(int) error {
					return bridge.AddBytes(origin, largeValue)
				}
			}(),
		},
		{
			name: "find-providers",
			op: func(counter int) error {
				return bridge.DhtFindProviders(origin, []byte(fmt.Sprintf("QmPerfCid%d", counter%100)))
			},
		},
		{
			name: "queue-len",
			op: func(int) error {
				_, err := bridge.QueueLen(queue.Data)
				return err
			},
		},
		{
			name: "mixed",
			op: func(counter int) error {
				switch counter % 3 {
				case 0:
					return bridge.AddBytes(origin, []byte("perf"))
				case 1:
					return bridge.CatBytes(origin, []byte(fmt.Sprintf("QmPerfCid%d", counter%100)))
				default:
					_, err := bridge.QueueLen(queue.Data)
					return err
				}
			},
		},
	}

	for _, bm := range benchmarks {
		latency := gometrics.NewHistogram(gometrics.NewExpDecaySample(1028, 0.015))

		result := testing.Benchmark(func(b *testing.B) {
			if shouldSkip(bm.name) {
				return
			}

			b.SetParallelism(perfNumThreads)
			b.ResetTimer()

			b.RunParallel(func(pb *testing.PB) {
				counter := 0
				for pb.Next() {
					start := time.Now()
					if err := bm.op(counter); err != nil {
						fmt.Printf("(%s) - error: %v\n", bm.name, err)
					}
					latency.Update(time.Since(start).Nanoseconds())
					counter++
				}
			})
		})

		results[bm.name] = perfResult{bench: result, latency: latency}
		printResult(bm.name, results[bm.name])
	}

	// Write results to csv if specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results, util.GetClientConfig()); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func shouldSkip(test string) bool {
	// Check if the test is in the skip list
	for _, skip := range perfSkip {
		if test == skip {
			return true
		}
	}
	return false
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, result perfResult) {
	if result.bench.NsPerOp() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.bench.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)
	percentiles := result.latency.Percentiles([]float64{0.5, 0.95, 0.99})

	// Print the formatted result
	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec\tp50=%s p95=%s p99=%s\n",
		test, nsPerOp, time.Duration(nsPerOp), opsPerSec,
		time.Duration(percentiles[0]), time.Duration(percentiles[1]), time.Duration(percentiles[2]),
	)
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]perfResult, config *common.ClientConfig) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "P50Ns", "P95Ns", "P99Ns", "Skipped",
		"Endpoints", "TimeoutSec", "RetryCount", "ConnectionsPerEndpoint",
		"ShardID", "Serializer", "Transport",
		"Threads", "LargeValueSizeKB",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	// Write test results
	for test, result := range results {
		var nsPerOp float64
		var opsPerSec float64
		var skipped string

		if result.bench.NsPerOp() == 0 {
			skipped = "true"
			nsPerOp = 0
			opsPerSec = 0
		} else {
			skipped = "false"
			nsPerOp = math.Max(float64(result.bench.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
		}

		percentiles := result.latency.Percentiles([]float64{0.5, 0.95, 0.99})

		row := []string{
			test,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			fmt.Sprintf("%.0f", percentiles[0]),
			fmt.Sprintf("%.0f", percentiles[1]),
			fmt.Sprintf("%.0f", percentiles[2]),
			skipped,
			strings.Join(config.Transport.Endpoints, ";"),
			strconv.Itoa(config.TimeoutSecond),
			strconv.Itoa(config.Transport.RetryCount),
			strconv.Itoa(config.Transport.ConnectionsPerEndpoint),
			strconv.FormatUint(util.GetShardID(), 10),
			viper.GetString("serializer"),
			viper.GetString("transport"),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfLargeValueSizeKB),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	return nil
}
