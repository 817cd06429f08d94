package doc

import (
	"encoding/csv"
	"fmt"
	"log"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/ValentinKolb/dCommerce/cmd/util"
	"github.com/ValentinKolb/dCommerce/lib/aggregate"
	ldoc "github.com/ValentinKolb/dCommerce/lib/doc"
	"github.com/ValentinKolb/dCommerce/lib/query"
	"github.com/ValentinKolb/dCommerce/rpc/common"
	"github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for dCommerce servers",
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfCollectionPrefix = "__perf"
	perfNumThreads       = 10
	perfDocSpread        = 100
	perfSkip             = make([]string, 0)

	// latency timers of the single requests, one per benchmark
	perfRegistry = metrics.NewRegistry()
)

// perfResult is the result of one benchmark
type perfResult struct {
	bench testing.BenchmarkResult
	timer metrics.Timer
}

// perfBenchmark describes one benchmark. op is called once the collection is filled
// and returns the operation that is measured
type perfBenchmark struct {
	name string
	op   func(coll string, ids []string) func(counter int) error
}

var perfBenchmarks = []perfBenchmark{
	{"create", func(coll string, _ []string) func(int) error {
		return func(counter int) error {
			_, err := rpcStore.Create(coll, perfDocument(counter))
			return err
		}
	}},
	{"read", func(coll string, ids []string) func(int) error {
		return func(counter int) error {
			_, _, err := rpcStore.Read(coll, ids[counter%len(ids)])
			return err
		}
	}},
	{"update", func(coll string, ids []string) func(int) error {
		return func(counter int) error {
			_, err := rpcStore.Update(coll, ids[counter%len(ids)], ldoc.Document{"price": ldoc.Num(float64(counter%1000) / 10)})
			return err
		}
	}},
	{"list", func(coll string, _ []string) func(int) error {
		return func(counter int) error {
			_, err := rpcStore.List(coll, 10, counter%perfDocSpread, nil)
			return err
		}
	}},
	{"search", func(coll string, _ []string) func(int) error {
		return func(counter int) error {
			_, err := rpcStore.Search(coll, fmt.Sprintf("item %d", counter%perfDocSpread), nil, 10)
			return err
		}
	}},
	{"query", func(coll string, _ []string) func(int) error {
		spec := query.Spec{
			Filters: query.Filters{"category": ldoc.Str("even")},
			OrderBy: []query.SortColumn{{Field: "price", IsDescending: true}},
			Top:     10,
		}
		return func(counter int) error {
			page := spec
			page.Skip = counter % 5 * 10
			_, err := rpcStore.Query(coll, page)
			return err
		}
	}},
	{"apply", func(coll string, ids []string) func(int) error {
		return func(counter int) error {
			_, _, err := rpcStore.Apply(coll, ids[counter%len(ids)], aggregate.AddLines(aggregate.CartLine{
				ProductID: fmt.Sprintf("PROD%03d", counter%10),
				Quantity:  1,
				UnitPrice: 9.99,
			}))
			return err
		}
	}},
	{"mixed", func(coll string, ids []string) func(int) error {
		return func(counter int) error {
			id := ids[counter%len(ids)]
			var err error
			switch counter % 4 {
			case 0: // read
				_, _, err = rpcStore.Read(coll, id)
			case 1: // update
				_, err = rpcStore.Update(coll, id, ldoc.Document{"stock": ldoc.Int(counter)})
			case 2: // count
				_, err = rpcStore.Count(coll, query.Filters{"category": ldoc.Str("odd")})
			case 3: // apply
				_, _, err = rpcStore.Apply(coll, id, aggregate.SetFields(ldoc.Document{"status": ldoc.Str("Active")}))
			}
			return err
		}
	}},
}

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. create,apply)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark"))
	key = "docs"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many documents each benchmark prepares and works on"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfDocSpread = max(viper.GetInt("docs"), 1)
	perfNumThreads = viper.GetInt("threads")
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

func runPerf(_ *cobra.Command, _ []string) error {

	fmt.Println("Performance testing tool for dCommerce servers")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(util.GetClientConfig().String())
	fmt.Printf("Threads: %d\n", perfNumThreads)
	fmt.Printf("Documents: %d\n", perfDocSpread)
	fmt.Println()

	fmt.Println("staring tests...")

	// Create results map
	results := make(map[string]perfResult)

	for _, bench := range perfBenchmarks {
		timer := metrics.GetOrRegisterTimer(bench.name, perfRegistry)
		result := testing.Benchmark(func(b *testing.B) {
			if shouldSkip(bench.name) {
				return
			}
			coll := fmt.Sprintf("%s_%s", perfCollectionPrefix, bench.name)

			// prepare documents
			ids := prepareDocuments(coll)

			// cleanup
			b.Cleanup(func() { cleanupCollection(coll) })

			op := bench.op(coll, ids)

			b.SetParallelism(perfNumThreads)

			b.ResetTimer()

			b.RunParallel(func(pb *testing.PB) {
				counter := 0
				for pb.Next() {
					start := time.Now()
					if err := op(counter); err != nil {
						log.Printf("(%s) - error: %v\n", bench.name, err)
					}
					timer.UpdateSince(start)
					counter++
				}
			})
		})

		results[bench.name] = perfResult{bench: result, timer: timer}
		printResult(bench.name, results[bench.name])
	}

	// Write results to csv is specified
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
	return slices.Contains(perfSkip, test)
}

// perfDocument returns the i-th benchmark document
func perfDocument(i int) ldoc.Document {
	category := "even"
	if i%2 == 1 {
		category = "odd"
	}
	return ldoc.Document{
		"name":        ldoc.Str(fmt.Sprintf("Item %d", i)),
		"description": ldoc.Str("benchmark document"),
		"category":    ldoc.Str(category),
		"price":       ldoc.Num(float64(i%1000) / 10),
		"stock":       ldoc.Int(i),
		"lines":       ldoc.List(),
	}
}

// prepareDocuments fills the collection with perfDocSpread documents and returns their ids
func prepareDocuments(coll string) []string {
	ids := make([]string, 0, perfDocSpread)
	for i := 0; i < perfDocSpread; i++ {
		id, err := rpcStore.Create(coll, perfDocument(i))
		if err != nil {
			log.Printf("(%s) - error creating document: %v\n", coll, err)
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		// keep the benchmarks indexable, reads of a missing id are cheap no-ops
		ids = append(ids, "missing")
	}
	return ids
}

// cleanupCollection deletes every document of the collection
func cleanupCollection(coll string) {
	for {
		docs, err := rpcStore.List(coll, query.DefaultLimit, 0, nil)
		if err != nil {
			log.Printf("(%s) - error listing documents: %v\n", coll, err)
			return
		}
		if len(docs) == 0 {
			return
		}
		for _, d := range docs {
			id, _ := d.ID()
			if _, err := rpcStore.Delete(coll, id); err != nil {
				log.Printf("(%s) - error deleting document: %v\n", coll, err)
				return
			}
		}
	}
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, result perfResult) {
	if result.bench.NsPerOp() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.bench.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)

	// latency of the single requests
	snapshot := result.timer.Snapshot()
	ps := snapshot.Percentiles([]float64{0.5, 0.99})

	// Print the formatted result
	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec\tp50=%s p99=%s\n",
		test, nsPerOp, time.Duration(nsPerOp), opsPerSec,
		time.Duration(ps[0]), time.Duration(ps[1]))
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
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "Skipped",
		"Requests", "MeanLatencyNs", "P50LatencyNs", "P99LatencyNs",
		"Endpoints", "TimeoutSec", "RetryCount", "ConnectionsPerEndpoint",
		"ShardID", "Serializer", "Transport",
		"Threads", "Documents",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	// Write test results in a stable order
	tests := make([]string, 0, len(results))
	for test := range results {
		tests = append(tests, test)
	}
	slices.Sort(tests)

	for _, test := range tests {
		result := results[test]
		var nsPerOp float64
		var opsPerSec float64
		var skipped string

		if result.bench.NsPerOp() == 0 {
			skipped = "true"
		} else {
			skipped = "false"
			nsPerOp = math.Max(float64(result.bench.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
		}

		snapshot := result.timer.Snapshot()
		ps := snapshot.Percentiles([]float64{0.5, 0.99})

		row := []string{
			test,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			skipped,
			strconv.FormatInt(snapshot.Count(), 10),
			fmt.Sprintf("%.0f", snapshot.Mean()),
			fmt.Sprintf("%.0f", ps[0]),
			fmt.Sprintf("%.0f", ps[1]),
			strings.Join(config.Transport.Endpoints, ";"),
			strconv.Itoa(config.TimeoutSecond),
			strconv.Itoa(config.Transport.RetryCount),
			strconv.Itoa(config.Transport.ConnectionsPerEndpoint),
			strconv.FormatUint(util.GetShardID(), 10),
			viper.GetString("serializer"),
			viper.GetString("transport"),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfDocSpread),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	return nil
}
