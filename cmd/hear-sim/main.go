package main

import (
	"context"
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"math"
	"os"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/hearsys/hear-go/internal/mplsim"
	"github.com/hearsys/hear-go/pkg/hear"
)

// scenario describes one masked all-reduce run over a simulated cluster: how
// many ranks, what each contributes, and which knobs of hear.Config to set.
// This is the YAML-scripted counterpart to the scenarios spec.md's test
// suite runs in-process.
type scenario struct {
	Ranks    int       `yaml:"ranks"`
	Count    int       `yaml:"count"`
	Datatype string    `yaml:"datatype"`
	Op       string    `yaml:"op"`
	Values   [][]int64 `yaml:"values,omitempty"`

	Pipelining          bool `yaml:"pipelining"`
	BlockSize           int  `yaml:"blockSize"`
	PoolEnabled         bool `yaml:"poolEnabled"`
	PoolSize            int  `yaml:"poolSize"`
	PoolSlabLen         int  `yaml:"poolSlabLen"`
	AESBackend          bool `yaml:"aesBackend"`
	BaselinePassthrough bool `yaml:"baselinePassthrough"`
	DebugValidate       bool `yaml:"debugValidate"`
}

func main() {
	path := flag.String("scenario", "", "path to a scenario YAML file")
	flag.Parse()

	if *path == "" {
		log.Fatal("usage: hear-sim -scenario <file.yaml>")
	}

	sc, err := loadScenario(*path)
	if err != nil {
		log.Fatalf("load scenario: %v", err)
	}

	dtype, err := parseDatatype(sc.Datatype)
	if err != nil {
		log.Fatalf("scenario: %v", err)
	}
	op, err := parseOp(sc.Op)
	if err != nil {
		log.Fatalf("scenario: %v", err)
	}

	cfg := hear.Config{
		Pipelining:          sc.Pipelining,
		BlockSize:           sc.BlockSize,
		PoolEnabled:         sc.PoolEnabled,
		PoolSize:            sc.PoolSize,
		PoolSlabLen:         sc.PoolSlabLen,
		AESBackend:          sc.AESBackend,
		BaselinePassthrough: sc.BaselinePassthrough,
		DebugValidate:       sc.DebugValidate,
	}

	log.Printf("hear-sim: running %d ranks, count=%d, datatype=%s, op=%s", sc.Ranks, sc.Count, dtype, op)

	results, err := run(sc, dtype, op, cfg)
	if err != nil {
		log.Fatalf("run: %v", err)
	}

	for r, vals := range results {
		fmt.Printf("rank %d: %v\n", r, vals)
	}
}

func loadScenario(path string) (scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return scenario{}, err
	}
	defer f.Close()

	var sc scenario
	if err := yaml.NewDecoder(f).Decode(&sc); err != nil {
		return scenario{}, fmt.Errorf("decode yaml: %w", err)
	}
	if sc.Ranks <= 0 {
		return scenario{}, fmt.Errorf("scenario.ranks must be positive")
	}
	if sc.Count <= 0 {
		return scenario{}, fmt.Errorf("scenario.count must be positive")
	}
	return sc, nil
}

func parseDatatype(s string) (hear.Datatype, error) {
	switch s {
	case "int32":
		return hear.Int32, nil
	case "int64":
		return hear.Int64, nil
	case "float32":
		return hear.Float32, nil
	case "float64":
		return hear.Float64, nil
	default:
		return 0, fmt.Errorf("unknown datatype %q", s)
	}
}

func parseOp(s string) (hear.ReduceOp, error) {
	switch s {
	case "sum":
		return hear.OpSum, nil
	case "prod":
		return hear.OpProd, nil
	case "min":
		return hear.OpMin, nil
	case "max":
		return hear.OpMax, nil
	default:
		return 0, fmt.Errorf("unknown op %q", s)
	}
}

// run opens one Interposer per rank against a fresh mplsim cluster, issues
// one AllReduce scripted by sc, and returns every rank's decoded result.
func run(sc scenario, dtype hear.Datatype, op hear.ReduceOp, cfg hear.Config) ([][]string, error) {
	_, eps := mplsim.NewCluster(sc.Ranks)

	results := make([][]string, sc.Ranks)

	g, _ := errgroup.WithContext(context.Background())
	for i, ep := range eps {
		i, ep := i, ep
		g.Go(func() error {
			ip, err := hear.Open(ep, cfg)
			if err != nil {
				return err
			}
			defer ip.Close()

			values := contribution(sc, i)
			send := encode(values, dtype)
			recv := make([]byte, dtype.Size()*sc.Count)
			req := &hear.Request{Send: send, Recv: recv, Count: sc.Count, Datatype: dtype, Op: op, Comm: ep.CommWorld()}
			if err := ip.AllReduce(req); err != nil {
				return err
			}
			results[i] = decode(recv, sc.Count, dtype)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// contribution returns rank i's vector, either read from the scenario's
// explicit values or generated deterministically from the rank index.
func contribution(sc scenario, rank int) []int64 {
	if rank < len(sc.Values) {
		return sc.Values[rank]
	}
	values := make([]int64, sc.Count)
	for j := range values {
		values[j] = int64(rank+1)*10 + int64(j)
	}
	return values
}

func encode(values []int64, dtype hear.Datatype) []byte {
	b := make([]byte, dtype.Size()*len(values))
	for i, v := range values {
		switch dtype {
		case hear.Int32:
			binary.LittleEndian.PutUint32(b[i*4:], uint32(int32(v)))
		case hear.Int64:
			binary.LittleEndian.PutUint64(b[i*8:], uint64(v))
		case hear.Float32:
			binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(float32(v)))
		case hear.Float64:
			binary.LittleEndian.PutUint64(b[i*8:], math.Float64bits(float64(v)))
		}
	}
	return b
}

func decode(b []byte, count int, dtype hear.Datatype) []string {
	out := make([]string, count)
	for i := range out {
		switch dtype {
		case hear.Int32:
			out[i] = fmt.Sprintf("%d", int32(binary.LittleEndian.Uint32(b[i*4:])))
		case hear.Int64:
			out[i] = fmt.Sprintf("%d", int64(binary.LittleEndian.Uint64(b[i*8:])))
		case hear.Float32:
			out[i] = fmt.Sprintf("%g", math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:])))
		case hear.Float64:
			out[i] = fmt.Sprintf("%g", math.Float64frombits(binary.LittleEndian.Uint64(b[i*8:])))
		}
	}
	return out
}
