// Command paxosnode launches one full local cluster of single-decree
// Paxos nodes in a single process, has every active proposer propose a
// random value concurrently, and after all proposers return waits one
// more timeout window for the rest of the cluster before exiting. It does
// not check that every node has decided.
//
// Grounded on spf13/cobra (present in the pack's networkprogramming
// module) for the flag surface spec §6 calls for.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/paxoslab/consensus/internal/config"
	"github.com/paxoslab/consensus/internal/logging"
	"github.com/paxoslab/consensus/internal/node"
	"github.com/paxoslab/consensus/internal/transport"
)

func main() {
	var (
		faultyID      int
		transportKind string
		dropProb      float64
	)

	root := &cobra.Command{
		Use:   "paxosnode",
		Short: "Run a local single-decree Paxos cluster",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), faultyID, transportKind, dropProb)
		},
	}
	root.Flags().IntVar(&faultyID, "processo-com-erro", -1,
		"id of the node whose sends are delayed past TIMEOUT (spec fault injection; -1 disables)")
	root.Flags().StringVar(&transportKind, "transport", "memory",
		"endpoint implementation to wire: memory (in-process, default) or udp")
	root.Flags().Float64Var(&dropProb, "drop-prob", 0,
		"memory transport only: per-datagram drop probability in [0,0.3]")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, faultyID int, transportKind string, dropProb float64) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	log := logging.L()

	nodes, cleanup, err := buildCluster(cfg, transportKind, faultyID, dropProb)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(ctx, watchdogBudget(cfg))
	defer cancel()

	proposerIDs := cfg.ProposerIDs()
	proposerSet := make(map[int]bool, len(proposerIDs))
	for _, id := range proposerIDs {
		proposerSet[id] = true
	}

	// Proposer-capable nodes service inbound PREPARE/ACCEPT/DECIDE as a
	// side effect of Propose's own NextReply loop (dual role, spec §4.4) —
	// they must NOT also run Run on the same endpoint, or the two
	// goroutines would race over the same inbox. Pure acceptor/learner
	// nodes have nothing but Run to drive them.
	runPassive(ctx, nodes, proposerSet, log)

	if len(proposerIDs) == 0 {
		log.Info("no active proposers configured; running as pure acceptor/learner cluster")
		<-ctx.Done()
		return nil
	}

	type result struct {
		id     int
		chosen int
		err    error
	}
	results := make(chan result, len(proposerIDs))
	for _, id := range proposerIDs {
		id := id
		value := rand.Intn(100) + 1
		log.Info("proposing value", "node_id", id, "value", value)
		go func() {
			chosen, err := nodes[id].Propose(ctx, value)
			results <- result{id: id, chosen: chosen, err: err}
		}()
	}

	var firstErr error
	for range proposerIDs {
		r := <-results
		if r.err != nil {
			log.Error("falha ao alcançar consenso", "node_id", r.id, "err", r.err)
			if firstErr == nil {
				firstErr = r.err
			}
			continue
		}
		log.Info("resultado final", "node_id", r.id, "value", r.chosen)
	}
	if firstErr != nil {
		return firstErr
	}

	// Give the rest of the cluster one more timeout window to absorb DECIDE
	// before the watchdog tears everything down.
	select {
	case <-time.After(cfg.Timeout()):
	case <-ctx.Done():
	}
	return nil
}

// watchdogBudget bounds the whole run: long enough for a handful of
// proposer retries, short enough to fail loudly if consensus stalls.
func watchdogBudget(cfg config.Config) time.Duration {
	return cfg.Timeout() * 20
}

// buildCluster constructs every node id 0..TotalNodes+Learners-1 and binds
// each to its own endpoint, optionally wrapping one in a FaultyEndpoint.
func buildCluster(cfg config.Config, transportKind string, faultyID int, dropProb float64) ([]*node.Node, func(), error) {
	total := cfg.TotalNodes + cfg.Learners
	nodes := make([]*node.Node, total)
	endpoints := make([]transport.Endpoint, total)

	var network *transport.Network
	if transportKind == "udp" {
		for id := 0; id < total; id++ {
			ep, err := transport.Bind(id, cfg.BasePort)
			if err != nil {
				closeAll(endpoints)
				return nil, func() {}, err
			}
			endpoints[id] = ep
		}
	} else {
		network = transport.NewNetwork(dropProb, nil)
		for id := 0; id < total; id++ {
			endpoints[id] = network.Bind(id)
		}
	}

	if faultyID >= 0 && faultyID < total {
		endpoints[faultyID] = transport.NewFaultyEndpoint(endpoints[faultyID], cfg.Timeout()+2*time.Second)
	}

	for id := 0; id < total; id++ {
		nodes[id] = node.New(node.Config{
			ID:          id,
			IsProposer:  cfg.IsProposer(id),
			IsLearner:   cfg.IsLearner(id),
			AcceptorIDs: cfg.AcceptorIDs(),
			LearnerIDs:  cfg.LearnerIDs(),
			QuorumSize:  cfg.QuorumSize(),
			Timeout:     cfg.Timeout(),
			Endpoint:    endpoints[id],
		})
	}

	cleanup := func() {
		for _, n := range nodes {
			n.Stop()
		}
		closeAll(endpoints)
	}
	return nodes, cleanup, nil
}

func closeAll(endpoints []transport.Endpoint) {
	for _, ep := range endpoints {
		if ep != nil {
			_ = ep.Close()
		}
	}
}

// runPassive starts the receive loop for every node that is not itself a
// proposer. Proposer-capable nodes service their own endpoint from inside
// Propose's NextReply dispatch instead (see the race note in run).
func runPassive(ctx context.Context, nodes []*node.Node, proposerSet map[int]bool, log interface {
	Info(string, ...any)
}) {
	for _, n := range nodes {
		if proposerSet[n.ID()] {
			continue
		}
		n := n
		go func() {
			if err := n.Run(ctx); err != nil && ctx.Err() == nil {
				log.Info("node exited", "node_id", n.ID(), "err", err)
			}
		}()
	}
}
