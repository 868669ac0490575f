package server

import (
	"fmt"
	"net/http"
	"os/signal"
	"runtime"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4"
	"github.com/lni/dragonboat/v4/logger"

	"github.com/pcrawfurd/dIPFS/lib/chain"
	"github.com/pcrawfurd/dIPFS/lib/node"
	"github.com/pcrawfurd/dIPFS/lib/node/httpapi"
	"github.com/pcrawfurd/dIPFS/lib/node/memnode"
	"github.com/pcrawfurd/dIPFS/lib/offchain"
	"github.com/pcrawfurd/dIPFS/lib/queue"
	"github.com/pcrawfurd/dIPFS/lib/queue/dqueue"
	"github.com/pcrawfurd/dIPFS/lib/queue/lqueue"
	"github.com/pcrawfurd/dIPFS/rpc/common"
	"github.com/pcrawfurd/dIPFS/rpc/serializer"
	"github.com/pcrawfurd/dIPFS/rpc/transport"
)

var Logger = logger.GetLogger("rpc")

// DefaultBlockIntervalMillisecond is used when no block interval is configured.
const DefaultBlockIntervalMillisecond = 6000

// NewRPCServer creates a new bridge server
// It takes a config, transport and serializer as parameters
//
// Usage:
//
//	s := server.NewRPCServer(
//		*config,
//		tcp.NewTCPDefaultServerTransport(),
//		serializer.NewJSONSerializer(),
//	)
//
//	if err := s.Serve(); err != nil {
//		panic(err)
//	 }
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
	serializer serializer.IRPCSerializer,
) rpcServer {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	Logger.Infof("Created bridge server")
	Logger.Infof(config.String())

	return rpcServer{
		config:     config,
		transport:  transport,
		serializer: serializer,
	}
}

type rpcServer struct {
	config     common.ServerConfig
	transport  transport.IRPCServerTransport
	serializer serializer.IRPCSerializer
	adapter    IRPCServerAdapter
	module     *chain.Module
	worker     *offchain.Worker
	events     *chain.EventLog
	height     atomic.Uint64
}

func (s *rpcServer) registerTransportHandler() {
	s.transport.RegisterHandler(func(shardId uint64, req []byte) []byte {
		var msg common.Message
		var respMsg common.Message

		// Only the configured queue shard is served
		if shardId != s.config.ShardID {
			respMsg = common.Message{
				MsgType: common.MsgTError,
				Err:     "shard not found",
			}
		} else {
			// Decode the request
			err := s.serializer.Deserialize(req, &msg)

			if err != nil {
				respMsg = common.Message{
					MsgType: common.MsgTError,
					Err:     fmt.Sprintf("failed to deserialize request: %s", err),
				}
			} else {
				// Let the adapter handle the request
				respMsg = *s.adapter.Handle(&msg)
			}
		}

		// Return result
		val, err := s.serializer.Serialize(respMsg)
		if err != nil {
			respMsg = common.Message{
				MsgType: common.MsgTError,
				Err:     fmt.Sprintf("failed to serialize response: %s", err),
			}
			val, _ = s.serializer.Serialize(respMsg)
		}
		return val
	})
}

func (s *rpcServer) init() error {

	// Init logger
	common.InitLoggers(s.config)

	// Configure the timeout for the distributed queue store
	timeout := time.Duration(s.config.TimeoutSecond) * time.Second

	// CREATE THE QUEUE STORE

	/*
		Note: The command queues either live in process memory or on a RAFT
		shard replicated across the cluster. In raft mode every bridge node
		sees the same queues, so submissions can be sent to any node.
	*/

	var queues queue.IStore
	if s.config.IsRaft() {
		nodeHost, err := dragonboat.NewNodeHost(s.config.ToNodeHostConfig())
		if err != nil {
			return fmt.Errorf("failed to create node host: %w", err)
		}

		// Start Raft for the queue shard
		if err := nodeHost.StartConcurrentReplica(s.config.ClusterMembers, false, dqueue.CreateStateMachineFactory(), s.config.ToDragonboatConfig(s.config.ShardID)); err != nil {
			return fmt.Errorf("failed to start queue shard %d: %w", s.config.ShardID, err)
		}

		queues = dqueue.NewDistributedStore(nodeHost, s.config.ShardID, timeout)
		Logger.Infof("created replicated queues on shard %d", s.config.ShardID)
	} else {
		queues = lqueue.NewLocalStore()
		Logger.Infof("created local queues")
	}

	// CREATE THE NODE GATEWAY

	var gw node.IGateway
	if s.config.NodeAPIAddr != "" {
		gw = httpapi.NewGateway(s.config.NodeAPIAddr)
		Logger.Infof("using kubo HTTP API at %s", s.config.NodeAPIAddr)
	} else {
		gw = memnode.New()
		Logger.Infof("using in-memory node")
	}

	// CREATE THE BRIDGE

	s.events = chain.NewEventLog(256)
	s.module = chain.NewModule(queues, chain.NewSignedOriginAuth(), s.events)
	s.worker = offchain.NewWorker(queues, gw)
	s.adapter = NewBridgeAdapter(s.module, queues)

	Logger.Infof("dIPFS setup completed successfully")

	// Configure the transport layer
	s.registerTransportHandler()

	// Optionally expose Prometheus metrics
	if s.config.MetricsEndpoint != "" {
		go s.serveMetrics()
	}

	return nil
}

// Serve starts the bridge server
// This function initializes the queues, starts block production and the transport layer
func (s *rpcServer) Serve() error {
	err := s.init()
	if err != nil {
		return err
	}
	go s.produceBlocks()
	return s.transport.Listen(s.config)
}

// Height returns the height of the block currently being built
func (s *rpcServer) Height() uint64 {
	return s.height.Load()
}

// --------------------------------------------------------------------------
// Block Production
// --------------------------------------------------------------------------

// produceBlocks drives the block lifecycle. Each tick finalizes the current
// block: the queues are frozen before the next block's initialization hook
// resets them, then drained off the hot path. Submissions arriving between
// ticks land in the open block.
func (s *rpcServer) produceBlocks() {
	interval := time.Duration(s.config.BlockIntervalMillisecond) * time.Millisecond
	if interval <= 0 {
		interval = DefaultBlockIntervalMillisecond * time.Millisecond
	}

	// Open the first block
	s.height.Store(1)
	s.module.OnInitialize(1)
	Logger.Infof("block production started with a %s interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		s.produceBlock()
	}
}

// produceBlock finalizes the current block and opens the next one. The
// queue freeze must happen before OnInitialize wipes the queues, only the
// dispatch itself runs in the background.
func (s *rpcServer) produceBlock() {
	finalized := s.height.Load()
	batch := s.worker.Collect(finalized)

	go func() {
		if err := s.worker.Dispatch(batch); err != nil {
			Logger.Errorf("offchain worker failed at height %d: %v", batch.Height, err)
		}
	}()

	// Open the next block
	next := finalized + 1
	s.height.Store(next)
	s.module.OnInitialize(next)
}

// --------------------------------------------------------------------------
// Metrics
// --------------------------------------------------------------------------

func (s *rpcServer) serveMetrics() {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		metrics.WritePrometheus(w, true)
	})
	Logger.Infof("serving metrics on %s", s.config.MetricsEndpoint)
	if err := http.ListenAndServe(s.config.MetricsEndpoint, mux); err != nil {
		Logger.Errorf("metrics server failed: %v", err)
	}
}
