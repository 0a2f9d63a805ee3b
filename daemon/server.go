// Copyright (C) 2025 Mono Technologies Inc.
//
// This program is free software; you can redistribute it and/or
// modify it under the terms of the GNU General Public License
// as published by the Free Software Foundation; version 2.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.

package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/we-are-mono/wledbridge/host"
	"github.com/we-are-mono/wledbridge/logger"
	"github.com/we-are-mono/wledbridge/state"
)

// ControllerAddress is the address the plugin registers its controller node under
const ControllerAddress = "controller"

// requestTimeout bounds a single plugin call made on behalf of a client
const requestTimeout = 30 * time.Second

// GetSocketPath returns the socket path, preferring WLEDBRIDGE_SOCKET_PATH env var
func GetSocketPath() string {
	if path := os.Getenv("WLEDBRIDGE_SOCKET_PATH"); path != "" {
		return path
	}
	return "/var/run/wledbridge.sock"
}

// handlerFunc is a function that handles a daemon command
type handlerFunc func(Request) Response

// Server is the development hub: it runs the plugin, schedules its polls and
// answers CLI requests on a Unix socket.
type Server struct {
	config    *state.BridgeConfig
	listener  net.Listener
	done      chan struct{}
	stopOnce  sync.Once
	handlers  map[string]handlerFunc
	node      host.NodeServer
	client    *host.PluginClient
	registry  *NodeRegistry
	history   *History
	hub       *Hub
	runID     string
	startedAt time.Time
	metadata  host.Metadata
	cancel    context.CancelFunc
}

// NewServer creates the socket and the hub-side state. The plugin is loaded
// by Start.
func NewServer(config *state.BridgeConfig) (*Server, error) {
	socketPath := GetSocketPath()
	os.Remove(socketPath)

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create socket: %w", err)
	}

	if err := os.Chmod(socketPath, 0666); err != nil {
		listener.Close()
		return nil, fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s := &Server{
		config:    config,
		listener:  listener,
		done:      make(chan struct{}),
		registry:  NewNodeRegistry(),
		runID:     uuid.NewString(),
		startedAt: time.Now(),
	}

	if config.HistoryPath != "" {
		history, err := OpenHistory(config.HistoryPath, s.runID)
		if err != nil {
			logger.Warn("Driver history disabled", logger.Err(err))
		} else {
			s.history = history
		}
	}

	s.hub = NewHub(s.registry, s.history, config.ProfileDir)
	s.initHandlers()
	return s, nil
}

func (s *Server) initHandlers() {
	s.handlers = map[string]handlerFunc{
		"status":          func(req Request) Response { return s.handleStatus() },
		"nodes":           func(req Request) Response { return s.handleNodes() },
		"command":         s.handleCommand,
		"discover":        func(req Request) Response { return s.handleDiscover() },
		"query":           s.handleQuery,
		"install-profile": s.handleInstallProfile,
		"history":         s.handleHistory,
	}
}

// Start loads the plugin, starts it with the configured host list, runs the
// scheduler and then serves socket connections until Stop.
func (s *Server) Start() error {
	logger.Info("wledbridge daemon starting", logger.F("run_id", s.runID))

	if err := s.loadPlugin(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	// A start failure leaves the controller at ST=0; the daemon keeps serving
	if err := s.node.Start(ctx, map[string]string{"host": s.config.Host}); err != nil {
		logger.Error("Plugin start failed", logger.Err(err))
	}

	scheduler := NewScheduler(s.node,
		time.Duration(s.config.ShortPoll)*time.Second,
		time.Duration(s.config.LongPoll)*time.Second)
	go scheduler.Run(ctx)

	logger.Info("Daemon listening", logger.F("socket", GetSocketPath()))

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return nil
			default:
				logger.Error("Failed to accept connection", logger.Err(err))
				continue
			}
		}

		go s.handleConnection(conn)
	}
}

// loadPlugin launches the plugin binary and wires the reverse channel to the hub
func (s *Server) loadPlugin() error {
	path, err := host.NewPluginManager().FindPlugin(s.config.Plugin)
	if err != nil {
		return fmt.Errorf("failed to find plugin: %w", err)
	}

	client, err := host.NewPluginClient(path)
	if err != nil {
		return fmt.Errorf("failed to start plugin: %w", err)
	}

	node, err := client.Dispense()
	if err != nil {
		client.Close()
		return fmt.Errorf("failed to dispense plugin: %w", err)
	}

	if err := client.SetupHostService(s.hub); err != nil {
		client.Close()
		return fmt.Errorf("failed to set up host service: %w", err)
	}

	metadata, err := node.Metadata(context.Background())
	if err != nil {
		logger.Warn("Failed to read plugin metadata", logger.Err(err))
	}

	s.client = client
	s.node = node
	s.metadata = metadata

	logger.Info("Plugin loaded",
		logger.F("plugin", metadata.Name),
		logger.F("version", metadata.Version),
		logger.F("path", path))
	return nil
}

// Stop shuts the plugin down and removes the socket
func (s *Server) Stop() error {
	s.stopOnce.Do(func() {
		close(s.done)
		if s.cancel != nil {
			s.cancel()
		}
		if s.node != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := s.node.Delete(ctx); err != nil {
				logger.Warn("Plugin delete failed", logger.Err(err))
			}
			cancel()
		}
		if s.client != nil {
			s.client.Close()
		}
		if s.listener != nil {
			s.listener.Close()
		}
		if s.history != nil {
			s.history.Close()
		}
		os.Remove(GetSocketPath())
	})
	return nil
}

func (s *Server) handleConnection(conn net.Conn) {
	reader := bufio.NewReader(conn)
	data, err := reader.ReadBytes('\n')
	if err != nil {
		conn.Close()
		return
	}

	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		s.sendResponse(conn, Response{
			Success: false,
			Error:   fmt.Sprintf("invalid request: %v", err),
		})
		conn.Close()
		return
	}

	// Log streaming keeps the connection open
	if req.Command == "logs-subscribe" {
		defer conn.Close()

		filter := req.LogFilter
		if filter == nil {
			filter = &LogFilter{}
		}
		s.handleLogsSubscribe(conn, filter)
		return
	}

	defer conn.Close()
	resp := s.handleRequest(req)
	s.sendResponse(conn, resp)
}

func (s *Server) handleRequest(req Request) Response {
	handler, exists := s.handlers[req.Command]
	if !exists {
		return Response{Success: false, Error: fmt.Sprintf("unknown command: %s", req.Command)}
	}
	return handler(req)
}

func (s *Server) handleLogsSubscribe(conn net.Conn, filter *LogFilter) {
	subscriber := NewSocketLogSubscriber(conn, filter)

	emitter := logger.GetEmitter()
	if emitter == nil {
		logger.Error("Logger emitter not initialized")
		return
	}

	emitter.Subscribe(subscriber)
	defer func() {
		emitter.Unsubscribe(subscriber)
		subscriber.Close()
	}()

	logger.Info("Client subscribed to log stream",
		logger.F("level", filter.Level),
		logger.F("component", filter.Component))

	// Hold the connection until the client goes away
	buffer := make([]byte, 1)
	for {
		if _, err := conn.Read(buffer); err != nil {
			logger.Info("Client unsubscribed from log stream")
			return
		}
	}
}

func (s *Server) sendResponse(conn net.Conn, resp Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		logger.Error("Failed to marshal response", logger.Err(err))
		return
	}

	data = append(data, '\n')
	if _, err := conn.Write(data); err != nil {
		logger.Error("Failed to write response", logger.Err(err))
	}
}

func (s *Server) requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}

func (s *Server) pluginReady() *Response {
	if s.node == nil {
		return &Response{Success: false, Error: "plugin is not loaded"}
	}
	return nil
}

func (s *Server) handleStatus() Response {
	info := StatusInfo{
		Plugin:          s.metadata.Name,
		Version:         s.metadata.Version,
		RunID:           s.runID,
		StartedAt:       s.startedAt,
		Nodes:           s.registry.Len(),
		ProfileInstalls: s.hub.Installs(),
	}
	if s.config != nil {
		info.ShortPoll = s.config.ShortPoll
		info.LongPoll = s.config.LongPoll
	}
	if st, ok := s.registry.Driver(ControllerAddress, "ST"); ok {
		info.ControllerST = st.Value
	}
	if reports := s.registry.Reports(); len(reports) > 0 {
		last := reports[len(reports)-1]
		info.LastReport = &last
	}

	message := "Controller is down"
	if info.ControllerST == 1 {
		message = "Controller is up"
	}
	return Response{Success: true, Message: message, Data: info}
}

func (s *Server) handleNodes() Response {
	return Response{Success: true, Data: s.registry.Nodes()}
}

func (s *Server) sendCommand(cmd host.Command) Response {
	if resp := s.pluginReady(); resp != nil {
		return *resp
	}

	ctx, cancel := s.requestContext()
	defer cancel()

	if err := s.node.HandleCommand(ctx, cmd); err != nil {
		return Response{Success: false, Error: err.Error()}
	}
	return Response{
		Success: true,
		Message: fmt.Sprintf("%s sent to %s", cmd.Name, cmd.Address),
	}
}

func (s *Server) handleCommand(req Request) Response {
	if req.Address == "" || req.NodeCommand == "" {
		return Response{Success: false, Error: "command requires an address and a command name"}
	}
	return s.sendCommand(host.Command{Address: req.Address, Name: req.NodeCommand, Value: req.Value})
}

func (s *Server) handleDiscover() Response {
	return s.sendCommand(host.Command{Address: ControllerAddress, Name: "DISCOVERY"})
}

// handleQuery forces a report of every node, or of one node when an address
// is given
func (s *Server) handleQuery(req Request) Response {
	if req.Address != "" {
		return s.sendCommand(host.Command{Address: req.Address, Name: "QUERY"})
	}
	if resp := s.pluginReady(); resp != nil {
		return *resp
	}

	ctx, cancel := s.requestContext()
	defer cancel()

	if err := s.node.Query(ctx); err != nil {
		return Response{Success: false, Error: err.Error()}
	}
	return Response{Success: true, Message: "Query sent to all nodes"}
}

// handleInstallProfile asks a device to rebuild the profile. Without an
// address the first registered device is used.
func (s *Server) handleInstallProfile(req Request) Response {
	address := req.Address
	if address == "" {
		for _, n := range s.registry.Nodes() {
			if n.Address != ControllerAddress {
				address = n.Address
				break
			}
		}
	}
	if address == "" {
		return Response{Success: false, Error: "no device is registered"}
	}
	return s.sendCommand(host.Command{Address: address, Name: "SET_PROFILE"})
}

func (s *Server) handleHistory(req Request) Response {
	if s.history == nil {
		return Response{Success: false, Error: "driver history is disabled"}
	}
	if req.Address == "" {
		return Response{Success: false, Error: "history requires an address"}
	}

	records, err := s.history.Query(req.Address, req.Driver, req.Limit)
	if err != nil {
		return Response{Success: false, Error: err.Error()}
	}
	return Response{Success: true, Data: records}
}
