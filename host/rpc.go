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

package host

import (
	"context"
	"fmt"
	"net/rpc"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-plugin"
)

// Handshake is used to verify that hub and plugin are compatible.
var Handshake = plugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "WLEDBRIDGE_PLUGIN",
	MagicCookieValue: "nodeserver",
}

// pluginName is the key both sides use in their go-plugin plugin maps
const pluginName = "nodeserver"

// hostServiceID is the fixed MuxBroker stream id of the reverse channel
const hostServiceID = uint32(1)

// RPCPlugin is the go-plugin Plugin implementation
type RPCPlugin struct {
	plugin.Plugin
	Impl   NodeServer
	Logger hclog.Logger
}

// Server returns the RPC server for this plugin
func (p *RPCPlugin) Server(broker *plugin.MuxBroker) (interface{}, error) {
	return &RPCServer{
		Impl:   p.Impl,
		broker: broker,
		logger: p.Logger,
	}, nil
}

// Client returns the RPC client for this plugin
func (p *RPCPlugin) Client(broker *plugin.MuxBroker, client *rpc.Client) (interface{}, error) {
	return &RPCClient{
		client: client,
		broker: broker,
	}, nil
}

// ============================================================================
// RPC Server Implementation (plugin side)
// ============================================================================

// RPCServer is the RPC server that wraps NodeServer
type RPCServer struct {
	Impl                 NodeServer
	broker               *plugin.MuxBroker
	logger               hclog.Logger
	hostServiceReadyChan chan struct{}
	hostServiceSetupErr  error
}

type MetadataArgs struct{}
type MetadataReply struct {
	Error    string
	Metadata Metadata
}

func (s *RPCServer) Metadata(args *MetadataArgs, reply *MetadataReply) error {
	metadata, err := s.Impl.Metadata(context.Background())
	if err != nil {
		reply.Error = err.Error()
		return nil
	}
	reply.Metadata = metadata
	return nil
}

type StartArgs struct {
	Params map[string]string
}

// ErrorReply is shared by every call that only reports an error
type ErrorReply struct {
	Error string
}

func (s *RPCServer) Start(args *StartArgs, reply *ErrorReply) error {
	if err := s.Impl.Start(context.Background(), args.Params); err != nil {
		reply.Error = err.Error()
	}
	return nil
}

type EmptyArgs struct{}

func (s *RPCServer) ShortPoll(args *EmptyArgs, reply *ErrorReply) error {
	if err := s.Impl.ShortPoll(context.Background()); err != nil {
		reply.Error = err.Error()
	}
	return nil
}

func (s *RPCServer) LongPoll(args *EmptyArgs, reply *ErrorReply) error {
	if err := s.Impl.LongPoll(context.Background()); err != nil {
		reply.Error = err.Error()
	}
	return nil
}

func (s *RPCServer) Query(args *EmptyArgs, reply *ErrorReply) error {
	if err := s.Impl.Query(context.Background()); err != nil {
		reply.Error = err.Error()
	}
	return nil
}

func (s *RPCServer) Delete(args *EmptyArgs, reply *ErrorReply) error {
	if err := s.Impl.Delete(context.Background()); err != nil {
		reply.Error = err.Error()
	}
	return nil
}

type HandleCommandArgs struct {
	Command Command
}

func (s *RPCServer) HandleCommand(args *HandleCommandArgs, reply *ErrorReply) error {
	if err := s.Impl.HandleCommand(context.Background(), args.Command); err != nil {
		reply.Error = err.Error()
	}
	return nil
}

type NodesReply struct {
	Error string
	Nodes []NodeInfo
}

func (s *RPCServer) Nodes(args *EmptyArgs, reply *NodesReply) error {
	nodes, err := s.Impl.Nodes(context.Background())
	if err != nil {
		reply.Error = err.Error()
		return nil
	}
	reply.Nodes = nodes
	return nil
}

type SetHostServiceArgs struct {
	HostServiceID uint32 // MuxBroker ID for the host service
}

func (s *RPCServer) SetHostService(args *SetHostServiceArgs, reply *ErrorReply) error {
	// Two-stage synchronization:
	// 1. acceptReadyChan - Accept() is about to be called, so the hub may Dial
	// 2. hostServiceReadyChan - SetHost on the impl has been called
	acceptReadyChan := make(chan struct{})
	s.hostServiceReadyChan = make(chan struct{})
	s.hostServiceSetupErr = nil

	go func() {
		defer close(s.hostServiceReadyChan)

		close(acceptReadyChan)

		conn, err := s.broker.Accept(args.HostServiceID)
		if err != nil {
			s.hostServiceSetupErr = fmt.Errorf("failed to accept host service connection: %w", err)
			if s.logger != nil {
				s.logger.Error("host service setup failed", "error", s.hostServiceSetupErr)
			}
			return
		}

		s.Impl.SetHost(&HostServiceClient{client: rpc.NewClient(conn)})
	}()

	<-acceptReadyChan
	return nil
}

func (s *RPCServer) VerifyHostService(args *EmptyArgs, reply *ErrorReply) error {
	if s.hostServiceReadyChan == nil {
		reply.Error = "host service was never set up"
		return nil
	}

	// Closed by SetHostService's goroutine once setup completes
	<-s.hostServiceReadyChan

	if s.hostServiceSetupErr != nil {
		reply.Error = s.hostServiceSetupErr.Error()
	}
	return nil
}

// ============================================================================
// RPC Client Implementation (hub side)
// ============================================================================

// RPCClient is the RPC client that implements NodeServer
type RPCClient struct {
	client *rpc.Client
	broker *plugin.MuxBroker
}

func (c *RPCClient) call(method string, args interface{}) error {
	var reply ErrorReply
	if err := c.client.Call("Plugin."+method, args, &reply); err != nil {
		return err
	}
	return ErrFromString(reply.Error)
}

func (c *RPCClient) Metadata(ctx context.Context) (Metadata, error) {
	var reply MetadataReply
	if err := c.client.Call("Plugin.Metadata", &MetadataArgs{}, &reply); err != nil {
		return Metadata{}, err
	}
	if reply.Error != "" {
		return Metadata{}, ErrFromString(reply.Error)
	}
	return reply.Metadata, nil
}

func (c *RPCClient) Start(ctx context.Context, params map[string]string) error {
	return c.call("Start", &StartArgs{Params: params})
}

func (c *RPCClient) ShortPoll(ctx context.Context) error {
	return c.call("ShortPoll", &EmptyArgs{})
}

func (c *RPCClient) LongPoll(ctx context.Context) error {
	return c.call("LongPoll", &EmptyArgs{})
}

func (c *RPCClient) Query(ctx context.Context) error {
	return c.call("Query", &EmptyArgs{})
}

func (c *RPCClient) Delete(ctx context.Context) error {
	return c.call("Delete", &EmptyArgs{})
}

func (c *RPCClient) HandleCommand(ctx context.Context, cmd Command) error {
	return c.call("HandleCommand", &HandleCommandArgs{Command: cmd})
}

func (c *RPCClient) Nodes(ctx context.Context) ([]NodeInfo, error) {
	var reply NodesReply
	if err := c.client.Call("Plugin.Nodes", &EmptyArgs{}, &reply); err != nil {
		return nil, err
	}
	if reply.Error != "" {
		return nil, ErrFromString(reply.Error)
	}
	return reply.Nodes, nil
}

// SetHost is part of NodeServer; on the hub side the reverse channel is
// opened by PluginClient.SetupHostService instead.
func (c *RPCClient) SetHost(h Host) {}

// ============================================================================
// Host RPC Implementation (reverse channel)
// ============================================================================

// HostServiceServer is the RPC server that wraps Host, served by the hub
type HostServiceServer struct {
	Impl Host
}

type AddNodeArgs struct {
	Node NodeInfo
}

func (s *HostServiceServer) AddNode(args *AddNodeArgs, reply *ErrorReply) error {
	if err := s.Impl.AddNode(context.Background(), args.Node); err != nil {
		reply.Error = err.Error()
	}
	return nil
}

type SetDriverArgs struct {
	Address string
	Driver  Driver
	Force   bool
}

func (s *HostServiceServer) SetDriver(args *SetDriverArgs, reply *ErrorReply) error {
	if err := s.Impl.SetDriver(context.Background(), args.Address, args.Driver, args.Force); err != nil {
		reply.Error = err.Error()
	}
	return nil
}

type ReportCommandArgs struct {
	Address string
	Command string
	Value   int
	UOM     int
}

func (s *HostServiceServer) ReportCommand(args *ReportCommandArgs, reply *ErrorReply) error {
	if err := s.Impl.ReportCommand(context.Background(), args.Address, args.Command, args.Value, args.UOM); err != nil {
		reply.Error = err.Error()
	}
	return nil
}

func (s *HostServiceServer) InstallProfile(args *EmptyArgs, reply *ErrorReply) error {
	if err := s.Impl.InstallProfile(context.Background()); err != nil {
		reply.Error = err.Error()
	}
	return nil
}

func (s *HostServiceServer) Ping(args *EmptyArgs, reply *ErrorReply) error {
	if err := s.Impl.Ping(context.Background()); err != nil {
		reply.Error = err.Error()
	}
	return nil
}

// HostServiceClient is the RPC client that implements Host, used by the plugin
type HostServiceClient struct {
	client *rpc.Client
}

func (c *HostServiceClient) call(method string, args interface{}) error {
	var reply ErrorReply
	if err := c.client.Call("HostService."+method, args, &reply); err != nil {
		return err
	}
	return ErrFromString(reply.Error)
}

func (c *HostServiceClient) Ping(ctx context.Context) error {
	return c.call("Ping", &EmptyArgs{})
}

func (c *HostServiceClient) AddNode(ctx context.Context, node NodeInfo) error {
	return c.call("AddNode", &AddNodeArgs{Node: node})
}

func (c *HostServiceClient) SetDriver(ctx context.Context, address string, driver Driver, force bool) error {
	return c.call("SetDriver", &SetDriverArgs{Address: address, Driver: driver, Force: force})
}

func (c *HostServiceClient) ReportCommand(ctx context.Context, address string, command string, value int, uom int) error {
	return c.call("ReportCommand", &ReportCommandArgs{Address: address, Command: command, Value: value, UOM: uom})
}

func (c *HostServiceClient) InstallProfile(ctx context.Context) error {
	return c.call("InstallProfile", &EmptyArgs{})
}

// ============================================================================
// Helper Functions
// ============================================================================

// sentinels are the errors that keep their identity across the RPC boundary
var sentinels = []error{ErrUnknownNode, ErrUnknownCommand}

// ErrFromString creates an error from a reply string. A message that starts
// with a sentinel's text unwraps to that sentinel, so errors.Is still matches
// on the caller's side.
func ErrFromString(s string) error {
	if s == "" {
		return nil
	}
	err := &rpcError{msg: s}
	for _, sentinel := range sentinels {
		prefix := sentinel.Error()
		if s == prefix || strings.HasPrefix(s, prefix+":") {
			err.sentinel = sentinel
			break
		}
	}
	return err
}

type rpcError struct {
	msg      string
	sentinel error
}

func (e *rpcError) Error() string {
	return e.msg
}

func (e *rpcError) Unwrap() error {
	return e.sentinel
}

// ServePlugin serves impl over go-plugin. It blocks until the hub goes away.
func ServePlugin(impl NodeServer, logger hclog.Logger) {
	plugin.Serve(&plugin.ServeConfig{
		HandshakeConfig: Handshake,
		Plugins: map[string]plugin.Plugin{
			pluginName: &RPCPlugin{Impl: impl, Logger: logger},
		},
		Logger: logger,
	})
}
