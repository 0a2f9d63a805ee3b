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
	"fmt"
	"io"
	"net/rpc"
	"os"
	"os/exec"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-plugin"
)

// PluginClient wraps a go-plugin client for lifecycle management
type PluginClient struct {
	client    *plugin.Client
	rpcClient plugin.ClientProtocol
}

// NewPluginClient starts the plugin binary at pluginPath and connects to it.
// Framework logs are discarded unless WLEDBRIDGE_DEBUG is set.
func NewPluginClient(pluginPath string) (*PluginClient, error) {
	var output io.Writer = io.Discard
	logLevel := hclog.Error
	if os.Getenv("WLEDBRIDGE_DEBUG") != "" {
		output = os.Stderr
		logLevel = hclog.Debug
	}

	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "plugin",
		Output: output,
		Level:  logLevel,
	})

	client := plugin.NewClient(&plugin.ClientConfig{
		HandshakeConfig: Handshake,
		Plugins: map[string]plugin.Plugin{
			pluginName: &RPCPlugin{},
		},
		Cmd:    exec.Command(pluginPath),
		Logger: logger,
		AllowedProtocols: []plugin.Protocol{
			plugin.ProtocolNetRPC,
		},
	})

	rpcClient, err := client.Client()
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("failed to get RPC client: %w", err)
	}

	logger.Debug("plugin started", "path", pluginPath)

	return &PluginClient{
		client:    client,
		rpcClient: rpcClient,
	}, nil
}

// Dispense returns the plugin's NodeServer
func (c *PluginClient) Dispense() (NodeServer, error) {
	raw, err := c.rpcClient.Dispense(pluginName)
	if err != nil {
		return nil, fmt.Errorf("failed to dispense plugin: %w", err)
	}

	server, ok := raw.(NodeServer)
	if !ok {
		return nil, fmt.Errorf("dispensed plugin is not a NodeServer")
	}

	return server, nil
}

// SetupHostService opens the reverse channel so the plugin can call h.
// It returns once the plugin has confirmed SetHost was called.
func (c *PluginClient) SetupHostService(h Host) error {
	raw, err := c.rpcClient.Dispense(pluginName)
	if err != nil {
		return fmt.Errorf("failed to get plugin node server: %w", err)
	}

	rpcClient, ok := raw.(*RPCClient)
	if !ok {
		return fmt.Errorf("node server is not an RPCClient")
	}

	return rpcClient.setupHostService(h)
}

func (c *RPCClient) setupHostService(h Host) error {
	// The plugin starts Accept in a goroutine before replying
	var reply ErrorReply
	if err := c.client.Call("Plugin.SetHostService", &SetHostServiceArgs{
		HostServiceID: hostServiceID,
	}, &reply); err != nil {
		return fmt.Errorf("failed to call SetHostService: %w", err)
	}
	if reply.Error != "" {
		return fmt.Errorf("SetHostService failed: %s", reply.Error)
	}

	conn, err := c.broker.Dial(hostServiceID)
	if err != nil {
		return fmt.Errorf("failed to dial host service connection: %w", err)
	}

	server := rpc.NewServer()
	if err := server.RegisterName("HostService", &HostServiceServer{Impl: h}); err != nil {
		conn.Close()
		return fmt.Errorf("failed to register host service: %w", err)
	}
	go server.ServeConn(conn)

	// Blocks until the plugin's Accept goroutine has handed the client to SetHost
	var verifyReply ErrorReply
	if err := c.client.Call("Plugin.VerifyHostService", &EmptyArgs{}, &verifyReply); err != nil {
		return fmt.Errorf("failed to verify host service setup: %w", err)
	}
	if verifyReply.Error != "" {
		return fmt.Errorf("host service verification failed: %s", verifyReply.Error)
	}

	return nil
}

// Exited reports whether the plugin process has exited
func (c *PluginClient) Exited() bool {
	return c.client.Exited()
}

// Close terminates the plugin
func (c *PluginClient) Close() error {
	if c.client != nil {
		c.client.Kill()
	}
	return nil
}
