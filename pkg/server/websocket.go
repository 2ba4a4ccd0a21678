// Copyright (C) 2026  Luthiers Toolbox Project
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/HanzoRazer/luthiers-toolbox-sub006/pkg/pool"
	"github.com/HanzoRazer/luthiers-toolbox-sub006/pkg/sim"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPongTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second
	wsMaxMessage   = 4 << 20

	sendQueueSize = 64

	statusInterval = time.Second

	topicStatus  = "status"
	topicHistory = "history"
)

// JSON-RPC 2.0 structures

type jsonRPCRequest struct {
	JSONRPC string         `json:"jsonrpc"`
	Method  string         `json:"method"`
	Params  map[string]any `json:"params,omitempty"`
	ID      any            `json:"id,omitempty"`
}

type jsonRPCResponse struct {
	JSONRPC string        `json:"jsonrpc"`
	Result  any           `json:"result,omitempty"`
	Error   *jsonRPCError `json:"error,omitempty"`
	ID      any           `json:"id,omitempty"`
}

type jsonRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

const (
	rpcParseError     = -32700
	rpcMethodNotFound = -32601
	rpcInvalidParams  = -32602
	rpcAppError       = -32000
)

func rpcError(code int, format string, args ...any) *jsonRPCError {
	return &jsonRPCError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// rawMessage is a pre-encoded JSON frame, written verbatim instead of
// being marshalled once per client.
type rawMessage []byte

// Client is one WebSocket connection.
type Client struct {
	id     int64
	conn   *websocket.Conn
	server *Server
	sendCh chan any
	done   chan struct{}
	mu     sync.Mutex
}

func (s *Server) newClient(conn *websocket.Conn) *Client {
	return &Client{
		id:     atomic.AddInt64(&s.nextID, 1),
		conn:   conn,
		server: s,
		sendCh: make(chan any, sendQueueSize),
		done:   make(chan struct{}),
	}
}

// Send queues a notification without blocking. Progress and status
// updates are dropped when the client cannot keep up.
func (c *Client) Send(msg any) {
	select {
	case c.sendCh <- msg:
	case <-c.done:
	default:
		c.server.log.Warn("dropping message to client %d (queue full)", c.id)
	}
}

// reply queues an RPC response, waiting for queue space so responses
// are never dropped.
func (c *Client) reply(msg any) {
	select {
	case c.sendCh <- msg:
	case <-c.done:
	}
}

// Close shuts the connection down. Safe to call more than once.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.done:
		return
	default:
		close(c.done)
	}

	c.conn.Close()
}

// readPump reads messages from the connection until it closes.
func (c *Client) readPump() {
	defer func() {
		c.server.removeClient(c)
		c.Close()
	}()

	c.conn.SetReadLimit(wsMaxMessage)
	c.conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.server.log.Warn("client %d read error: %v", c.id, err)
			}
			return
		}
		c.handleMessage(message)
	}
}

// writePump drains the send queue and keeps the connection alive with
// periodic pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(wsPingInterval)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case msg := <-c.sendCh:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			var err error
			if raw, ok := msg.(rawMessage); ok {
				err = c.conn.WriteMessage(websocket.TextMessage, raw)
			} else {
				err = c.conn.WriteJSON(msg)
			}
			if err != nil {
				c.server.log.Warn("client %d write error: %v", c.id, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			return
		}
	}
}

// handleMessage processes one incoming JSON-RPC message.
func (c *Client) handleMessage(data []byte) {
	var req jsonRPCRequest
	if err := json.Unmarshal(data, &req); err != nil {
		c.sendError(nil, rpcError(rpcParseError, "Parse error"))
		return
	}

	result, rpcErr := c.server.dispatchMethod(req.Method, req.Params, c)
	if rpcErr != nil {
		c.sendError(req.ID, rpcErr)
		return
	}

	c.reply(jsonRPCResponse{
		JSONRPC: "2.0",
		Result:  result,
		ID:      req.ID,
	})
}

func (c *Client) sendError(id any, rpcErr *jsonRPCError) {
	c.reply(jsonRPCResponse{
		JSONRPC: "2.0",
		Error:   rpcErr,
		ID:      id,
	})
}

// handleWebSocket upgrades the connection and runs the read loop until
// the client disconnects.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	client := s.newClient(conn)

	s.clientMu.Lock()
	s.clients[client.id] = client
	s.clientMu.Unlock()

	s.metrics.ClientConnected()
	s.log.Debug("websocket client %d connected", client.id)

	// Greet the client so it can confirm the service identity without
	// issuing a call.
	client.Send(map[string]any{
		"jsonrpc": "2.0",
		"method":  "notify_service_ready",
		"params":  []any{s.serverInfo()},
	})

	go client.writePump()
	client.readPump()
}

// removeClient drops a client and its subscriptions.
func (s *Server) removeClient(client *Client) {
	s.clientMu.Lock()
	_, present := s.clients[client.id]
	delete(s.clients, client.id)
	s.clientMu.Unlock()

	s.subMu.Lock()
	delete(s.subscriptions, client.id)
	s.subMu.Unlock()

	if present {
		s.metrics.ClientDisconnected()
		s.log.Debug("websocket client %d disconnected", client.id)
	}
}

// Method dispatch, shared by the websocket and the POST endpoint. A
// nil client means the call arrived over plain HTTP.
func (s *Server) dispatchMethod(method string, params map[string]any, client *Client) (any, *jsonRPCError) {
	switch method {
	case "server.info":
		return s.serverInfo(), nil
	case "server.ping":
		return "pong", nil
	case "server.subscribe":
		return s.methodSubscribe(params, client)
	case "server.unsubscribe":
		return s.methodUnsubscribe(params, client)
	case "sim.profiles":
		return s.profilesResult(), nil
	case "sim.run":
		return s.methodSimRun(params, client)
	case "sim.history":
		return s.methodSimHistory(params)
	default:
		return nil, rpcError(rpcMethodNotFound, "method not found: %s", method)
	}
}

func (s *Server) methodSimRun(params map[string]any, client *Client) (any, *jsonRPCError) {
	program := paramString(params, "program")
	if strings.TrimSpace(program) == "" {
		return nil, rpcError(rpcInvalidParams, "missing program parameter")
	}

	req := simRequest{
		Program:    program,
		Machine:    paramString(params, "machine"),
		Material:   paramString(params, "material"),
		Format:     paramString(params, "format"),
		Timeseries: paramBool(params, "timeseries"),
	}

	mode := paramString(params, "mode")
	if mode == "" {
		mode = modeValidate
	}
	if mode != modeValidate && mode != modeEnergy {
		return nil, rpcError(rpcInvalidParams, "unknown mode %q", mode)
	}

	var onMove func(sim.Move)
	if client != nil && paramBool(params, "progress") {
		index := 0
		onMove = func(mv sim.Move) {
			client.Send(map[string]any{
				"jsonrpc": "2.0",
				"method":  "notify_sim_progress",
				"params":  []any{map[string]any{"index": index, "move": mv}},
			})
			index++
		}
	}

	report, err := s.runProgram(req, mode, onMove)
	if err != nil {
		return nil, rpcError(rpcAppError, "%s", err)
	}
	return report, nil
}

func (s *Server) methodSimHistory(params map[string]any) (any, *jsonRPCError) {
	limit := 20
	if v, ok := params["limit"].(float64); ok && v > 0 {
		limit = int(v)
	}
	return map[string]any{
		"count": s.history.Len(),
		"runs":  s.history.List(limit, 0, 0, 0, "desc"),
	}, nil
}

func (s *Server) methodSubscribe(params map[string]any, client *Client) (any, *jsonRPCError) {
	if client == nil {
		return nil, rpcError(rpcInvalidParams, "subscriptions require a websocket connection")
	}

	topics, rpcErr := topicsParam(params)
	if rpcErr != nil {
		return nil, rpcErr
	}

	s.subMu.Lock()
	set := s.subscriptions[client.id]
	if set == nil {
		set = make(map[string]bool)
		s.subscriptions[client.id] = set
	}
	for _, name := range topics {
		set[name] = true
	}
	s.subMu.Unlock()

	return map[string]any{"subscribed": topics}, nil
}

func (s *Server) methodUnsubscribe(params map[string]any, client *Client) (any, *jsonRPCError) {
	if client == nil {
		return nil, rpcError(rpcInvalidParams, "subscriptions require a websocket connection")
	}

	s.subMu.Lock()
	defer s.subMu.Unlock()

	if _, ok := params["topics"]; !ok {
		delete(s.subscriptions, client.id)
		return map[string]any{"subscribed": []string{}}, nil
	}

	topics, rpcErr := topicsParam(params)
	if rpcErr != nil {
		return nil, rpcErr
	}
	set := s.subscriptions[client.id]
	for _, name := range topics {
		delete(set, name)
	}

	remaining := make([]string, 0, len(set))
	for name := range set {
		remaining = append(remaining, name)
	}
	return map[string]any{"subscribed": remaining}, nil
}

func topicsParam(params map[string]any) ([]string, *jsonRPCError) {
	raw, ok := params["topics"].([]any)
	if !ok || len(raw) == 0 {
		return nil, rpcError(rpcInvalidParams, "missing topics parameter")
	}

	topics := make([]string, 0, len(raw))
	for _, t := range raw {
		name, ok := t.(string)
		if !ok || (name != topicStatus && name != topicHistory) {
			return nil, rpcError(rpcInvalidParams, "unknown topic %v", t)
		}
		topics = append(topics, name)
	}
	return topics, nil
}

func paramString(params map[string]any, key string) string {
	v, _ := params[key].(string)
	return v
}

func paramBool(params map[string]any, key string) bool {
	v, _ := params[key].(bool)
	return v
}

// broadcast sends one notification to every client subscribed to the
// topic. The payload is encoded once and shared across clients.
func (s *Server) broadcast(topic, method string, params []any) {
	if !s.hasSubscribers(topic) {
		return
	}

	data, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"method":  method,
		"params":  params,
	})
	if err != nil {
		s.log.WithError(err).Error("encoding %s notification", method)
		return
	}

	s.subMu.RLock()
	defer s.subMu.RUnlock()

	for clientID, topics := range s.subscriptions {
		if !topics[topic] {
			continue
		}
		s.clientMu.RLock()
		client, ok := s.clients[clientID]
		s.clientMu.RUnlock()
		if ok {
			client.Send(rawMessage(data))
		}
	}
}

func (s *Server) hasSubscribers(topic string) bool {
	s.subMu.RLock()
	defer s.subMu.RUnlock()

	for _, topics := range s.subscriptions {
		if topics[topic] {
			return true
		}
	}
	return false
}

// statusBroadcastLoop pushes a service status snapshot to subscribed
// clients while the server runs.
func (s *Server) statusBroadcastLoop() {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	for s.running.Load() {
		<-ticker.C
		s.broadcastStatus()
	}
}

func (s *Server) broadcastStatus() {
	if !s.hasSubscribers(topicStatus) {
		return
	}

	status := pool.GetStatusMap()
	defer pool.PutStatusMap(status)

	s.clientMu.RLock()
	status["websocket_clients"] = len(s.clients)
	s.clientMu.RUnlock()
	status["uptime_s"] = time.Since(s.startTime).Seconds()
	status["runs_recorded"] = s.history.Len()

	s.broadcast(topicStatus, "notify_status_update", []any{status})
}
