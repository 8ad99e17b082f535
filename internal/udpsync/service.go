package udpsync

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/minilabo/minilab-core/internal/io"
)

// Default UDP ports. Receive and transmit are independently configurable.
const (
	DefaultRxPort = 50000
	DefaultTxPort = 50001
)

// heartbeatInterval is the liveness broadcast period.
const heartbeatInterval = time.Second

// maxDatagram bounds inbound datagram size. The protocol exchanges small
// JSON documents; anything larger is truncated and will fail to parse.
const maxDatagram = 2048

// Config holds the UDP sync service settings.
type Config struct {
	// Enabled gates the whole protocol. Disabled means never bound and
	// every operation is a no-op.
	Enabled bool

	// RxPort is the receive port (also the conventional port peers listen
	// on for discovery requests). Zero binds an ephemeral port.
	RxPort int

	// TxPort is the transmit port for heartbeats.
	TxPort int

	// BroadcastAddr is the address heartbeats and discovery requests are
	// broadcast to. Defaults to the limited broadcast address.
	BroadcastAddr string
}

// Logger is the minimal logging interface used by the service.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Service is the UDP endpoint. It answers discovery requests, routes
// inbound value reports into the registry, broadcasts heartbeats, and
// runs active discovery scans.
type Service struct {
	cfg      Config
	registry *io.Registry
	ident    Identity
	logger   Logger

	conn    *net.UDPConn
	running bool

	// heartbeatEvery is swappable for tests.
	heartbeatEvery time.Duration

	// scan, when non-nil, receives discovery replies instead of the
	// normal handler. Guarded by mu.
	scan chan scanPacket
	mu   sync.Mutex

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type scanPacket struct {
	doc  io.Document
	addr *net.UDPAddr
}

// New creates a service for the given registry. The service is unbound
// until Start is called.
func New(cfg Config, registry *io.Registry, ident Identity) *Service {
	if cfg.BroadcastAddr == "" {
		cfg.BroadcastAddr = "255.255.255.255"
	}
	return &Service{
		cfg:            cfg,
		registry:       registry,
		ident:          ident,
		logger:         noopLogger{},
		heartbeatEvery: heartbeatInterval,
	}
}

// SetLogger sets the logger for the service.
func (s *Service) SetLogger(logger Logger) {
	s.logger = logger
}

// Start binds the receive port and launches the receive and heartbeat
// goroutines. A disabled service starts successfully but stays unbound.
func (s *Service) Start(ctx context.Context) error {
	if !s.cfg.Enabled {
		s.logger.Info("udp sync disabled by configuration")
		return nil
	}

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: s.cfg.RxPort})
	if err != nil {
		return fmt.Errorf("binding udp port %d: %w", s.cfg.RxPort, err)
	}
	s.conn = conn
	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(2)
	go s.receiveLoop(ctx)
	go s.heartbeatLoop(ctx)

	s.logger.Info("udp sync bound",
		"rx_port", s.port(), "tx_port", s.cfg.TxPort)
	return nil
}

// Close stops the goroutines and releases the socket.
func (s *Service) Close() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()
	s.cancel()
	err := s.conn.Close()
	s.wg.Wait()
	return err
}

// Running reports whether the receive port is bound.
func (s *Service) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// port returns the actually bound receive port.
func (s *Service) port() int {
	if s.conn == nil {
		return s.cfg.RxPort
	}
	return s.conn.LocalAddr().(*net.UDPAddr).Port
}

// receiveLoop drains datagrams until the context is cancelled. It is the
// only reader of the socket.
func (s *Service) receiveLoop(ctx context.Context) {
	defer s.wg.Done()
	buf := make([]byte, maxDatagram)
	for {
		n, addr, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				s.logger.Warn("udp read failed", "error", err)
				continue
			}
		}
		s.handleDatagram(ctx, buf[:n], addr)
	}
}

// handleDatagram parses one datagram and routes it. Parse failures are
// logged and dropped.
func (s *Service) handleDatagram(ctx context.Context, data []byte, addr *net.UDPAddr) {
	doc := io.ParseDocument(data)
	if doc == nil {
		s.logger.Warn("udp datagram is not a JSON object", "from", addr.String(), "bytes", len(data))
		return
	}

	// A running scan claims discovery replies; everything else keeps
	// flowing through the normal handler so unrelated traffic is not
	// dropped while scanning.
	if doc.Text("type", "cmd") == msgDiscoverReply {
		s.mu.Lock()
		scan := s.scan
		s.mu.Unlock()
		if scan != nil {
			select {
			case scan <- scanPacket{doc: doc, addr: addr}:
			default:
				s.logger.Warn("scan reply dropped, collector full", "from", addr.String())
			}
		}
		return
	}

	s.handleMessage(ctx, doc, addr)
}

// handleMessage dispatches one inbound document on its cmd/type field.
func (s *Service) handleMessage(ctx context.Context, doc io.Document, addr *net.UDPAddr) {
	switch doc.Text("cmd", "type") {
	case msgDiscover, msgListInputs:
		// Our own discovery broadcast loops back; answering it would put
		// this device in its own scan results.
		if textEqualFold(doc.Text("mac"), s.ident.MAC) {
			return
		}
		s.sendDiscoveryReply(addr)

	case msgValue, msgChannelValue:
		s.applyUpdate(ctx, doc, doc, addr)

	case msgValues, msgSnapshot:
		if items, ok := doc.Array("values", "channels"); ok && len(items) > 0 {
			for _, item := range items {
				s.applyUpdate(ctx, item, doc, addr)
			}
			return
		}
		if nested, ok := doc.Object("channel"); ok {
			s.applyUpdate(ctx, nested, doc, addr)
			return
		}
		if doc.Text("id", "channelId", "channel_id") != "" {
			s.applyUpdate(ctx, doc, doc, addr)
		}

	default:
		s.logger.Debug("udp message ignored",
			"cmd", doc.Text("cmd", "type"), "from", addr.String())
	}
}

// applyUpdate forwards one channel update into the registry. Source
// identity comes preferentially from the payload (entry first, then the
// enclosing message), falling back to the transport sender address.
func (s *Service) applyUpdate(ctx context.Context, entry, envelope io.Document, addr *net.UDPAddr) {
	ip := firstNonEmpty(
		entry.Text("ip", "source_ip"),
		envelope.Text("ip", "source_ip"),
		addr.IP.String(),
	)
	update := io.RemoteUpdate{
		MAC: firstNonEmpty(
			entry.Text("mac", "source_mac"),
			envelope.Text("mac", "source_mac"),
		),
		IP: ip,
		Hostname: firstNonEmpty(
			entry.Text("hostname", "source_hostname"),
			envelope.Text("hostname", "source_hostname"),
		),
		ChannelID:    entry.Text("id", "channelId", "channel_id", "channel"),
		ChannelLabel: entry.Text("label", "channelLabel", "channel_label"),
		Unit:         entry.Text("unit"),
	}
	if raw, ok := entry.Float("raw"); ok {
		update.Raw = &raw
	}
	if value, ok := entry.Float("value"); ok {
		update.Value = &value
	}

	matched := s.registry.UpdateRemoteValue(ctx, update)
	if matched == 0 {
		s.logger.Debug("value report matched no channel",
			"channel", firstNonEmpty(update.ChannelID, update.ChannelLabel),
			"from", addr.String())
	}
}

// sendDiscoveryReply advertises this device and its locally-sourced
// inputs to the requester. Channels that are themselves udp-in are
// excluded so devices do not re-advertise each other's channels in a
// loop.
func (s *Service) sendDiscoveryReply(addr *net.UDPAddr) {
	inputs := make([]io.ChannelDescription, 0)
	for _, desc := range s.registry.DescribeChannels() {
		if desc.Kind == io.KindUDPIn {
			continue
		}
		inputs = append(inputs, desc)
	}

	reply := discoverReply{
		Type:     msgDiscoverReply,
		MAC:      s.ident.MAC,
		Hostname: s.ident.Hostname,
		IP:       s.ident.IP,
		RxPort:   s.port(),
		TxPort:   s.cfg.TxPort,
		Inputs:   inputs,
	}
	payload, err := json.Marshal(reply)
	if err != nil {
		s.logger.Error("encoding discovery reply failed", "error", err)
		return
	}
	if _, err := s.conn.WriteToUDP(payload, addr); err != nil {
		s.logger.Warn("sending discovery reply failed", "to", addr.String(), "error", err)
		return
	}
	s.logger.Info("discovery reply sent", "to", addr.String(), "inputs", len(inputs))
}

// heartbeatLoop broadcasts a small liveness document once per interval.
// Purely informational; receivers have no obligation.
func (s *Service) heartbeatLoop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.heartbeatEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sendHeartbeat()
		}
	}
}

func (s *Service) sendHeartbeat() {
	payload, err := json.Marshal(heartbeat{
		TS:  time.Now().UnixMilli(),
		Msg: "heartbeat",
	})
	if err != nil {
		return
	}
	if err := s.broadcast(payload, s.cfg.TxPort); err != nil {
		s.logger.Debug("heartbeat broadcast failed", "error", err)
	}
}

// broadcast sends a payload to the configured broadcast address.
func (s *Service) broadcast(payload []byte, port int) error {
	addr := &net.UDPAddr{IP: net.ParseIP(s.cfg.BroadcastAddr), Port: port}
	if addr.IP == nil {
		return fmt.Errorf("invalid broadcast address %q", s.cfg.BroadcastAddr)
	}
	_, err := s.conn.WriteToUDP(payload, addr)
	return err
}
