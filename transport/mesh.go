package transport

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	libp2p "github.com/libp2p/go-libp2p"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	mdns "github.com/libp2p/go-libp2p/p2p/discovery/mdns"
	ma "github.com/multiformats/go-multiaddr"
)

// MeshOptions configures the gossipsub-backed transport.
type MeshOptions struct {
	ListenAddrs     []string
	Bootstrap       []string
	Rendezvous      string
	EnableMDNS      bool
	IdentityKeyFile string
}

// MeshPubSub provides gossip-based pubsub over libp2p.
//
// Gossipsub has no server-side wildcard matching: a pattern key like
// cameras/* is joined as a literal topic and only matches peers publishing
// to that same literal. Use MemoryPubSub (or sibling literal topics) where
// pattern fan-in is needed.
type MeshPubSub struct {
	ctx    context.Context
	cancel context.CancelFunc
	log    *slog.Logger

	host host.Host
	ps   *pubsub.PubSub

	mu     sync.Mutex
	topics map[string]*pubsub.Topic
}

func NewMeshPubSub(parent context.Context, opts MeshOptions) (*MeshPubSub, error) {
	ctx, cancel := context.WithCancel(parent)
	log := slog.Default().With("component", "transport")

	listenAddrs := make([]ma.Multiaddr, 0, len(opts.ListenAddrs))
	for _, s := range opts.ListenAddrs {
		if s == "" {
			continue
		}
		a, err := ma.NewMultiaddr(s)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("invalid listen multiaddr %q: %w", s, err)
		}
		listenAddrs = append(listenAddrs, a)
	}
	if len(listenAddrs) == 0 {
		a, _ := ma.NewMultiaddr("/ip4/0.0.0.0/tcp/0")
		listenAddrs = append(listenAddrs, a)
	}

	libp2pOpts := []libp2p.Option{libp2p.ListenAddrs(listenAddrs...)}
	if opts.IdentityKeyFile != "" {
		key, err := loadOrCreateIdentityKey(opts.IdentityKeyFile)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("load identity key: %w", err)
		}
		libp2pOpts = append(libp2pOpts, libp2p.Identity(key))
	}

	h, err := libp2p.New(libp2pOpts...)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create host: %w", err)
	}

	ps, err := pubsub.NewGossipSub(ctx, h)
	if err != nil {
		_ = h.Close()
		cancel()
		return nil, fmt.Errorf("create gossipsub: %w", err)
	}

	m := &MeshPubSub{
		ctx:    ctx,
		cancel: cancel,
		log:    log,
		host:   h,
		ps:     ps,
		topics: make(map[string]*pubsub.Topic),
	}

	if opts.EnableMDNS {
		service := mdns.NewMdnsService(h, opts.Rendezvous, &mdnsNotifee{host: h, log: log})
		if err := service.Start(); err != nil {
			log.Warn("mdns start failed", "error", err)
		}
	}

	for _, raw := range opts.Bootstrap {
		if raw == "" {
			continue
		}
		addr, err := ma.NewMultiaddr(raw)
		if err != nil {
			log.Warn("skipping bootstrap addr", "addr", raw, "error", err)
			continue
		}
		info, err := peer.AddrInfoFromP2pAddr(addr)
		if err != nil {
			log.Warn("skipping bootstrap addr", "addr", raw, "error", err)
			continue
		}
		if err := h.Connect(ctx, *info); err != nil {
			log.Warn("bootstrap connect failed", "peer", info.ID, "error", err)
		} else {
			log.Info("connected bootstrap peer", "peer", info.ID)
		}
	}

	return m, nil
}

func (m *MeshPubSub) Publish(topic string, payload []byte) error {
	t, err := m.getOrJoinTopic(topic)
	if err != nil {
		return err
	}
	return t.Publish(m.ctx, payload)
}

func (m *MeshPubSub) Subscribe(topic string) (<-chan Message, func(), error) {
	t, err := m.getOrJoinTopic(topic)
	if err != nil {
		return nil, nil, err
	}
	sub, err := t.Subscribe()
	if err != nil {
		return nil, nil, err
	}

	out := make(chan Message, 64)
	subCtx, subCancel := context.WithCancel(m.ctx)
	go func() {
		defer close(out)
		for {
			msg, err := sub.Next(subCtx)
			if err != nil {
				return
			}
			select {
			case out <- Message{Topic: topic, Payload: append([]byte(nil), msg.Data...)}:
			default:
			}
		}
	}()

	cancel := func() {
		subCancel()
		sub.Cancel()
	}
	return out, cancel, nil
}

func (m *MeshPubSub) Close() error {
	m.cancel()
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.topics {
		_ = t.Close()
	}
	return m.host.Close()
}

// PeerID returns this node's libp2p identity.
func (m *MeshPubSub) PeerID() string {
	return m.host.ID().String()
}

// ListenAddrs returns the full dialable addresses of this node.
func (m *MeshPubSub) ListenAddrs() []string {
	out := make([]string, 0, len(m.host.Addrs()))
	for _, addr := range m.host.Addrs() {
		out = append(out, fmt.Sprintf("%s/p2p/%s", addr.String(), m.host.ID().String()))
	}
	return out
}

// ConnectedPeers returns the ids of currently connected peers.
func (m *MeshPubSub) ConnectedPeers() []string {
	peers := m.host.Network().Peers()
	out := make([]string, 0, len(peers))
	for _, pid := range peers {
		out = append(out, pid.String())
	}
	return out
}

func (m *MeshPubSub) getOrJoinTopic(name string) (*pubsub.Topic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.topics[name]; ok {
		return t, nil
	}
	t, err := m.ps.Join(name)
	if err != nil {
		return nil, err
	}
	m.topics[name] = t
	return t, nil
}

type mdnsNotifee struct {
	host host.Host
	log  *slog.Logger
}

func (n *mdnsNotifee) HandlePeerFound(info peer.AddrInfo) {
	if err := n.host.Connect(context.Background(), info); err != nil {
		n.log.Warn("mdns connect failed", "peer", info.ID, "error", err)
	}
}

func loadOrCreateIdentityKey(path string) (crypto.PrivKey, error) {
	if b, err := os.ReadFile(path); err == nil && len(b) > 0 {
		key, err := crypto.UnmarshalPrivateKey(b)
		if err != nil {
			return nil, fmt.Errorf("unmarshal private key: %w", err)
		}
		return key, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir key dir: %w", err)
	}
	key, _, err := crypto.GenerateEd25519Key(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate ed25519 key: %w", err)
	}
	raw, err := crypto.MarshalPrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("marshal private key: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return nil, fmt.Errorf("write private key: %w", err)
	}
	return key, nil
}
